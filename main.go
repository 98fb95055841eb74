package main

import (
	"os"

	"diskrip/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}

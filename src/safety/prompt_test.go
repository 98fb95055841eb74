package safety

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	cases := []struct {
		name  string
		opts  Options
		input string
		want  bool
	}{
		{"dry-run declines without prompting", Options{DryRun: true}, "y\n", false},
		{"yes flag skips prompt", Options{Yes: true}, "", true},
		{"answer y", Options{}, "y\n", true},
		{"answer yes", Options{}, "YES\n", true},
		{"answer n", Options{}, "n\n", false},
		{"empty answer declines", Options{}, "\n", false},
		{"eof declines", Options{}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Confirm(tc.opts, strings.NewReader(tc.input), &out, "Delete everything?")
			if err != nil {
				t.Fatalf("Confirm: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Confirm = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConfirmPromptText(t *testing.T) {
	var out bytes.Buffer
	if _, err := Confirm(Options{}, strings.NewReader("n\n"), &out, "Remove 3 spool directories?"); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "Remove 3 spool directories? [y/N]: " {
		t.Fatalf("prompt = %q", got)
	}
}

func TestConfirmDryRunWritesNothing(t *testing.T) {
	var out bytes.Buffer
	ok, err := Confirm(Options{DryRun: true}, strings.NewReader(""), &out, "proceed?")
	if err != nil || ok {
		t.Fatalf("Confirm = %v, %v", ok, err)
	}
	if out.Len() != 0 {
		t.Fatalf("dry-run should not prompt, wrote %q", out.String())
	}
}

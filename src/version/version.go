package version

// Version is the diskrip release version. Overridden at build time via
// -ldflags "-X diskrip/src/version.Version=...".
var Version = "0.3.0-dev"

package cmd

// Version is the application version.
// It is intended to be overridden at build time using ldflags.
// Example: go build -ldflags "-X github.com/fengtianyu/courtdash/cmd.Version=1.0.0"
var Version = "0.1.0"

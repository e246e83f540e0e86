package version

// Version is the current version of tsundoku. It's overridden at build time
// with ldflags for release builds.
var Version = "dev"

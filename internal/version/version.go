package version

// Version is the current bskb version. Overridden at build time via
// -ldflags "-X bskb/internal/version.Version=...".
var Version = "0.3.0"

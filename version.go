package ramify

// Version is the module version, overridable at build time via
// -ldflags "-X github.com/dverbeek/ramify.Version=...".
var Version = "0.3.0"

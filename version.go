package tripgate

// Version is the release of the tripgate module. Overridden at build time with
// -ldflags "-X github.com/aretw0/tripgate.Version=...".
var Version = "0.4.0"

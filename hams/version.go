package hams

// Version is this module's own version, reported as hams_version
// alongside the embedding application's name/version.
const Version = "0.1.0"

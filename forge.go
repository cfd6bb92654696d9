package forge

// Version is the release of the forge binary and libraries.
var Version = "0.1.0"

// EngineVersion is the block engine version registries are checked against.
const EngineVersion = "2.0.5"

package assets

import _ "embed"

// DefaultConfig is the built-in configuration file. User files loaded on top
// of it only need to name the keys they change.
//
//go:embed timescan.ini
var DefaultConfig []byte

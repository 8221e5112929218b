// Package embedded carries data artifacts compiled into the binary.
package embedded

import (
	_ "embed"
)

// MappingTable is the default field mapping table, regenerated offline by
// cmd/mapgen and reviewed by hand.
//
//go:embed mapping.yaml
var MappingTable []byte

// Package extract implements Component A of the pipeline: turning a
// structured SBOM document into the key/value map BuildTree consumes.
//
// No example in this corpus parses an SBOM directly, so this package is
// plain encoding/json over a minimal struct — the one true external-input
// boundary the whole module has (spec.md §4.A, §6 "Build input").
package extract

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Component is one entry in an SBOM's components array. Only the fields the
// core cares about are modeled; an SBOM document may carry many more (name,
// version, license, ...) which this package ignores.
type Component struct {
	PURL string `json:"purl"`
}

// SBOM is the minimal structured form spec.md §6 "Build input" names: a
// components array, each optionally bearing a purl string.
type SBOM struct {
	Components []Component `json:"components"`
}

// Diagnostics reports what Extract skipped, so a caller can log or surface
// it without Extract itself needing a logging dependency.
type Diagnostics struct {
	// TotalComponents is the number of components the SBOM declared.
	TotalComponents int
	// SkippedNoIdentifier counts components with an empty purl.
	SkippedNoIdentifier int
	// DuplicateIdentifiers counts components whose purl repeated a
	// previously-seen one (set semantics collapse them; this just counts
	// how many were folded).
	DuplicateIdentifiers int
}

// Extract canonicalizes an SBOM into the key/value map BuildTree expects:
// every present, non-empty purl maps to the value 1 (spec.md §3 "Value").
// Components without an identifier are skipped, not errored (spec.md §4.A).
func Extract(sbom *SBOM) (map[string]*big.Int, Diagnostics) {
	items := make(map[string]*big.Int)
	diag := Diagnostics{TotalComponents: len(sbom.Components)}

	for _, c := range sbom.Components {
		if c.PURL == "" {
			diag.SkippedNoIdentifier++
			continue
		}
		if _, exists := items[c.PURL]; exists {
			diag.DuplicateIdentifiers++
			continue
		}
		items[c.PURL] = big.NewInt(1)
	}

	return items, diag
}

// ParseSBOM decodes an SBOM document from its wire JSON form (spec.md §6
// "Build input"). A malformed document is an input-format error, rejected
// at this boundary rather than surfacing as a tree-building failure
// (spec.md §7).
func ParseSBOM(data []byte) (*SBOM, error) {
	var sbom SBOM
	if err := json.Unmarshal(data, &sbom); err != nil {
		return nil, fmt.Errorf("extract: malformed SBOM document: %w", err)
	}
	return &sbom, nil
}

package catalog

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the import/export document for the admin catalog.
// Sections left nil in an import are kept as they are.
type Snapshot struct {
	Domains    []string                       `json:"domains,omitempty"`
	Industries map[string][]string            `json:"industries,omitempty"`
	Modules    map[string]map[string][]Module `json:"modules,omitempty"`
	ExportDate time.Time                      `json:"exportDate"`
}

// ExportFileName is the download name used for snapshots.
const ExportFileName = "salesforce-implementation-data.json"

// Export captures the catalog as a snapshot.
func (c Catalog) Export(now time.Time) Snapshot {
	cp := c.Clone()
	return Snapshot{
		Domains:    cp.Domains,
		Industries: cp.Industries,
		Modules:    cp.Modules,
		ExportDate: now.UTC(),
	}
}

// Import replaces the sections present in the snapshot and validates the result.
func (c Catalog) Import(s Snapshot) (Catalog, error) {
	out := c.Clone()
	if s.Domains != nil {
		out.Domains = append([]string{}, s.Domains...)
	}
	if s.Industries != nil {
		out.Industries = Catalog{Industries: s.Industries}.Clone().Industries
	}
	if s.Modules != nil {
		out.Modules = Catalog{Modules: s.Modules}.Clone().Modules
	}
	if err := out.Validate(); err != nil {
		return c, fmt.Errorf("import: %w", err)
	}
	return out, nil
}

// DecodeSnapshot parses a JSON snapshot document.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// EncodeSnapshot renders a snapshot as indented JSON.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

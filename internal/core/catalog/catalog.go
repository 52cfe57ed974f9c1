package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

// =============================================================================
// Catalog
// =============================================================================

// Catalog is the full recommendation table.
type Catalog struct {
	Domains    []string                       `json:"domains" yaml:"domains"`
	Industries map[string][]string            `json:"industries" yaml:"industries"`
	Modules    map[string]map[string][]Module `json:"modules" yaml:"modules"`
}

// Default returns the built-in catalog.
func Default() Catalog {
	cat, err := Parse(seedYAML)
	if err != nil {
		// The seed is embedded at build time; failing here is a programming error.
		panic(fmt.Sprintf("catalog: invalid embedded seed: %v", err))
	}
	return cat
}

// Parse decodes a catalog from YAML and validates it.
func Parse(data []byte) (Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	cat = cat.normalize()
	if err := cat.Validate(); err != nil {
		return Catalog{}, err
	}
	return cat, nil
}

// Empty returns a catalog with no entries and initialized maps.
func Empty() Catalog {
	return Catalog{
		Domains:    []string{},
		Industries: map[string][]string{},
		Modules:    map[string]map[string][]Module{},
	}
}

// IsEmpty reports whether the catalog has no domains.
func (c Catalog) IsEmpty() bool {
	return len(c.Domains) == 0
}

// =============================================================================
// Lookups
// =============================================================================

// HasDomain reports whether the domain exists.
func (c Catalog) HasDomain(domain string) bool {
	return indexOf(c.Domains, domain) >= 0
}

// IndustriesFor returns the industries of a domain, or nil when unknown.
func (c Catalog) IndustriesFor(domain string) []string {
	return c.Industries[domain]
}

// HasIndustry reports whether the industry is listed under the domain.
func (c Catalog) HasIndustry(domain, industry string) bool {
	return indexOf(c.Industries[domain], industry) >= 0
}

// ModulesFor returns the modules of a domain/industry pair.
// Unknown keys yield an empty list, never an error.
func (c Catalog) ModulesFor(domain, industry string) []Module {
	byIndustry, ok := c.Modules[domain]
	if !ok {
		return []Module{}
	}
	modules, ok := byIndustry[industry]
	if !ok {
		return []Module{}
	}
	return modules
}

// FindModule looks a module up by name within a domain/industry pair.
func (c Catalog) FindModule(domain, industry, name string) (Module, bool) {
	for _, m := range c.ModulesFor(domain, industry) {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}

// ModuleCount returns the total number of modules in the catalog.
func (c Catalog) ModuleCount() int {
	n := 0
	for _, byIndustry := range c.Modules {
		for _, modules := range byIndustry {
			n += len(modules)
		}
	}
	return n
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks structural consistency of the catalog.
func (c Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Domains))
	for _, d := range c.Domains {
		if d == "" {
			return ErrNameRequired
		}
		if seen[d] {
			return fmt.Errorf("%w: %s", ErrDuplicateDomain, d)
		}
		seen[d] = true
	}
	for d, industries := range c.Industries {
		if !seen[d] {
			return fmt.Errorf("industries for %q: %w", d, ErrDomainNotFound)
		}
		names := make(map[string]bool, len(industries))
		for _, i := range industries {
			if i == "" {
				return fmt.Errorf("industry in %s: %w", d, ErrNameRequired)
			}
			if names[i] {
				return fmt.Errorf("%w: %s/%s", ErrDuplicateIndustry, d, i)
			}
			names[i] = true
		}
	}
	for d, byIndustry := range c.Modules {
		if !seen[d] {
			return fmt.Errorf("modules for %q: %w", d, ErrDomainNotFound)
		}
		for i, modules := range byIndustry {
			names := make(map[string]bool, len(modules))
			for _, m := range modules {
				if m.Name == "" {
					return fmt.Errorf("module in %s/%s: %w", d, i, ErrNameRequired)
				}
				if names[m.Name] {
					return fmt.Errorf("%w: %s/%s/%s", ErrDuplicateModule, d, i, m.Name)
				}
				names[m.Name] = true
				if !m.Complexity.IsValid() {
					return fmt.Errorf("module %q: %w", m.Name, ErrInvalidComplexity)
				}
			}
		}
	}
	return nil
}

// =============================================================================
// Copying
// =============================================================================

// Clone returns a deep copy of the catalog.
func (c Catalog) Clone() Catalog {
	out := Empty()
	out.Domains = append(out.Domains, c.Domains...)
	for d, industries := range c.Industries {
		out.Industries[d] = append([]string(nil), industries...)
	}
	for d, byIndustry := range c.Modules {
		m := make(map[string][]Module, len(byIndustry))
		for i, modules := range byIndustry {
			cp := make([]Module, len(modules))
			for k, mod := range modules {
				cp[k] = mod.Clone()
			}
			m[i] = cp
		}
		out.Modules[d] = m
	}
	return out
}

func (c Catalog) normalize() Catalog {
	if c.Domains == nil {
		c.Domains = []string{}
	}
	if c.Industries == nil {
		c.Industries = map[string][]string{}
	}
	if c.Modules == nil {
		c.Modules = map[string]map[string][]Module{}
	}
	return c
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

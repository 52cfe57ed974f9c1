package catalog

import (
	"errors"
	"strings"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrNameRequired      = errors.New("name is required")
	ErrDomainNotFound    = errors.New("domain not found")
	ErrIndustryNotFound  = errors.New("industry not found")
	ErrModuleNotFound    = errors.New("module not found")
	ErrDuplicateDomain   = errors.New("domain already exists")
	ErrDuplicateIndustry = errors.New("industry already exists in domain")
	ErrDuplicateModule   = errors.New("module already exists in industry")
	ErrInvalidComplexity = errors.New("complexity must be Low, Medium or High")
	ErrUnknownField      = errors.New("unknown module field")
)

// =============================================================================
// Complexity
// =============================================================================

// Complexity is the implementation effort class of a module.
type Complexity string

const (
	ComplexityLow    Complexity = "Low"
	ComplexityMedium Complexity = "Medium"
	ComplexityHigh   Complexity = "High"
)

// IsValid checks if the complexity is one of the known values.
func (c Complexity) IsValid() bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	default:
		return false
	}
}

// DefaultWeeks is the duration of the single setup step used when a module
// has no implementation steps of its own.
func (c Complexity) DefaultWeeks() int {
	switch c {
	case ComplexityHigh:
		return 3
	case ComplexityMedium:
		return 2
	default:
		return 1
	}
}

// =============================================================================
// Module
// =============================================================================

// ImplementationStep is one scheduled step of a module rollout.
type ImplementationStep struct {
	Step        int    `json:"step" yaml:"step"`
	Name        string `json:"name" yaml:"name"`
	Duration    int    `json:"duration" yaml:"duration"` // weeks
	Description string `json:"description" yaml:"description"`
}

// Module is a packaged capability that can be recommended for an industry.
type Module struct {
	Name                string               `json:"name" yaml:"name"`
	Description         string               `json:"description" yaml:"description"`
	Features            []string             `json:"features" yaml:"features"`
	Complexity          Complexity           `json:"complexity" yaml:"complexity"`
	SalesforceObjects   []string             `json:"salesforceObjects,omitempty" yaml:"salesforce_objects,omitempty"`
	Automations         []string             `json:"automations,omitempty" yaml:"automations,omitempty"`
	ImplementationSteps []ImplementationStep `json:"implementationSteps,omitempty" yaml:"implementation_steps,omitempty"`
	Dependencies        []string             `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Prerequisites       []string             `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
}

// HasFeature reports whether the module lists the given feature.
func (m Module) HasFeature(feature string) bool {
	for _, f := range m.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the module.
func (m Module) Clone() Module {
	c := m
	c.Features = cloneStrings(m.Features)
	c.SalesforceObjects = cloneStrings(m.SalesforceObjects)
	c.Automations = cloneStrings(m.Automations)
	c.Dependencies = cloneStrings(m.Dependencies)
	c.Prerequisites = cloneStrings(m.Prerequisites)
	if m.ImplementationSteps != nil {
		c.ImplementationSteps = append([]ImplementationStep(nil), m.ImplementationSteps...)
	}
	return c
}

// NewModule builds a module from the admin default template.
func NewModule(name string) Module {
	return Module{
		Name:              strings.TrimSpace(name),
		Description:       "Module description",
		Features:          []string{"Feature 1", "Feature 2"},
		Complexity:        ComplexityMedium,
		SalesforceObjects: []string{"Custom_Object__c"},
		Automations:       []string{"Automation 1"},
	}
}

// SplitList splits a comma-separated admin input into trimmed, non-empty items.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

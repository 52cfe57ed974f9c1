// Package plan derives the advisory output of a finished wizard: the module
// plan, aggregated recommendations, static suggestions, and the
// implementation timeline.
package plan

import (
	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/wizard"
)

// ModulePlan is a selected module with its sizing estimates.
type ModulePlan struct {
	catalog.Module
	EstimatedTimeline string `json:"estimatedTimeline"`
	TeamSize          string `json:"teamSize"`
}

// Plan is the implementation plan for a selection.
type Plan struct {
	Domain   string       `json:"domain"`
	Industry string       `json:"industry"`
	Modules  []ModulePlan `json:"modules"`
}

// Build sizes each selected module.
func Build(sel wizard.Selection) Plan {
	p := Plan{Domain: sel.Domain, Industry: sel.Industry, Modules: make([]ModulePlan, 0, len(sel.Modules))}
	for _, m := range sel.Modules {
		p.Modules = append(p.Modules, ModulePlan{
			Module:            m,
			EstimatedTimeline: EstimatedTimeline(m.Complexity),
			TeamSize:          TeamSize(m.Complexity),
		})
	}
	return p
}

// EstimatedTimeline is the rough delivery range for a module.
func EstimatedTimeline(c catalog.Complexity) string {
	switch c {
	case catalog.ComplexityHigh:
		return "4-6 weeks"
	case catalog.ComplexityMedium:
		return "2-4 weeks"
	default:
		return "1-2 weeks"
	}
}

// TeamSize is the recommended team for a module.
func TeamSize(c catalog.Complexity) string {
	if c == catalog.ComplexityHigh {
		return "3-4 people"
	}
	return "1-2 people"
}

package plan

import (
	"fmt"

	"github.com/artpar/sfadvisor/internal/core/catalog"
)

// TimelineStep is one implementation step placed on the week grid.
type TimelineStep struct {
	Step        int    `json:"step"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Module      string `json:"moduleName"`
	Complexity  string `json:"complexity"`
	Week        int    `json:"week"`
	EndWeek     int    `json:"endWeek"`
}

// DependencyStatus tells whether a module's dependency is part of the
// selection.
type DependencyStatus string

const (
	DependencySatisfied DependencyStatus = "satisfied"
	DependencyMissing   DependencyStatus = "missing"
)

// Dependency is one declared module dependency.
type Dependency struct {
	Module     string           `json:"module"`
	Dependency string           `json:"dependency"`
	Status     DependencyStatus `json:"status"`
}

// Warning flags a dependency that is not selected.
type Warning struct {
	Module            string `json:"module"`
	MissingDependency string `json:"missingDependency"`
	Severity          string `json:"severity"`
	Message           string `json:"message"`
}

// Timeline is the sequential implementation schedule.
type Timeline struct {
	Steps        []TimelineStep `json:"steps"`
	TotalWeeks   int            `json:"totalWeeks"`
	Dependencies []Dependency   `json:"dependencies"`
	Warnings     []Warning      `json:"warnings"`
}

// BuildTimeline lays the modules' implementation steps out week by week,
// with dependencies scheduled before the modules that need them.
// Modules without steps get a single default setup step sized by complexity.
func BuildTimeline(modules []catalog.Module) Timeline {
	tl := Timeline{
		Steps:        []TimelineStep{},
		Dependencies: []Dependency{},
		Warnings:     []Warning{},
	}

	week := 1
	for _, m := range SortByDependencies(modules) {
		for _, s := range stepsFor(m) {
			tl.Steps = append(tl.Steps, TimelineStep{
				Step:        s.Step,
				Name:        s.Name,
				Description: s.Description,
				Duration:    s.Duration,
				Module:      m.Name,
				Complexity:  string(m.Complexity),
				Week:        week,
				EndWeek:     week + s.Duration - 1,
			})
			week += s.Duration
		}
	}
	tl.TotalWeeks = week - 1

	tl.Dependencies, tl.Warnings = CheckDependencies(modules)
	return tl
}

func stepsFor(m catalog.Module) []catalog.ImplementationStep {
	if len(m.ImplementationSteps) > 0 {
		return m.ImplementationSteps
	}
	return []catalog.ImplementationStep{{
		Step:        1,
		Name:        m.Name + " Setup",
		Duration:    m.Complexity.DefaultWeeks(),
		Description: "Basic setup and configuration for " + m.Name,
	}}
}

// SortByDependencies orders modules so that each module's selected
// dependencies precede it, keeping input order otherwise.
//
// The sort is a depth-first walk. Dependencies that are not in the input are
// ignored, and a cycle is broken at the module where it is detected rather
// than reported.
//
// Example:
//
//	// Opportunity Management depends on Lead Management
//	SortByDependencies([]catalog.Module{opp, lead})
//	// Result: [lead, opp]
func SortByDependencies(modules []catalog.Module) []catalog.Module {
	byName := make(map[string]catalog.Module, len(modules))
	for _, m := range modules {
		byName[m.Name] = m
	}

	sorted := make([]catalog.Module, 0, len(modules))
	visited := map[string]bool{}
	visiting := map[string]bool{}

	var visit func(m catalog.Module)
	visit = func(m catalog.Module) {
		if visiting[m.Name] || visited[m.Name] {
			return
		}
		visiting[m.Name] = true
		for _, dep := range m.Dependencies {
			if d, ok := byName[dep]; ok {
				visit(d)
			}
		}
		delete(visiting, m.Name)
		visited[m.Name] = true
		sorted = append(sorted, m)
	}

	for _, m := range modules {
		visit(m)
	}
	return sorted
}

// CheckDependencies reports every declared dependency and warns about
// those that are not selected.
func CheckDependencies(modules []catalog.Module) ([]Dependency, []Warning) {
	selected := make(map[string]bool, len(modules))
	for _, m := range modules {
		selected[m.Name] = true
	}

	deps := []Dependency{}
	warnings := []Warning{}
	for _, m := range modules {
		for _, dep := range m.Dependencies {
			status := DependencySatisfied
			if !selected[dep] {
				status = DependencyMissing
				warnings = append(warnings, Warning{
					Module:            m.Name,
					MissingDependency: dep,
					Severity:          "warning",
					Message:           fmt.Sprintf("%s requires %s to be implemented first", m.Name, dep),
				})
			}
			deps = append(deps, Dependency{Module: m.Name, Dependency: dep, Status: status})
		}
	}
	return deps, warnings
}

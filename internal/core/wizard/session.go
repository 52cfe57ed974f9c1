// Package wizard implements the three-step selection wizard (domain, industry,
// modules) as a pure state machine, plus the follow-up questionnaire.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/sfadvisor/internal/core/catalog"
)

// =============================================================================
// Wizard Errors
// =============================================================================

var (
	ErrUnknownDomain     = errors.New("unknown domain")
	ErrUnknownIndustry   = errors.New("industry does not belong to the selected domain")
	ErrUnknownModule     = errors.New("module is not available for the selected industry")
	ErrWrongStep         = errors.New("action is not allowed at the current step")
	ErrNoModulesSelected = errors.New("select at least one module")
	ErrUnknownQuestion   = errors.New("unknown question")
	ErrInvalidAnswer     = errors.New("invalid answer")
)

// =============================================================================
// Steps
// =============================================================================

// Step is the wizard position.
type Step int

const (
	StepDomain   Step = 1
	StepIndustry Step = 2
	StepModules  Step = 3
	StepPlan     Step = 4
)

func (s Step) String() string {
	switch s {
	case StepDomain:
		return "domain"
	case StepIndustry:
		return "industry"
	case StepModules:
		return "modules"
	case StepPlan:
		return "plan"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// =============================================================================
// Session
// =============================================================================

// Session is one user's progress through the wizard.
type Session struct {
	ID              string            `json:"id"`
	Step            Step              `json:"step"`
	Domain          string            `json:"domain,omitempty"`
	Industry        string            `json:"industry,omitempty"`
	SelectedModules []string          `json:"selected_modules"`
	Answers         map[string]Answer `json:"answers"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewSession starts a session at the domain step.
func NewSession() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:              uuid.New().String(),
		Step:            StepDomain,
		SelectedModules: []string{},
		Answers:         map[string]Answer{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// SelectDomain chooses a domain and discards everything chosen after it.
// Allowed from any step.
func (s *Session) SelectDomain(cat catalog.Catalog, domainName string) error {
	if !cat.HasDomain(domainName) {
		return fmt.Errorf("%w: %q", ErrUnknownDomain, domainName)
	}
	s.Domain = domainName
	s.Industry = ""
	s.SelectedModules = []string{}
	s.Answers = map[string]Answer{}
	s.Step = StepIndustry
	s.touch()
	return nil
}

// SelectIndustry chooses an industry within the selected domain. Picking a
// different industry clears the module selection.
func (s *Session) SelectIndustry(cat catalog.Catalog, industry string) error {
	if s.Step < StepIndustry {
		return ErrWrongStep
	}
	if !cat.HasIndustry(s.Domain, industry) {
		return fmt.Errorf("%w: %q", ErrUnknownIndustry, industry)
	}
	if industry != s.Industry {
		s.SelectedModules = []string{}
	}
	s.Industry = industry
	s.Step = StepModules
	s.touch()
	return nil
}

// ToggleModule adds or removes a module from the selection, preserving the
// order in which modules were picked.
func (s *Session) ToggleModule(cat catalog.Catalog, name string) error {
	if s.Step != StepModules {
		return ErrWrongStep
	}
	// A selected name is always removable, even after the module left the catalog.
	for i, selected := range s.SelectedModules {
		if selected == name {
			s.SelectedModules = append(s.SelectedModules[:i:i], s.SelectedModules[i+1:]...)
			s.touch()
			return nil
		}
	}
	if _, ok := cat.FindModule(s.Domain, s.Industry, name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	s.SelectedModules = append(s.SelectedModules, name)
	s.touch()
	return nil
}

// IsSelected reports whether a module is currently selected.
func (s *Session) IsSelected(name string) bool {
	for _, selected := range s.SelectedModules {
		if selected == name {
			return true
		}
	}
	return false
}

// Back returns to the previous step. Choices are kept. At the domain step it
// does nothing.
func (s *Session) Back() {
	switch s.Step {
	case StepIndustry:
		s.Step = StepDomain
	case StepModules:
		s.Step = StepIndustry
	case StepPlan:
		s.Step = StepModules
	default:
		return
	}
	s.touch()
}

// Submit finishes module selection. Selected names missing from cat do not
// count, so a selection emptied by catalog edits is rejected.
func (s *Session) Submit(cat catalog.Catalog) error {
	if s.Step != StepModules {
		return ErrWrongStep
	}
	if len(s.Selection(cat).Modules) == 0 {
		return ErrNoModulesSelected
	}
	s.Step = StepPlan
	s.touch()
	return nil
}

// Reset clears every choice and returns to the domain step.
func (s *Session) Reset() {
	s.Step = StepDomain
	s.Domain = ""
	s.Industry = ""
	s.SelectedModules = []string{}
	s.Answers = map[string]Answer{}
	s.touch()
}

// IsSubmitted reports whether the session reached the plan step.
func (s *Session) IsSubmitted() bool {
	return s.Step == StepPlan
}

// AvailableModules lists the modules offered for the chosen domain and
// industry.
func (s *Session) AvailableModules(cat catalog.Catalog) []catalog.Module {
	return cat.ModulesFor(s.Domain, s.Industry)
}

// Selection is the resolved outcome of the wizard.
type Selection struct {
	Domain   string           `json:"domain"`
	Industry string           `json:"industry"`
	Modules  []catalog.Module `json:"modules"`
}

// ModuleNames returns the names of the selected modules.
func (sel Selection) ModuleNames() []string {
	names := make([]string, 0, len(sel.Modules))
	for _, m := range sel.Modules {
		names = append(names, m.Name)
	}
	return names
}

// Selection resolves the selected module names against the catalog. Names
// that no longer exist in the catalog are skipped.
func (s *Session) Selection(cat catalog.Catalog) Selection {
	sel := Selection{Domain: s.Domain, Industry: s.Industry, Modules: []catalog.Module{}}
	for _, name := range s.SelectedModules {
		if m, ok := cat.FindModule(s.Domain, s.Industry, name); ok {
			sel.Modules = append(sel.Modules, m)
		}
	}
	return sel
}

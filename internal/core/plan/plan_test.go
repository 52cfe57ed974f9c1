package plan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/wizard"
)

func mod(name string, c catalog.Complexity, deps ...string) catalog.Module {
	return catalog.Module{Name: name, Complexity: c, Dependencies: deps}
}

func names(modules []catalog.Module) []string {
	out := make([]string, 0, len(modules))
	for _, m := range modules {
		out = append(out, m.Name)
	}
	return out
}

// =============================================================================
// Plan Tests
// =============================================================================

func TestBuild(t *testing.T) {
	sel := wizard.Selection{
		Domain:   "Sales",
		Industry: "Technology",
		Modules: []catalog.Module{
			mod("A", catalog.ComplexityHigh),
			mod("B", catalog.ComplexityMedium),
			mod("C", catalog.ComplexityLow),
		},
	}

	p := Build(sel)
	require.Len(t, p.Modules, 3)
	assert.Equal(t, "Sales", p.Domain)
	assert.Equal(t, "4-6 weeks", p.Modules[0].EstimatedTimeline)
	assert.Equal(t, "3-4 people", p.Modules[0].TeamSize)
	assert.Equal(t, "2-4 weeks", p.Modules[1].EstimatedTimeline)
	assert.Equal(t, "1-2 people", p.Modules[1].TeamSize)
	assert.Equal(t, "1-2 weeks", p.Modules[2].EstimatedTimeline)
	assert.Equal(t, "1-2 people", p.Modules[2].TeamSize)
}

func TestRecommend(t *testing.T) {
	a := catalog.Module{Name: "A", SalesforceObjects: []string{"Lead", "Contact"}, Automations: []string{"Email Alerts"}}
	b := catalog.Module{Name: "B", SalesforceObjects: []string{"Contact", "Quote", "Contact"}, Automations: []string{"Approvals"}}

	rec := Recommend(wizard.Selection{Modules: []catalog.Module{a, b}})

	wantObjects := []Usage{
		{Name: "Lead", Modules: []string{"A"}},
		{Name: "Contact", Modules: []string{"A", "B"}},
		{Name: "Quote", Modules: []string{"B"}},
	}
	if diff := cmp.Diff(wantObjects, rec.Objects); diff != "" {
		t.Errorf("objects mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, rec.Automations, 2)
}

func TestRecommend_Empty(t *testing.T) {
	rec := Recommend(wizard.Selection{})
	assert.NotNil(t, rec.Objects)
	assert.Empty(t, rec.Objects)
}

func TestSuggest(t *testing.T) {
	s := Suggest("Real Estate")

	assert.Len(t, s.RecommendedObjects, 10)
	require.Len(t, s.CustomObjects, 2)
	assert.Equal(t, "Real_Estate_Project__c", s.CustomObjects[0].Name)
	assert.Equal(t, "Track real estate projects and deliverables", s.CustomObjects[0].Description)
	assert.Equal(t, "Real_Estate_Compliance__c", s.CustomObjects[1].Name)
	assert.Len(t, s.Automations, 3)
	assert.Equal(t, "Real Estate Lead Assignment", s.Automations[0].Name)
	assert.Len(t, s.Integrations, 2)
	assert.Len(t, s.BestPractices, 5)
	assert.Equal(t, "Create validation rules for Real Estate-specific business processes", s.BestPractices[2])
}

// =============================================================================
// Timeline Tests
// =============================================================================

func TestSortByDependencies(t *testing.T) {
	tests := []struct {
		name    string
		modules []catalog.Module
		want    []string
	}{
		{"no deps keeps order", []catalog.Module{mod("A", ""), mod("B", "")}, []string{"A", "B"}},
		{"dependency first", []catalog.Module{mod("Opp", "", "Lead"), mod("Lead", "")}, []string{"Lead", "Opp"}},
		{"chain", []catalog.Module{mod("C", "", "B"), mod("B", "", "A"), mod("A", "")}, []string{"A", "B", "C"}},
		{"missing dep ignored", []catalog.Module{mod("Opp", "", "Lead")}, []string{"Opp"}},
		{"cycle tolerated", []catalog.Module{mod("X", "", "Y"), mod("Y", "", "X")}, []string{"Y", "X"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(SortByDependencies(tt.modules)))
		})
	}
}

func TestBuildTimeline_Layout(t *testing.T) {
	lead := catalog.Module{
		Name:       "Lead",
		Complexity: catalog.ComplexityMedium,
		ImplementationSteps: []catalog.ImplementationStep{
			{Step: 1, Name: "Setup", Duration: 1},
			{Step: 2, Name: "Rules", Duration: 2},
		},
	}
	opp := mod("Opp", catalog.ComplexityHigh, "Lead")

	tl := BuildTimeline([]catalog.Module{opp, lead})

	require.Len(t, tl.Steps, 3)
	assert.Equal(t, "Lead", tl.Steps[0].Module)
	assert.Equal(t, 1, tl.Steps[0].Week)
	assert.Equal(t, 1, tl.Steps[0].EndWeek)
	assert.Equal(t, 2, tl.Steps[1].Week)
	assert.Equal(t, 3, tl.Steps[1].EndWeek)

	def := tl.Steps[2]
	assert.Equal(t, "Opp Setup", def.Name)
	assert.Equal(t, "Basic setup and configuration for Opp", def.Description)
	assert.Equal(t, 3, def.Duration)
	assert.Equal(t, 4, def.Week)
	assert.Equal(t, 6, def.EndWeek)
	assert.Equal(t, 6, tl.TotalWeeks)

	assert.Equal(t, []Dependency{{Module: "Opp", Dependency: "Lead", Status: DependencySatisfied}}, tl.Dependencies)
	assert.Empty(t, tl.Warnings)
}

func TestBuildTimeline_DefaultDurations(t *testing.T) {
	tl := BuildTimeline([]catalog.Module{mod("L", catalog.ComplexityLow), mod("M", catalog.ComplexityMedium)})
	assert.Equal(t, 1, tl.Steps[0].Duration)
	assert.Equal(t, 2, tl.Steps[1].Duration)
	assert.Equal(t, 3, tl.TotalWeeks)
}

func TestBuildTimeline_Empty(t *testing.T) {
	tl := BuildTimeline(nil)
	assert.Empty(t, tl.Steps)
	assert.Zero(t, tl.TotalWeeks)
}

func TestCheckDependencies_Missing(t *testing.T) {
	deps, warnings := CheckDependencies([]catalog.Module{mod("Property Sales Management", "", "Lead Management")})

	require.Len(t, deps, 1)
	assert.Equal(t, DependencyMissing, deps[0].Status)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Property Sales Management requires Lead Management to be implemented first", warnings[0].Message)
	assert.Equal(t, "warning", warnings[0].Severity)
}

func TestBuildTimeline_DefaultCatalog(t *testing.T) {
	cat := catalog.Default()
	lead, ok := cat.FindModule("Sales", "Technology", "Lead Management")
	require.True(t, ok)
	opp, ok := cat.FindModule("Sales", "Technology", "Opportunity Management")
	require.True(t, ok)

	tl := BuildTimeline([]catalog.Module{opp, lead})
	assert.Equal(t, "Lead Management", tl.Steps[0].Module)
	assert.Equal(t, 21, tl.TotalWeeks)
}

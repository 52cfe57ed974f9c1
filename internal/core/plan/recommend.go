package plan

import (
	"github.com/artpar/sfadvisor/internal/core/wizard"
)

// Usage is a Salesforce object or automation and the modules that need it.
type Usage struct {
	Name    string   `json:"name"`
	Modules []string `json:"modules"`
}

// Recommendations aggregates objects and automations across modules.
type Recommendations struct {
	Objects     []Usage `json:"objects"`
	Automations []Usage `json:"automations"`
}

// Recommend collects the unique Salesforce objects and automations of the
// selected modules in first-seen order.
func Recommend(sel wizard.Selection) Recommendations {
	objects := newUsageSet()
	automations := newUsageSet()
	for _, m := range sel.Modules {
		for _, o := range m.SalesforceObjects {
			objects.add(o, m.Name)
		}
		for _, a := range m.Automations {
			automations.add(a, m.Name)
		}
	}
	return Recommendations{Objects: objects.list, Automations: automations.list}
}

type usageSet struct {
	index map[string]int
	list  []Usage
}

func newUsageSet() *usageSet {
	return &usageSet{index: map[string]int{}, list: []Usage{}}
}

func (s *usageSet) add(name, module string) {
	i, ok := s.index[name]
	if !ok {
		s.index[name] = len(s.list)
		s.list = append(s.list, Usage{Name: name, Modules: []string{module}})
		return
	}
	for _, m := range s.list[i].Modules {
		if m == module {
			return
		}
	}
	s.list[i].Modules = append(s.list[i].Modules, module)
}

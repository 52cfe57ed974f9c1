package catalog

import (
	"fmt"
	"strings"
)

// =============================================================================
// Domain Edits
// =============================================================================

// AddDomain appends a new domain.
func (c Catalog) AddDomain(name string) (Catalog, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return c, ErrNameRequired
	}
	if c.HasDomain(name) {
		return c, ErrDuplicateDomain
	}
	out := c.Clone()
	out.Domains = append(out.Domains, name)
	return out, nil
}

// DeleteDomain removes a domain together with its industries and modules.
func (c Catalog) DeleteDomain(name string) (Catalog, error) {
	idx := indexOf(c.Domains, name)
	if idx < 0 {
		return c, ErrDomainNotFound
	}
	out := c.Clone()
	out.Domains = append(out.Domains[:idx], out.Domains[idx+1:]...)
	delete(out.Industries, name)
	delete(out.Modules, name)
	return out, nil
}

// =============================================================================
// Industry Edits
// =============================================================================

// AddIndustry appends an industry to a domain.
func (c Catalog) AddIndustry(domain, name string) (Catalog, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return c, ErrNameRequired
	}
	if !c.HasDomain(domain) {
		return c, ErrDomainNotFound
	}
	if c.HasIndustry(domain, name) {
		return c, ErrDuplicateIndustry
	}
	out := c.Clone()
	out.Industries[domain] = append(out.Industries[domain], name)
	return out, nil
}

// DeleteIndustry removes an industry and its modules from a domain.
func (c Catalog) DeleteIndustry(domain, name string) (Catalog, error) {
	idx := indexOf(c.Industries[domain], name)
	if idx < 0 {
		return c, ErrIndustryNotFound
	}
	out := c.Clone()
	industries := out.Industries[domain]
	out.Industries[domain] = append(industries[:idx], industries[idx+1:]...)
	if byIndustry, ok := out.Modules[domain]; ok {
		delete(byIndustry, name)
		if len(byIndustry) == 0 {
			delete(out.Modules, domain)
		}
	}
	return out, nil
}

// =============================================================================
// Module Edits
// =============================================================================

// AddModule appends a module built from the default template.
func (c Catalog) AddModule(domain, industry, name string) (Catalog, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return c, ErrNameRequired
	}
	if !c.HasIndustry(domain, industry) {
		return c, ErrIndustryNotFound
	}
	if _, exists := c.FindModule(domain, industry, name); exists {
		return c, ErrDuplicateModule
	}
	out := c.Clone()
	if out.Modules[domain] == nil {
		out.Modules[domain] = map[string][]Module{}
	}
	out.Modules[domain][industry] = append(out.Modules[domain][industry], NewModule(name))
	return out, nil
}

// UpdateModule sets a single field of the module at index.
//
// List fields (features, salesforceObjects, automations) take a
// comma-separated value.
func (c Catalog) UpdateModule(domain, industry string, index int, field, value string) (Catalog, error) {
	modules := c.ModulesFor(domain, industry)
	if index < 0 || index >= len(modules) {
		return c, ErrModuleNotFound
	}

	out := c.Clone()
	m := &out.Modules[domain][industry][index]

	switch field {
	case "name":
		name := strings.TrimSpace(value)
		if name == "" {
			return c, ErrNameRequired
		}
		for i, other := range modules {
			if i != index && other.Name == name {
				return c, ErrDuplicateModule
			}
		}
		m.Name = name
	case "description":
		m.Description = value
	case "complexity":
		cx := Complexity(strings.TrimSpace(value))
		if !cx.IsValid() {
			return c, ErrInvalidComplexity
		}
		m.Complexity = cx
	case "features":
		m.Features = SplitList(value)
	case "salesforceObjects":
		m.SalesforceObjects = SplitList(value)
	case "automations":
		m.Automations = SplitList(value)
	default:
		return c, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return out, nil
}

// DeleteModule removes the module at index.
func (c Catalog) DeleteModule(domain, industry string, index int) (Catalog, error) {
	modules := c.ModulesFor(domain, industry)
	if index < 0 || index >= len(modules) {
		return c, ErrModuleNotFound
	}
	out := c.Clone()
	list := out.Modules[domain][industry]
	out.Modules[domain][industry] = append(list[:index], list[index+1:]...)
	return out, nil
}

package metadata

import "encoding/xml"

// Selection chooses which component kinds a package deploys.
type Selection struct {
	CustomObjects   bool `json:"customObjects"`
	Flows           bool `json:"flows"`
	ValidationRules bool `json:"validationRules"`
	PermissionSets  bool `json:"permissionSets"`
}

// AllComponents selects every component kind.
func AllComponents() Selection {
	return Selection{CustomObjects: true, Flows: true, ValidationRules: true, PermissionSets: true}
}

// Includes reports whether the kind is selected.
func (s Selection) Includes(k Kind) bool {
	switch k {
	case KindCustomObject:
		return s.CustomObjects
	case KindFlow:
		return s.Flows
	case KindValidationRule:
		return s.ValidationRules
	case KindPermissionSet:
		return s.PermissionSets
	default:
		return false
	}
}

// IsEmpty reports whether no kind is selected.
func (s Selection) IsEmpty() bool {
	return !s.CustomObjects && !s.Flows && !s.ValidationRules && !s.PermissionSets
}

// Package is a generated deployment package.
type Package struct {
	APIVersion string    `json:"apiVersion"`
	Industry   string    `json:"industry"`
	Units      []Unit    `json:"units"`
	Selection  Selection `json:"selection"`
}

// Filter returns a copy of the package restricted to the selected kinds.
func (p Package) Filter(sel Selection) Package {
	p.Selection = sel
	return p
}

// CustomObjects returns the selected custom objects in module order.
func (p Package) CustomObjects() []CustomObject {
	if !p.Selection.CustomObjects {
		return nil
	}
	out := make([]CustomObject, 0, len(p.Units))
	for _, u := range p.Units {
		out = append(out, u.Object)
	}
	return out
}

// Flows returns the selected flows in module order.
func (p Package) Flows() []Flow {
	if !p.Selection.Flows {
		return nil
	}
	out := make([]Flow, 0, len(p.Units))
	for _, u := range p.Units {
		out = append(out, u.Flow)
	}
	return out
}

// ValidationRules returns the selected validation rules in module order.
func (p Package) ValidationRules() []ValidationRule {
	if !p.Selection.ValidationRules {
		return nil
	}
	var out []ValidationRule
	for _, u := range p.Units {
		out = append(out, u.ValidationRules...)
	}
	return out
}

// PermissionSets returns the selected permission sets in module order.
func (p Package) PermissionSets() []PermissionSet {
	if !p.Selection.PermissionSets {
		return nil
	}
	out := make([]PermissionSet, 0, len(p.Units))
	for _, u := range p.Units {
		out = append(out, u.PermissionSet)
	}
	return out
}

// Components lists the selected components grouped by kind in deployment
// order: objects, flows, validation rules, permission sets.
func (p Package) Components() []ComponentRef {
	var out []ComponentRef
	for _, o := range p.CustomObjects() {
		out = append(out, ComponentRef{Kind: KindCustomObject, FullName: o.FullName})
	}
	for _, f := range p.Flows() {
		out = append(out, ComponentRef{Kind: KindFlow, FullName: f.FullName})
	}
	for _, r := range p.ValidationRules() {
		out = append(out, ComponentRef{Kind: KindValidationRule, FullName: r.FullName})
	}
	for _, ps := range p.PermissionSets() {
		out = append(out, ComponentRef{Kind: KindPermissionSet, FullName: ps.FullName})
	}
	return out
}

// Counts returns the number of selected components per kind.
func (p Package) Counts() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for _, c := range p.Components() {
		counts[c.Kind]++
	}
	return counts
}

// ManifestType is one <types> entry of a package manifest.
type ManifestType struct {
	Members []string `json:"members" xml:"members"`
	Name    Kind     `json:"name" xml:"name"`
}

// Manifest is the package.xml descriptor.
type Manifest struct {
	XMLName xml.Name       `json:"-" xml:"http://soap.sforce.com/2006/04/metadata Package"`
	Types   []ManifestType `json:"types" xml:"types"`
	Version string         `json:"version" xml:"version"`
}

// Manifest builds the package manifest from the selected components. Kinds
// with no members are omitted.
func (p Package) Manifest() Manifest {
	members := make(map[Kind][]string, len(Kinds))
	for _, c := range p.Components() {
		members[c.Kind] = append(members[c.Kind], c.FullName)
	}
	m := Manifest{Version: p.APIVersion, Types: []ManifestType{}}
	for _, k := range Kinds {
		if len(members[k]) == 0 {
			continue
		}
		m.Types = append(m.Types, ManifestType{Name: k, Members: members[k]})
	}
	return m
}

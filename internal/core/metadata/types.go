package metadata

import (
	"encoding/xml"
	"regexp"
)

// Namespace is the Salesforce metadata XML namespace.
const Namespace = "http://soap.sforce.com/2006/04/metadata"

// DefaultAPIVersion is used when no org API version is known.
const DefaultAPIVersion = "58.0"

var apiVersionPattern = regexp.MustCompile(`^[1-9][0-9]*\.0$`)

// ValidAPIVersion reports whether v looks like a metadata API version ("58.0").
func ValidAPIVersion(v string) bool {
	return apiVersionPattern.MatchString(v)
}

// =============================================================================
// Component Kinds
// =============================================================================

// Kind identifies a metadata component type.
type Kind string

const (
	KindCustomObject   Kind = "CustomObject"
	KindFlow           Kind = "Flow"
	KindValidationRule Kind = "ValidationRule"
	KindPermissionSet  Kind = "PermissionSet"
)

// Kinds lists component kinds in deployment order.
var Kinds = []Kind{KindCustomObject, KindFlow, KindValidationRule, KindPermissionSet}

// ComponentRef names a single deployable component.
type ComponentRef struct {
	Kind     Kind   `json:"kind"`
	FullName string `json:"fullName"`
}

// =============================================================================
// Fields
// =============================================================================

type FieldType string

const (
	FieldPicklist FieldType = "Picklist"
	FieldDate     FieldType = "Date"
	FieldCurrency FieldType = "Currency"
	FieldText     FieldType = "Text"
	FieldCheckbox FieldType = "Checkbox"
	FieldNumber   FieldType = "Number"
)

// PicklistValue is one entry of a picklist value set.
type PicklistValue struct {
	FullName string `json:"fullName" xml:"fullName"`
	Default  bool   `json:"default,omitempty" xml:"default"`
	Label    string `json:"-" xml:"label"`
}

type ValueSetDefinition struct {
	Values []PicklistValue `json:"value" xml:"value"`
}

type ValueSet struct {
	Definition ValueSetDefinition `json:"valueSetDefinition" xml:"valueSetDefinition"`
}

// Field is a custom field on a generated object.
type Field struct {
	FullName     string    `json:"fullName" xml:"fullName"`
	Label        string    `json:"label" xml:"label"`
	Type         FieldType `json:"type" xml:"type"`
	Required     bool      `json:"required,omitempty" xml:"required,omitempty"`
	Unique       bool      `json:"unique,omitempty" xml:"unique,omitempty"`
	Length       int       `json:"length,omitempty" xml:"length,omitempty"`
	Precision    int       `json:"precision,omitempty" xml:"precision,omitempty"`
	Scale        *int      `json:"scale,omitempty" xml:"scale,omitempty"`
	DefaultValue string    `json:"defaultValue,omitempty" xml:"defaultValue,omitempty"`
	ValueSet     *ValueSet `json:"valueSet,omitempty" xml:"valueSet,omitempty"`
}

// =============================================================================
// Custom Object
// =============================================================================

type NameField struct {
	DisplayFormat  string `json:"displayFormat" xml:"displayFormat"`
	Label          string `json:"label" xml:"label"`
	Type           string `json:"type" xml:"type"`
	StartingNumber int    `json:"startingNumber" xml:"startingNumber"`
}

// CustomObject describes a generated custom object and its fields.
type CustomObject struct {
	XMLName          xml.Name  `json:"-" xml:"http://soap.sforce.com/2006/04/metadata CustomObject"`
	FullName         string    `json:"fullName" xml:"fullName"`
	Label            string    `json:"label" xml:"label"`
	PluralLabel      string    `json:"pluralLabel" xml:"pluralLabel"`
	NameField        NameField `json:"nameField" xml:"nameField"`
	DeploymentStatus string    `json:"deploymentStatus" xml:"deploymentStatus"`
	SharingModel     string    `json:"sharingModel" xml:"sharingModel"`
	Visibility       string    `json:"visibility" xml:"visibility"`
	Fields           []Field   `json:"fields" xml:"fields"`
}

// HasField reports whether the object defines the named field.
func (o CustomObject) HasField(fullName string) bool {
	for _, f := range o.Fields {
		if f.FullName == fullName {
			return true
		}
	}
	return false
}

// =============================================================================
// Flow
// =============================================================================

type FlowConnector struct {
	TargetReference string `json:"targetReference" xml:"targetReference"`
}

type FlowValue struct {
	StringValue string `json:"stringValue" xml:"stringValue"`
}

type FlowStart struct {
	LocationX int           `json:"locationX" xml:"locationX"`
	LocationY int           `json:"locationY" xml:"locationY"`
	Connector FlowConnector `json:"connector" xml:"connector"`
}

type FlowCondition struct {
	LeftValueReference string    `json:"leftValueReference" xml:"leftValueReference"`
	Operator           string    `json:"operator" xml:"operator"`
	RightValue         FlowValue `json:"rightValue" xml:"rightValue"`
}

type FlowRule struct {
	Name           string          `json:"name" xml:"name"`
	ConditionLogic string          `json:"conditionLogic" xml:"conditionLogic"`
	Conditions     []FlowCondition `json:"conditions" xml:"conditions"`
	Connector      FlowConnector   `json:"connector" xml:"connector"`
}

type FlowDecision struct {
	Name      string     `json:"name" xml:"name"`
	Label     string     `json:"label" xml:"label"`
	LocationX int        `json:"locationX" xml:"locationX"`
	LocationY int        `json:"locationY" xml:"locationY"`
	Rules     []FlowRule `json:"rules" xml:"rules"`
}

type FlowAssignmentItem struct {
	AssignToReference string    `json:"assignToReference" xml:"assignToReference"`
	Operator          string    `json:"operator" xml:"operator"`
	Value             FlowValue `json:"value" xml:"value"`
}

type FlowAssignment struct {
	Name            string               `json:"name" xml:"name"`
	Label           string               `json:"label" xml:"label"`
	LocationX       int                  `json:"locationX" xml:"locationX"`
	LocationY       int                  `json:"locationY" xml:"locationY"`
	AssignmentItems []FlowAssignmentItem `json:"assignmentItems" xml:"assignmentItems"`
}

// Flow describes a generated auto-launched flow.
type Flow struct {
	XMLName     xml.Name         `json:"-" xml:"http://soap.sforce.com/2006/04/metadata Flow"`
	FullName    string           `json:"fullName" xml:"fullName"`
	Label       string           `json:"label" xml:"label"`
	ProcessType string           `json:"processType" xml:"processType"`
	Status      string           `json:"status" xml:"status"`
	Start       FlowStart        `json:"start" xml:"start"`
	Decisions   []FlowDecision   `json:"decisions" xml:"decisions"`
	Assignments []FlowAssignment `json:"assignments" xml:"assignments"`
}

// =============================================================================
// Validation Rule
// =============================================================================

// ValidationRule describes a generated object validation rule.
// FullName is "<Object>.<Rule>".
type ValidationRule struct {
	XMLName               xml.Name `json:"-" xml:"http://soap.sforce.com/2006/04/metadata ValidationRule"`
	FullName              string   `json:"fullName" xml:"fullName"`
	Active                bool     `json:"active" xml:"active"`
	ErrorConditionFormula string   `json:"errorConditionFormula" xml:"errorConditionFormula"`
	ErrorMessage          string   `json:"errorMessage" xml:"errorMessage"`
	ErrorDisplayField     string   `json:"errorDisplayField" xml:"errorDisplayField"`
}

// =============================================================================
// Permission Set
// =============================================================================

type ObjectPermission struct {
	Object           string `json:"object" xml:"object"`
	AllowCreate      bool   `json:"allowCreate" xml:"allowCreate"`
	AllowDelete      bool   `json:"allowDelete" xml:"allowDelete"`
	AllowEdit        bool   `json:"allowEdit" xml:"allowEdit"`
	AllowRead        bool   `json:"allowRead" xml:"allowRead"`
	ModifyAllRecords bool   `json:"modifyAllRecords" xml:"modifyAllRecords"`
	ViewAllRecords   bool   `json:"viewAllRecords" xml:"viewAllRecords"`
}

type FieldPermission struct {
	Field    string `json:"field" xml:"field"`
	Editable bool   `json:"editable" xml:"editable"`
	Readable bool   `json:"readable" xml:"readable"`
}

// PermissionSet grants access to a generated object and its fields.
type PermissionSet struct {
	XMLName           xml.Name           `json:"-" xml:"http://soap.sforce.com/2006/04/metadata PermissionSet"`
	FullName          string             `json:"fullName" xml:"-"`
	Label             string             `json:"label" xml:"label"`
	Description       string             `json:"description" xml:"description"`
	ObjectPermissions []ObjectPermission `json:"objectPermissions" xml:"objectPermissions"`
	FieldPermissions  []FieldPermission  `json:"fieldPermissions" xml:"fieldPermissions"`
}

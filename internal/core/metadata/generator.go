package metadata

import (
	"github.com/artpar/sfadvisor/internal/core/catalog"
)

// Feature names that drive field generation.
const (
	FeatureStatusTracking     = "Status Tracking"
	FeaturePriorityManagement = "Priority Management"
	FeatureDateTracking       = "Date Tracking"
	FeatureAmountTracking     = "Amount Tracking"
)

// Industries with dedicated fields and rules.
const (
	IndustryHealthcare        = "Healthcare"
	IndustryFinancialServices = "Financial Services"
	IndustryRealEstate        = "Real Estate"
)

// Generator synthesizes metadata for catalog modules.
type Generator struct {
	APIVersion string
}

// NewGenerator returns a generator for the given API version.
// An empty version falls back to DefaultAPIVersion.
func NewGenerator(apiVersion string) Generator {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return Generator{APIVersion: apiVersion}
}

// =============================================================================
// Custom Object
// =============================================================================

// CustomObject builds the custom object for a module.
func (g Generator) CustomObject(m catalog.Module, industry string) CustomObject {
	label := industry + " " + m.Name
	return CustomObject{
		FullName:    ObjectName(industry, m.Name),
		Label:       label,
		PluralLabel: label + "s",
		NameField: NameField{
			DisplayFormat:  industry + "-{0000}",
			Label:          label + " Name",
			Type:           "AutoNumber",
			StartingNumber: 1,
		},
		DeploymentStatus: "InDevelopment",
		SharingModel:     "ReadWrite",
		Visibility:       "Public",
		Fields:           g.Fields(m, industry),
	}
}

// Fields returns the custom fields for a module. Feature-driven fields come
// first, followed by industry fields.
func (g Generator) Fields(m catalog.Module, industry string) []Field {
	fields := []Field{}

	if m.HasFeature(FeatureStatusTracking) {
		fields = append(fields, Field{
			FullName: "Status__c",
			Label:    "Status",
			Type:     FieldPicklist,
			Required: true,
			ValueSet: picklist("New", "New", "In Progress", "Completed", "Cancelled"),
		})
	}

	if m.HasFeature(FeaturePriorityManagement) {
		fields = append(fields, Field{
			FullName: "Priority__c",
			Label:    "Priority",
			Type:     FieldPicklist,
			ValueSet: picklist("Medium", "Low", "Medium", "High", "Critical"),
		})
	}

	if m.HasFeature(FeatureDateTracking) {
		fields = append(fields,
			Field{FullName: "Start_Date__c", Label: "Start Date", Type: FieldDate},
			Field{FullName: "End_Date__c", Label: "End Date", Type: FieldDate},
		)
	}

	if m.HasFeature(FeatureAmountTracking) {
		fields = append(fields, currency("Amount__c", "Amount"))
	}

	switch industry {
	case IndustryHealthcare:
		fields = append(fields,
			Field{FullName: "Patient_ID__c", Label: "Patient ID", Type: FieldText, Length: 50, Unique: true},
			Field{FullName: "HIPAA_Compliant__c", Label: "HIPAA Compliant", Type: FieldCheckbox, DefaultValue: "true"},
		)
	case IndustryFinancialServices:
		fields = append(fields,
			Field{FullName: "Account_Number__c", Label: "Account Number", Type: FieldText, Length: 50, Unique: true},
			Field{FullName: "Risk_Level__c", Label: "Risk Level", Type: FieldPicklist,
				ValueSet: picklist("", "Low", "Medium", "High")},
		)
	case IndustryRealEstate:
		fields = append(fields,
			Field{FullName: "Property_Type__c", Label: "Property Type", Type: FieldPicklist, Required: true,
				ValueSet: picklist("", "Residential", "Commercial", "Industrial", "Land", "Mixed Use")},
			Field{FullName: "Property_Address__c", Label: "Property Address", Type: FieldText, Length: 255, Required: true},
			currency("Property_Value__c", "Property Value"),
			number("Square_Footage__c", "Square Footage", 10, 0),
			number("Bedrooms__c", "Bedrooms", 2, 0),
			number("Bathrooms__c", "Bathrooms", 3, 1),
			number("Year_Built__c", "Year Built", 4, 0),
			Field{FullName: "Listing_Status__c", Label: "Listing Status", Type: FieldPicklist,
				ValueSet: picklist("", "Active", "Pending", "Sold", "Withdrawn", "Coming Soon")},
		)
	}

	return fields
}

func picklist(defaultValue string, values ...string) *ValueSet {
	vs := &ValueSet{}
	for _, v := range values {
		vs.Definition.Values = append(vs.Definition.Values, PicklistValue{
			FullName: v,
			Default:  v == defaultValue,
			Label:    v,
		})
	}
	return vs
}

func currency(name, label string) Field {
	scale := 2
	return Field{FullName: name, Label: label, Type: FieldCurrency, Precision: 18, Scale: &scale}
}

func number(name, label string, precision, scale int) Field {
	return Field{FullName: name, Label: label, Type: FieldNumber, Precision: precision, Scale: &scale}
}

// =============================================================================
// Flow
// =============================================================================

// Flow builds the record-triggered starter flow for a module. It checks for
// new records and assigns a default priority.
func (g Generator) Flow(m catalog.Module, industry string) Flow {
	return Flow{
		FullName:    APIName(industry, m.Name) + "_Flow",
		Label:       industry + " " + m.Name + " Flow",
		ProcessType: "AutoLaunchedFlow",
		Status:      "Draft",
		Start: FlowStart{
			LocationX: 50,
			LocationY: 0,
			Connector: FlowConnector{TargetReference: "Decision1"},
		},
		Decisions: []FlowDecision{{
			Name:      "Decision1",
			Label:     "Check Status",
			LocationX: 50,
			LocationY: 100,
			Rules: []FlowRule{{
				Name:           "Rule1",
				ConditionLogic: "and",
				Conditions: []FlowCondition{{
					LeftValueReference: "$Record.Status__c",
					Operator:           "EqualTo",
					RightValue:         FlowValue{StringValue: "New"},
				}},
				Connector: FlowConnector{TargetReference: "Assignment1"},
			}},
		}},
		Assignments: []FlowAssignment{{
			Name:      "Assignment1",
			Label:     "Set Priority",
			LocationX: 50,
			LocationY: 200,
			AssignmentItems: []FlowAssignmentItem{{
				AssignToReference: "$Record.Priority__c",
				Operator:          "Assign",
				Value:             FlowValue{StringValue: "Medium"},
			}},
		}},
	}
}

// =============================================================================
// Validation Rules
// =============================================================================

// ValidationRules returns the rules for a module. A rule is only emitted when
// every field its formula references is generated for the object.
func (g Generator) ValidationRules(m catalog.Module, industry string) []ValidationRule {
	obj := g.CustomObject(m, industry)
	rules := []ValidationRule{}
	add := func(name, formula, message, field string) {
		rules = append(rules, ValidationRule{
			FullName:              obj.FullName + "." + name,
			Active:                true,
			ErrorConditionFormula: formula,
			ErrorMessage:          message,
			ErrorDisplayField:     field,
		})
	}

	if obj.HasField("Start_Date__c") && obj.HasField("End_Date__c") {
		add("End_Date_After_Start_Date", "End_Date__c < Start_Date__c",
			"End Date must be after Start Date", "End_Date__c")
	}
	if obj.HasField("Amount__c") {
		add("Amount_Positive", "Amount__c <= 0",
			"Amount must be greater than zero", "Amount__c")
	}

	switch industry {
	case IndustryHealthcare:
		add("Patient_ID_Required", "ISBLANK(Patient_ID__c)",
			"Patient ID is required for healthcare records", "Patient_ID__c")
	case IndustryRealEstate:
		add("Property_Address_Required", "ISBLANK(Property_Address__c)",
			"Property Address is required for real estate records", "Property_Address__c")
		add("Property_Value_Positive", "Property_Value__c <= 0",
			"Property Value must be greater than zero", "Property_Value__c")
		add("Year_Built_Valid", "Year_Built__c < 1800 || Year_Built__c > YEAR(TODAY())",
			"Year Built must be between 1800 and current year", "Year_Built__c")
		add("Square_Footage_Positive", "Square_Footage__c <= 0",
			"Square Footage must be greater than zero", "Square_Footage__c")
	}

	return rules
}

// =============================================================================
// Permission Set
// =============================================================================

// PermissionSet grants full record access (without modify-all) on the module
// object and edit access on each of its generated fields.
func (g Generator) PermissionSet(m catalog.Module, industry string) PermissionSet {
	obj := g.CustomObject(m, industry)
	label := industry + " " + m.Name

	fieldPerms := make([]FieldPermission, 0, len(obj.Fields))
	for _, f := range obj.Fields {
		fieldPerms = append(fieldPerms, FieldPermission{
			Field:    obj.FullName + "." + f.FullName,
			Editable: true,
			Readable: true,
		})
	}

	return PermissionSet{
		FullName:    APIName(industry, m.Name) + "_Permissions",
		Label:       label + " Permissions",
		Description: "Permission set for " + label + " functionality",
		ObjectPermissions: []ObjectPermission{{
			Object:         obj.FullName,
			AllowCreate:    true,
			AllowDelete:    true,
			AllowEdit:      true,
			AllowRead:      true,
			ViewAllRecords: true,
		}},
		FieldPermissions: fieldPerms,
	}
}

// =============================================================================
// Package
// =============================================================================

// Unit groups everything generated for a single module.
type Unit struct {
	Module          string           `json:"module"`
	Object          CustomObject     `json:"customObject"`
	Flow            Flow             `json:"flow"`
	ValidationRules []ValidationRule `json:"validationRules"`
	PermissionSet   PermissionSet    `json:"permissionSet"`
}

// Unit generates the full set of components for one module.
func (g Generator) Unit(m catalog.Module, industry string) Unit {
	return Unit{
		Module:          m.Name,
		Object:          g.CustomObject(m, industry),
		Flow:            g.Flow(m, industry),
		ValidationRules: g.ValidationRules(m, industry),
		PermissionSet:   g.PermissionSet(m, industry),
	}
}

// Package generates a deployment package for the given modules. The package
// includes every component kind until narrowed with Package.Filter.
func (g Generator) Package(modules []catalog.Module, industry string) Package {
	units := make([]Unit, 0, len(modules))
	for _, m := range modules {
		units = append(units, g.Unit(m, industry))
	}
	return Package{
		APIVersion: g.APIVersion,
		Industry:   industry,
		Units:      units,
		Selection:  AllComponents(),
	}
}

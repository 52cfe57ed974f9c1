package plan

import (
	"strings"

	"github.com/artpar/sfadvisor/internal/core/metadata"
)

// SuggestedObject is a proposed industry custom object.
type SuggestedObject struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Fields      []string `json:"fields"`
}

// Automation is a proposed automation.
type Automation struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Trigger     string   `json:"trigger"`
	Actions     []string `json:"actions"`
}

// Integration is a proposed integration.
type Integration struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Objects     []string `json:"objects"`
	Frequency   string   `json:"frequency"`
}

// Suggestions is the static advisory content for an industry.
type Suggestions struct {
	RecommendedObjects []string          `json:"recommendedObjects"`
	CustomObjects      []SuggestedObject `json:"customObjects"`
	Automations        []Automation      `json:"automationRecommendations"`
	Integrations       []Integration     `json:"integrationRecommendations"`
	BestPractices      []string          `json:"bestPractices"`
}

// Suggest returns templated suggestions for an industry. The content is
// fixed; only names and wording vary with the industry.
func Suggest(industry string) Suggestions {
	lower := strings.ToLower(industry)
	prefix := metadata.APIName(industry)

	return Suggestions{
		RecommendedObjects: []string{
			"Account", "Contact", "Lead", "Opportunity", "Case",
			"Product2", "PricebookEntry", "Quote", "Contract", "Campaign",
		},
		CustomObjects: []SuggestedObject{
			{
				Name:        prefix + "_Project__c",
				Description: "Track " + lower + " projects and deliverables",
				Fields:      []string{"Project_Name__c", "Start_Date__c", "End_Date__c", "Status__c", "Budget__c"},
			},
			{
				Name:        prefix + "_Compliance__c",
				Description: "Manage " + lower + " compliance requirements",
				Fields:      []string{"Compliance_Type__c", "Due_Date__c", "Status__c", "Approved_By__c", "Notes__c"},
			},
		},
		Automations: []Automation{
			{
				Type:        "Process Builder",
				Name:        industry + " Lead Assignment",
				Description: "Automatically assign leads based on industry and geography",
				Trigger:     "Lead creation or update",
				Actions:     []string{"Update Lead Owner", "Send Email Notification", "Create Task"},
			},
			{
				Type:        "Flow",
				Name:        industry + " Opportunity Management",
				Description: "Streamline opportunity management for industry-specific requirements",
				Trigger:     "Opportunity stage change",
				Actions:     []string{"Update Account Fields", "Create Follow-up Tasks", "Send Approval Request"},
			},
			{
				Type:        "Workflow Rules",
				Name:        industry + " Case Escalation",
				Description: "Automatically escalate cases based on priority and industry",
				Trigger:     "Case creation or update",
				Actions:     []string{"Send Email Alert", "Update Case Owner", "Create Escalation Task"},
			},
		},
		Integrations: []Integration{
			{
				Name:        industry + " ERP Integration",
				Description: "Integrate with existing ERP system for data synchronization",
				Type:        "REST API",
				Objects:     []string{"Account", "Product2", "Order"},
				Frequency:   "Real-time",
			},
			{
				Name:        industry + " Marketing Automation",
				Description: "Connect with marketing automation platform",
				Type:        "Webhook",
				Objects:     []string{"Lead", "Campaign", "CampaignMember"},
				Frequency:   "Real-time",
			},
		},
		BestPractices: []string{
			"Implement data governance policies specific to " + industry + " compliance requirements",
			"Set up field-level security for sensitive " + industry + " data",
			"Create validation rules for " + industry + "-specific business processes",
			"Establish naming conventions for " + industry + " custom objects and fields",
			"Implement audit trail for " + industry + " regulatory compliance",
		},
	}
}

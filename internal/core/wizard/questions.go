package wizard

import (
	"fmt"
	"strings"
)

// =============================================================================
// Questions
// =============================================================================

// QuestionType selects how a question is answered.
type QuestionType string

const (
	SingleChoice   QuestionType = "single-choice"
	MultipleChoice QuestionType = "multiple-choice"
	TextQuestion   QuestionType = "text"
	ScaleQuestion  QuestionType = "scale"
)

// Scale bounds for scale questions.
const (
	ScaleMin     = 1
	ScaleMax     = 10
	ScaleDefault = 5
)

// Option is one answer choice.
type Option struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Question is a follow-up question refining the recommendations.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Question      string       `json:"question"`
	Description   string       `json:"description,omitempty"`
	Placeholder   string       `json:"placeholder,omitempty"`
	Options       []Option     `json:"options,omitempty"`
	ScaleMinLabel string       `json:"scale_min_label,omitempty"`
	ScaleMaxLabel string       `json:"scale_max_label,omitempty"`
}

// HasOption reports whether value is one of the question's options.
func (q Question) HasOption(value string) bool {
	for _, o := range q.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Answer holds a response. Which field is used depends on the question type.
type Answer struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
	Scale  int      `json:"scale,omitempty"`
}

// IsEmpty reports whether the answer carries no response.
func (a Answer) IsEmpty() bool {
	return strings.TrimSpace(a.Value) == "" && len(a.Values) == 0 && a.Scale == 0
}

// ValidateAnswer checks an answer against its question.
func ValidateAnswer(q Question, a Answer) error {
	switch q.Type {
	case SingleChoice:
		if !q.HasOption(a.Value) {
			return fmt.Errorf("%w: %q is not an option of %s", ErrInvalidAnswer, a.Value, q.ID)
		}
	case MultipleChoice:
		if len(a.Values) == 0 {
			return fmt.Errorf("%w: %s needs at least one option", ErrInvalidAnswer, q.ID)
		}
		for _, v := range a.Values {
			if !q.HasOption(v) {
				return fmt.Errorf("%w: %q is not an option of %s", ErrInvalidAnswer, v, q.ID)
			}
		}
	case TextQuestion:
		if strings.TrimSpace(a.Value) == "" {
			return fmt.Errorf("%w: %s needs text", ErrInvalidAnswer, q.ID)
		}
	case ScaleQuestion:
		if a.Scale < ScaleMin || a.Scale > ScaleMax {
			return fmt.Errorf("%w: %s must be between %d and %d", ErrInvalidAnswer, q.ID, ScaleMin, ScaleMax)
		}
	default:
		return fmt.Errorf("%w: unsupported question type %q", ErrInvalidAnswer, q.Type)
	}
	return nil
}

// FindQuestion looks up a question by ID.
func FindQuestion(questions []Question, id string) (Question, bool) {
	for _, q := range questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Answer validates and stores an answer for one of the session's questions.
func (s *Session) Answer(id string, a Answer) error {
	q, ok := FindQuestion(QuestionsFor(s.Domain, s.Industry), id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuestion, id)
	}
	if err := ValidateAnswer(q, a); err != nil {
		return err
	}
	if s.Answers == nil {
		s.Answers = map[string]Answer{}
	}
	s.Answers[id] = a
	s.touch()
	return nil
}

// Progress counts answered questions.
func Progress(questions []Question, answers map[string]Answer) (answered, total int) {
	for _, q := range questions {
		if a, ok := answers[q.ID]; ok && !a.IsEmpty() {
			answered++
		}
	}
	return answered, len(questions)
}

// =============================================================================
// Question Catalog
// =============================================================================

// QuestionsFor returns the questionnaire for a domain and industry: common
// questions, then domain and industry questions, then the closing questions.
func QuestionsFor(domainName, industry string) []Question {
	qs := append([]Question{}, commonQuestions...)
	qs = append(qs, domainQuestions[domainName]...)
	qs = append(qs, industryQuestions[industry]...)
	qs = append(qs, closingQuestions...)
	return qs
}

var commonQuestions = []Question{
	{
		ID:          "team_size",
		Type:        SingleChoice,
		Question:    "What is your current team size?",
		Description: "This helps us recommend appropriate module complexity and resource requirements.",
		Options: []Option{
			{"1-5", "1-5 people", "Small team"},
			{"6-20", "6-20 people", "Medium team"},
			{"21-50", "21-50 people", "Large team"},
			{"50+", "50+ people", "Enterprise team"},
		},
	},
	{
		ID:          "budget_range",
		Type:        SingleChoice,
		Question:    "What is your estimated budget for this implementation?",
		Description: "Budget considerations help us prioritize modules and suggest cost-effective solutions.",
		Options: []Option{
			{"low", "Under $10,000", "Basic implementation"},
			{"medium", "$10,000 - $50,000", "Standard implementation"},
			{"high", "$50,000 - $100,000", "Advanced implementation"},
			{"enterprise", "Over $100,000", "Enterprise implementation"},
		},
	},
	{
		ID:          "timeline",
		Type:        SingleChoice,
		Question:    "What is your preferred implementation timeline?",
		Description: "Timeline preferences help us sequence modules and suggest phased approaches.",
		Options: []Option{
			{"urgent", "1-3 months", "Urgent implementation"},
			{"standard", "3-6 months", "Standard timeline"},
			{"flexible", "6-12 months", "Flexible timeline"},
			{"long-term", "12+ months", "Long-term implementation"},
		},
	},
}

var domainQuestions = map[string][]Question{
	"Sales": {
		{
			ID:       "sales_process",
			Type:     SingleChoice,
			Question: "How would you describe your current sales process?",
			Options: []Option{
				{"informal", "Informal", "No formal process"},
				{"basic", "Basic", "Some structure"},
				{"structured", "Structured", "Well-defined process"},
				{"advanced", "Advanced", "Highly optimized process"},
			},
		},
		{
			ID:       "sales_tools",
			Type:     MultipleChoice,
			Question: "What sales tools do you currently use?",
			Options: []Option{
				{Value: "spreadsheet", Label: "Spreadsheets (Excel, Google Sheets)"},
				{Value: "crm_basic", Label: "Basic CRM"},
				{Value: "crm_advanced", Label: "Advanced CRM"},
				{Value: "email_tools", Label: "Email marketing tools"},
				{Value: "phone_systems", Label: "Phone systems"},
				{Value: "none", Label: "None"},
			},
		},
	},
	"Marketing": {
		{
			ID:       "marketing_channels",
			Type:     MultipleChoice,
			Question: "Which marketing channels do you currently use?",
			Options: []Option{
				{Value: "email", Label: "Email Marketing"},
				{Value: "social", Label: "Social Media"},
				{Value: "content", Label: "Content Marketing"},
				{Value: "paid_ads", Label: "Paid Advertising"},
				{Value: "events", Label: "Events & Trade Shows"},
				{Value: "seo", Label: "SEO"},
				{Value: "referral", Label: "Referral Programs"},
			},
		},
	},
	"Service": {
		{
			ID:       "support_channels",
			Type:     MultipleChoice,
			Question: "What customer support channels do you provide?",
			Options: []Option{
				{Value: "email", Label: "Email Support"},
				{Value: "phone", Label: "Phone Support"},
				{Value: "chat", Label: "Live Chat"},
				{Value: "portal", Label: "Self-Service Portal"},
				{Value: "social", Label: "Social Media"},
				{Value: "ticket", Label: "Ticket System"},
			},
		},
	},
}

var industryQuestions = map[string][]Question{
	"Real Estate": {
		{
			ID:       "property_types",
			Type:     MultipleChoice,
			Question: "What types of properties do you work with?",
			Options: []Option{
				{Value: "residential", Label: "Residential"},
				{Value: "commercial", Label: "Commercial"},
				{Value: "industrial", Label: "Industrial"},
				{Value: "land", Label: "Land"},
				{Value: "rental", Label: "Rental Properties"},
			},
		},
		{
			ID:          "mls_integration",
			Type:        SingleChoice,
			Question:    "Do you need MLS integration?",
			Description: "MLS (Multiple Listing Service) integration for property data.",
			Options: []Option{
				{Value: "yes", Label: "Yes, we need MLS integration"},
				{Value: "maybe", Label: "Maybe in the future"},
				{Value: "no", Label: "No, not needed"},
			},
		},
	},
	"Healthcare": {
		{
			ID:          "hipaa_compliance",
			Type:        SingleChoice,
			Question:    "Do you need HIPAA compliance features?",
			Description: "Healthcare organizations may need HIPAA-compliant solutions.",
			Options: []Option{
				{Value: "required", Label: "Required"},
				{Value: "preferred", Label: "Preferred"},
				{Value: "not_needed", Label: "Not needed"},
			},
		},
	},
	"Financial Services": {
		{
			ID:       "compliance_requirements",
			Type:     MultipleChoice,
			Question: "What compliance requirements do you have?",
			Options: []Option{
				{Value: "sox", Label: "SOX Compliance"},
				{Value: "gdpr", Label: "GDPR Compliance"},
				{Value: "pci", Label: "PCI DSS"},
				{Value: "finra", Label: "FINRA"},
				{Value: "other", Label: "Other"},
			},
		},
	},
}

var closingQuestions = []Question{
	{
		ID:          "integration_needs",
		Type:        TextQuestion,
		Question:    "Are there any specific systems you need to integrate with?",
		Description: "Please list any existing systems, databases, or third-party applications you need to connect.",
		Placeholder: "e.g., QuickBooks, Mailchimp, HubSpot, custom databases...",
	},
	{
		ID:          "success_metrics",
		Type:        TextQuestion,
		Question:    "How will you measure success for this implementation?",
		Description: "What KPIs or metrics are most important to your organization?",
		Placeholder: "e.g., Increase lead conversion by 25%, Reduce support response time to under 2 hours...",
	},
	{
		ID:            "priority_level",
		Type:          ScaleQuestion,
		Question:      "How would you rate the priority of this implementation?",
		Description:   "Rate from 1 (low priority) to 10 (critical priority).",
		ScaleMinLabel: "Low Priority",
		ScaleMaxLabel: "Critical Priority",
	},
}

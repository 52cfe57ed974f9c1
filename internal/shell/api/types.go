package api

import (
	"time"

	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/core/metadata"
	"github.com/artpar/sfadvisor/internal/core/plan"
	"github.com/artpar/sfadvisor/internal/core/wizard"
)

// =============================================================================
// Request Types
// =============================================================================

// SelectDomainRequest is the body of POST /sessions/{id}/domain.
type SelectDomainRequest struct {
	Domain string `json:"domain"`
}

// SelectIndustryRequest is the body of POST /sessions/{id}/industry.
type SelectIndustryRequest struct {
	Industry string `json:"industry"`
}

// ToggleModuleRequest is the body of POST /sessions/{id}/modules/toggle.
type ToggleModuleRequest struct {
	Module string `json:"module"`
}

// AnswerRequest is the body of PUT /sessions/{id}/answers/{questionID}.
type AnswerRequest struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
	Scale  int      `json:"scale,omitempty"`
}

// ConnectOrgRequest is the body of POST /sessions/{id}/org/connect.
type ConnectOrgRequest struct {
	Method string `json:"method"`
}

// CreateDeploymentRequest is the body of POST /sessions/{id}/deployments.
// A nil Components selects every kind.
type CreateDeploymentRequest struct {
	Components *metadata.Selection `json:"components,omitempty"`
}

// LoginRequest is the body of POST /admin/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// NameRequest creates a domain, industry or module.
type NameRequest struct {
	Name string `json:"name"`
}

// UpdateModuleRequest sets one field of a module.
type UpdateModuleRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// =============================================================================
// Response Types
// =============================================================================

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the response for readiness check.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the error body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// DomainsResponse lists catalog domains.
type DomainsResponse struct {
	Domains []string `json:"domains"`
}

// IndustriesResponse lists the industries of a domain.
type IndustriesResponse struct {
	Domain     string   `json:"domain"`
	Industries []string `json:"industries"`
}

// ModulesResponse lists the modules of a domain/industry pair.
type ModulesResponse struct {
	Domain   string           `json:"domain"`
	Industry string           `json:"industry"`
	Modules  []catalog.Module `json:"modules"`
}

// SessionResponse is a wizard session with the choices the current step offers.
type SessionResponse struct {
	wizard.Session
	StepName         string           `json:"step_name"`
	Industries       []string         `json:"industries,omitempty"`
	AvailableModules []catalog.Module `json:"available_modules,omitempty"`
}

// QuestionsResponse is the questionnaire of a session with answer progress.
type QuestionsResponse struct {
	Questions []wizard.Question        `json:"questions"`
	Answers   map[string]wizard.Answer `json:"answers"`
	Answered  int                      `json:"answered"`
	Total     int                      `json:"total"`
}

// PlanResponse is the implementation plan of a submitted session.
type PlanResponse struct {
	plan.Plan
}

// PackageResponse describes the generated metadata package.
type PackageResponse struct {
	metadata.Package
	Components []metadata.ComponentRef `json:"components"`
	Counts     map[metadata.Kind]int   `json:"counts"`
	Manifest   metadata.Manifest       `json:"manifest"`
	Documents  map[string]string       `json:"documents,omitempty"`
}

// OrgResponse is the org connection of a session.
type OrgResponse struct {
	*domain.OrgConnection
	CanDeploy bool `json:"can_deploy"`
}

// DeploymentResponse is a deployment run with derived progress fields.
type DeploymentResponse struct {
	domain.Deployment
	Progress    float64      `json:"progress"`
	CurrentStep string       `json:"current_step,omitempty"`
	Steps       []StepStatus `json:"steps"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
}

// StepStatus is one line of the deployment progress script.
type StepStatus struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// DeploymentsResponse lists the deployments of a session.
type DeploymentsResponse struct {
	Deployments []DeploymentResponse `json:"deployments"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// LoginResponse carries an admin token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CatalogResponse is the full catalog as edited by admins.
type CatalogResponse struct {
	catalog.Catalog
	ModuleCount int `json:"module_count"`
}

package api

import (
	"net/http"

	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/plan"
	"github.com/artpar/sfadvisor/internal/shell/api/openapi"
)

const (
	sessionPath    = "/api/v1/sessions/{id}"
	adminIndustry  = "/api/v1/admin/domains/{domain}/industries/{industry}"
	adminModuleAt  = adminIndustry + "/modules/{index}"
	contentTypeZip = "application/zip"
)

// apiRoutes describes the JSON API for the OpenAPI document. It mirrors the
// router in Routes.
func apiRoutes() []openapi.Route {
	return []openapi.Route{
		// Health
		{Method: http.MethodGet, Path: "/health", OperationID: "health", Summary: "Liveness check", Tag: "Health", Response: HealthResponse{}},
		{Method: http.MethodGet, Path: "/ready", OperationID: "ready", Summary: "Readiness check", Tag: "Health", Response: ReadyResponse{}},

		// Catalog
		{Method: http.MethodGet, Path: "/api/v1/catalog/domains", OperationID: "listDomains", Summary: "List business domains", Tag: "Catalog", Response: DomainsResponse{}},
		{Method: http.MethodGet, Path: "/api/v1/catalog/domains/{domain}/industries", OperationID: "listIndustries", Summary: "List industries of a domain", Tag: "Catalog", Response: IndustriesResponse{}},
		{Method: http.MethodGet, Path: "/api/v1/catalog/modules", OperationID: "listModules", Summary: "List modules of a domain and industry", Tag: "Catalog", Response: ModulesResponse{}},

		// Wizard
		{Method: http.MethodPost, Path: "/api/v1/sessions", OperationID: "createSession", Summary: "Start a wizard session", Tag: "Wizard", Response: SessionResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: sessionPath, OperationID: "getSession", Summary: "Get a wizard session", Tag: "Wizard", Response: SessionResponse{}},
		{Method: http.MethodDelete, Path: sessionPath, OperationID: "deleteSession", Summary: "Delete a wizard session", Tag: "Wizard", Status: http.StatusNoContent},
		{Method: http.MethodPost, Path: sessionPath + "/domain", OperationID: "selectDomain", Summary: "Choose the business domain", Tag: "Wizard", Request: SelectDomainRequest{}, Response: SessionResponse{}},
		{Method: http.MethodPost, Path: sessionPath + "/industry", OperationID: "selectIndustry", Summary: "Choose the industry", Tag: "Wizard", Request: SelectIndustryRequest{}, Response: SessionResponse{}},
		{Method: http.MethodPost, Path: sessionPath + "/modules/toggle", OperationID: "toggleModule", Summary: "Select or deselect a module", Tag: "Wizard", Request: ToggleModuleRequest{}, Response: SessionResponse{}},
		{Method: http.MethodPost, Path: sessionPath + "/back", OperationID: "back", Summary: "Return to the previous step", Tag: "Wizard", Response: SessionResponse{}},
		{Method: http.MethodPost, Path: sessionPath + "/submit", OperationID: "submit", Summary: "Finish module selection", Tag: "Wizard", Response: SessionResponse{}},
		{Method: http.MethodPost, Path: sessionPath + "/reset", OperationID: "reset", Summary: "Start over", Tag: "Wizard", Response: SessionResponse{}},
		{Method: http.MethodGet, Path: sessionPath + "/questions", OperationID: "listQuestions", Summary: "Follow-up questionnaire", Tag: "Wizard", Response: QuestionsResponse{}},
		{Method: http.MethodPut, Path: sessionPath + "/answers/{questionID}", OperationID: "answerQuestion", Summary: "Answer a follow-up question", Tag: "Wizard", Request: AnswerRequest{}, Response: QuestionsResponse{}},

		// Plan
		{Method: http.MethodGet, Path: sessionPath + "/plan", OperationID: "getPlan", Summary: "Implementation plan", Tag: "Plan", Response: PlanResponse{}},
		{Method: http.MethodGet, Path: sessionPath + "/recommendations", OperationID: "getRecommendations", Summary: "Objects and automations of the selection", Tag: "Plan", Response: plan.Recommendations{}},
		{Method: http.MethodGet, Path: sessionPath + "/suggestions", OperationID: "getSuggestions", Summary: "Industry suggestions", Tag: "Plan", Response: plan.Suggestions{}},
		{Method: http.MethodGet, Path: sessionPath + "/timeline", OperationID: "getTimeline", Summary: "Implementation timeline", Tag: "Plan", Response: plan.Timeline{}},

		// Metadata
		{Method: http.MethodGet, Path: sessionPath + "/package", OperationID: "getPackage", Summary: "Generated metadata package", Tag: "Metadata", Response: PackageResponse{}},
		{Method: http.MethodGet, Path: sessionPath + "/package.zip", OperationID: "downloadPackage", Summary: "Download the metadata XML bundle", Tag: "Metadata", ContentType: contentTypeZip},

		// Org
		{Method: http.MethodGet, Path: sessionPath + "/org", OperationID: "getOrg", Summary: "Org connection", Tag: "Org", Response: OrgResponse{}},
		{Method: http.MethodPost, Path: sessionPath + "/org/connect", OperationID: "connectOrg", Summary: "Connect a Salesforce org", Tag: "Org", Request: ConnectOrgRequest{}, Response: OrgResponse{}},
		{Method: http.MethodPost, Path: sessionPath + "/org/test", OperationID: "testOrg", Summary: "Test the org connection", Tag: "Org", Response: OrgResponse{}},
		{Method: http.MethodPost, Path: sessionPath + "/org/disconnect", OperationID: "disconnectOrg", Summary: "Disconnect the org", Tag: "Org", Response: OrgResponse{}},

		// Deployments
		{Method: http.MethodPost, Path: sessionPath + "/deployments", OperationID: "createDeployment", Summary: "Queue a deployment", Tag: "Deployments", Request: CreateDeploymentRequest{}, Response: DeploymentResponse{}, Status: http.StatusAccepted},
		{Method: http.MethodGet, Path: sessionPath + "/deployments", OperationID: "listDeployments", Summary: "Deployments of a session", Tag: "Deployments", Response: DeploymentsResponse{}},
		{Method: http.MethodGet, Path: "/api/v1/deployments/{id}", OperationID: "getDeployment", Summary: "Deployment progress", Tag: "Deployments", Response: DeploymentResponse{}},
		{Method: http.MethodPost, Path: "/api/v1/deployments/{id}/retry", OperationID: "retryDeployment", Summary: "Retry a failed deployment", Tag: "Deployments", Response: DeploymentResponse{}, Status: http.StatusAccepted},

		// Admin
		{Method: http.MethodPost, Path: "/api/v1/admin/login", OperationID: "adminLogin", Summary: "Exchange the admin password for a token", Tag: "Admin", Request: LoginRequest{}, Response: LoginResponse{}},
		{Method: http.MethodGet, Path: "/api/v1/admin/catalog", OperationID: "adminCatalog", Summary: "Full catalog", Tag: "Admin", Response: CatalogResponse{}, Admin: true},
		{Method: http.MethodGet, Path: "/api/v1/admin/export", OperationID: "adminExport", Summary: "Export the catalog", Tag: "Admin", Response: catalog.Snapshot{}, Admin: true},
		{Method: http.MethodPost, Path: "/api/v1/admin/import", OperationID: "adminImport", Summary: "Import a catalog snapshot", Tag: "Admin", Request: catalog.Snapshot{}, Response: CatalogResponse{}, Admin: true},
		{Method: http.MethodPost, Path: "/api/v1/admin/domains", OperationID: "adminAddDomain", Summary: "Add a domain", Tag: "Admin", Request: NameRequest{}, Response: CatalogResponse{}, Admin: true},
		{Method: http.MethodDelete, Path: "/api/v1/admin/domains/{domain}", OperationID: "adminDeleteDomain", Summary: "Delete a domain", Tag: "Admin", Response: CatalogResponse{}, Admin: true},
		{Method: http.MethodPost, Path: "/api/v1/admin/domains/{domain}/industries", OperationID: "adminAddIndustry", Summary: "Add an industry", Tag: "Admin", Request: NameRequest{}, Response: CatalogResponse{}, Admin: true},
		{Method: http.MethodDelete, Path: adminIndustry, OperationID: "adminDeleteIndustry", Summary: "Delete an industry", Tag: "Admin", Response: CatalogResponse{}, Admin: true},
		{Method: http.MethodPost, Path: adminIndustry + "/modules", OperationID: "adminAddModule", Summary: "Add a module", Tag: "Admin", Request: NameRequest{}, Response: CatalogResponse{}, Admin: true},
		{Method: http.MethodPatch, Path: adminModuleAt, OperationID: "adminUpdateModule", Summary: "Update a module field", Tag: "Admin", Request: UpdateModuleRequest{}, Response: CatalogResponse{}, Admin: true},
		{Method: http.MethodDelete, Path: adminModuleAt, OperationID: "adminDeleteModule", Summary: "Delete a module", Tag: "Admin", Response: CatalogResponse{}, Admin: true},
	}
}

package salesforce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/core/metadata"
)

// Demo org returned by MockConnector.
const (
	DemoOrgID       = "00D000000000000EAA"
	DemoOrgName     = "Demo Organization"
	DemoOrgType     = "Production"
	DemoInstanceURL = "https://demo-instance.my.salesforce.com"
	DemoUserID      = "005000000000000AAA"
	DemoUserName    = "admin@demo.com"
)

// MockConfig holds the simulated latencies.
type MockConfig struct {
	ConnectDelay time.Duration
	TestDelay    time.Duration
	DeployDelay  time.Duration
	APIVersion   string
}

// DefaultMockConfig returns the default simulated latencies.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		ConnectDelay: 2 * time.Second,
		TestDelay:    1 * time.Second,
		DeployDelay:  3 * time.Second,
		APIVersion:   metadata.DefaultAPIVersion,
	}
}

// =============================================================================
// Mock Connector
// =============================================================================

// MockConnector connects every request to the demo org.
type MockConnector struct {
	config MockConfig
}

// NewMockConnector creates a mock connector.
func NewMockConnector(cfg MockConfig) *MockConnector {
	if cfg.APIVersion == "" {
		cfg.APIVersion = metadata.DefaultAPIVersion
	}
	return &MockConnector{config: cfg}
}

// Connect waits ConnectDelay and returns the demo org.
func (c *MockConnector) Connect(ctx context.Context, method domain.AuthMethod) (domain.OrgInfo, error) {
	if _, err := domain.ParseAuthMethod(string(method)); err != nil {
		return domain.OrgInfo{}, err
	}
	if err := wait(ctx, c.config.ConnectDelay); err != nil {
		return domain.OrgInfo{}, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	return domain.OrgInfo{
		OrgID:       DemoOrgID,
		OrgName:     DemoOrgName,
		OrgType:     DemoOrgType,
		APIVersion:  c.config.APIVersion,
		InstanceURL: DemoInstanceURL,
		UserID:      DemoUserID,
		UserName:    DemoUserName,
		Permissions: domain.AllPermissions(),
	}, nil
}

// Test waits TestDelay and succeeds for connected orgs.
func (c *MockConnector) Test(ctx context.Context, org *domain.OrgConnection) error {
	if org == nil || org.Status != domain.OrgConnected {
		return domain.ErrOrgNotConnected
	}
	if err := wait(ctx, c.config.TestDelay); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	return nil
}

// =============================================================================
// Mock Deployer
// =============================================================================

// MockDeployer reports every component as deployed.
type MockDeployer struct {
	config MockConfig

	mu    sync.Mutex
	calls int
}

// NewMockDeployer creates a mock deployer.
func NewMockDeployer(cfg MockConfig) *MockDeployer {
	return &MockDeployer{config: cfg}
}

// Deploy waits DeployDelay and returns a successful result for each component.
func (d *MockDeployer) Deploy(ctx context.Context, org *domain.OrgConnection, components []metadata.ComponentRef) (Result, error) {
	if org == nil || !org.CanDeploy() {
		return Result{}, domain.ErrOrgNotConnected
	}

	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	if err := wait(ctx, d.config.DeployDelay); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDeployFailed, err)
	}

	results := make([]domain.ComponentResult, 0, len(components))
	for _, c := range components {
		results = append(results, domain.ComponentResult{
			Kind:     c.Kind,
			FullName: c.FullName,
			Success:  true,
		})
	}
	return Result{DeploymentID: domain.NewSalesforceDeploymentID(), Components: results}, nil
}

// Calls returns how many deploys were attempted.
func (d *MockDeployer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// =============================================================================
// Failing Deployer
// =============================================================================

// FailingDeployer rejects every deploy with its Problem.
type FailingDeployer struct {
	Problem string
}

// Deploy fails every component with the configured problem.
func (d FailingDeployer) Deploy(ctx context.Context, org *domain.OrgConnection, components []metadata.ComponentRef) (Result, error) {
	problem := d.Problem
	if problem == "" {
		problem = "simulated failure"
	}
	return Result{}, fmt.Errorf("%w: %s", ErrDeployFailed, problem)
}

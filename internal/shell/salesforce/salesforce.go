// Package salesforce provides the org connector and metadata deployer used by
// the advisor. Only simulated implementations exist; they wait for a fixed
// delay and report success.
package salesforce

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/core/metadata"
)

var (
	// ErrConnectFailed is returned by connectors that could not reach the org.
	ErrConnectFailed = errors.New("org connection failed")

	// ErrDeployFailed is returned by deployers that could not deploy the package.
	ErrDeployFailed = errors.New("metadata deployment failed")
)

// =============================================================================
// Interfaces
// =============================================================================

// Connector establishes and checks org connections.
type Connector interface {
	// Connect authenticates with the given method and describes the org.
	Connect(ctx context.Context, method domain.AuthMethod) (domain.OrgInfo, error)

	// Test verifies that a connected org is still reachable.
	Test(ctx context.Context, org *domain.OrgConnection) error
}

// Deployer pushes metadata components to an org.
type Deployer interface {
	Deploy(ctx context.Context, org *domain.OrgConnection, components []metadata.ComponentRef) (Result, error)
}

// Result is the outcome of a deploy call.
type Result struct {
	DeploymentID string
	Components   []domain.ComponentResult
}

// =============================================================================
// Helpers
// =============================================================================

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

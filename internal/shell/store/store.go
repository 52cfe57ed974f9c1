package store

import (
	"context"

	"github.com/artpar/sfadvisor/internal/core/catalog"
	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/core/wizard"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store defines the persistence interface for advisor entities.
type Store interface {
	// Catalog operations. The catalog is stored as a whole: SaveCatalog
	// replaces every domain, industry and module.
	LoadCatalog(ctx context.Context) (catalog.Catalog, error)
	SaveCatalog(ctx context.Context, cat catalog.Catalog) error
	SeedCatalog(ctx context.Context, cat catalog.Catalog) (bool, error)

	// Session operations
	CreateSession(ctx context.Context, session *wizard.Session) error
	GetSession(ctx context.Context, id string) (*wizard.Session, error)
	UpdateSession(ctx context.Context, session *wizard.Session) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, opts ListOptions) ([]wizard.Session, error)

	// Org connection operations (one per session)
	SaveOrgConnection(ctx context.Context, org *domain.OrgConnection) error
	GetOrgConnection(ctx context.Context, id string) (*domain.OrgConnection, error)
	GetOrgConnectionBySession(ctx context.Context, sessionID string) (*domain.OrgConnection, error)

	// Deployment operations
	CreateDeployment(ctx context.Context, deployment *domain.Deployment) error
	GetDeployment(ctx context.Context, id string) (*domain.Deployment, error)
	UpdateDeployment(ctx context.Context, deployment *domain.Deployment) error
	ListDeploymentsBySession(ctx context.Context, sessionID string, opts ListOptions) ([]domain.Deployment, error)
	ListActiveDeployments(ctx context.Context) ([]domain.Deployment, error)

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines pagination and filtering options.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns default list options.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  100,
		Offset: 0,
	}
}

// Normalize ensures list options have valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Package workers contains background workers driven by the advisor server.
package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/artpar/sfadvisor/internal/core/domain"
	"github.com/artpar/sfadvisor/internal/shell/salesforce"
	"github.com/artpar/sfadvisor/internal/shell/store"
)

// Messages recorded on runs the runner had to fail.
const (
	MessageOrgMissing      = "Salesforce org is not connected"
	MessageDeployerFailure = "deployment failed: "
)

// RunnerConfig configures the deployment runner.
type RunnerConfig struct {
	StepInterval  time.Duration
	MaxConcurrent int
	CycleTimeout  time.Duration
}

// DefaultRunnerConfig returns default configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		StepInterval:  500 * time.Millisecond,
		MaxConcurrent: 4,
		CycleTimeout:  time.Minute,
	}
}

// Runner polls active deployments and moves each one through the progress
// script. Once every step is done it hands the components to the Deployer.
type Runner struct {
	store    store.Store
	deployer salesforce.Deployer
	config   RunnerConfig
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a new deployment runner.
func NewRunner(s store.Store, deployer salesforce.Deployer, config RunnerConfig, logger *slog.Logger) *Runner {
	defaults := DefaultRunnerConfig()
	if config.StepInterval == 0 {
		config.StepInterval = defaults.StepInterval
	}
	if config.MaxConcurrent == 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.CycleTimeout == 0 {
		config.CycleTimeout = defaults.CycleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		store:    s,
		deployer: deployer,
		config:   config,
		logger:   logger.With("component", "deployment-runner"),
	}
}

// Start begins the runner background goroutine.
func (r *Runner) Start() {
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.wg.Add(1)
	go r.run()
	r.logger.Info("deployment runner started", "interval", r.config.StepInterval, "max_concurrent", r.config.MaxConcurrent)
}

// Stop cancels in-flight work and waits for the runner to exit.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("deployment runner stopped")
}

func (r *Runner) run() {
	defer r.wg.Done()

	r.RunCycle(r.ctx)

	ticker := time.NewTicker(r.config.StepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.RunCycle(r.ctx)
		}
	}
}

// RunCycle processes every active deployment once. Cycles never overlap:
// the ticker waits for the previous cycle to return.
func (r *Runner) RunCycle(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, r.config.CycleTimeout)
	defer cancel()

	deployments, err := r.store.ListActiveDeployments(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("failed to list active deployments", "error", err)
		}
		return
	}
	if len(deployments) == 0 {
		return
	}

	r.logger.Debug("processing active deployments", "count", len(deployments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.MaxConcurrent)
	for i := range deployments {
		d := &deployments[i]
		g.Go(func() error {
			r.process(gctx, d)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) process(ctx context.Context, d *domain.Deployment) {
	if ctx.Err() != nil {
		return
	}
	logger := r.logger.With("deployment_id", d.ID, "session_id", d.SessionID, "status", d.Status)

	switch d.Status {
	case domain.StatusPending:
		r.stepStart(ctx, d, logger)
	case domain.StatusInProgress:
		if d.ProgressDone() {
			r.stepDeploy(ctx, d, logger)
			return
		}
		r.stepAdvance(ctx, d, logger)
	}
}

func (r *Runner) stepStart(ctx context.Context, d *domain.Deployment, logger *slog.Logger) {
	if _, ok := r.connectedOrg(ctx, d, logger); !ok {
		return
	}
	if err := d.Start(); err != nil {
		logger.Error("failed to start deployment", "error", err)
		return
	}
	r.save(ctx, d, logger)
	logger.Info("deployment started")
}

func (r *Runner) stepAdvance(ctx context.Context, d *domain.Deployment, logger *slog.Logger) {
	if err := d.Advance(); err != nil {
		logger.Error("failed to advance deployment", "error", err)
		return
	}
	r.save(ctx, d, logger)
	logger.Debug("deployment step completed", "step", d.Step, "progress", d.Progress())
}

func (r *Runner) stepDeploy(ctx context.Context, d *domain.Deployment, logger *slog.Logger) {
	org, ok := r.connectedOrg(ctx, d, logger)
	if !ok {
		return
	}

	result, err := r.deployer.Deploy(ctx, org, d.Components)
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; the run stays in progress and resumes on restart.
			return
		}
		r.fail(ctx, d, MessageDeployerFailure+err.Error(), logger)
		return
	}

	if err := d.Complete(result.DeploymentID, result.Components); err != nil {
		logger.Error("failed to complete deployment", "error", err)
		return
	}
	r.save(ctx, d, logger)
	logger.Info("deployment succeeded", "sf_deployment_id", result.DeploymentID, "components", len(result.Components))
}

// connectedOrg loads the session's org and fails the run when it cannot deploy.
func (r *Runner) connectedOrg(ctx context.Context, d *domain.Deployment, logger *slog.Logger) (*domain.OrgConnection, bool) {
	org, err := r.store.GetOrgConnectionBySession(ctx, d.SessionID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.fail(ctx, d, MessageOrgMissing, logger)
		return nil, false
	case err != nil:
		logger.Error("failed to load org connection", "error", err)
		return nil, false
	case !org.CanDeploy():
		r.fail(ctx, d, MessageOrgMissing, logger)
		return nil, false
	}
	return org, true
}

func (r *Runner) fail(ctx context.Context, d *domain.Deployment, msg string, logger *slog.Logger) {
	logger.Error("deployment failed", "error", msg)
	if err := d.Fail(msg); err != nil {
		logger.Error("failed to mark deployment failed", "error", err)
		return
	}
	r.save(ctx, d, logger)
}

func (r *Runner) save(ctx context.Context, d *domain.Deployment, logger *slog.Logger) {
	if err := r.store.UpdateDeployment(ctx, d); err != nil {
		logger.Error("failed to save deployment", "error", err)
	}
}

// Package domain contains the org connection and deployment run records and
// their state machines.
package domain

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/sfadvisor/internal/core/metadata"
)

// =============================================================================
// Deployment Errors
// =============================================================================

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNothingToDeploy   = errors.New("no components selected for deployment")
	ErrProgressComplete  = errors.New("deployment progress already complete")
	ErrNotInProgress     = errors.New("deployment is not in progress")
)

// =============================================================================
// Deployment Status
// =============================================================================

type DeploymentStatus string

const (
	StatusPending    DeploymentStatus = "pending"
	StatusInProgress DeploymentStatus = "in_progress"
	StatusSucceeded  DeploymentStatus = "succeeded"
	StatusFailed     DeploymentStatus = "failed"
)

// ActiveStatuses are the statuses the deployment runner works on.
var ActiveStatuses = []DeploymentStatus{StatusPending, StatusInProgress}

// ProgressSteps is the fixed script a deployment run walks through.
var ProgressSteps = []string{
	"Validating metadata",
	"Creating custom objects",
	"Creating custom fields",
	"Creating flows",
	"Creating validation rules",
	"Creating permission sets",
	"Deploying to org",
	"Verifying deployment",
}

const (
	MessageSucceeded = "Deployment completed successfully"
	MessageFailed    = "Deployment failed"
)

// =============================================================================
// Deployment
// =============================================================================

// ComponentResult is the outcome of deploying one component.
type ComponentResult struct {
	Kind     metadata.Kind `json:"kind"`
	FullName string        `json:"full_name"`
	Success  bool          `json:"success"`
	Problem  string        `json:"problem,omitempty"`
}

// Deployment is a simulated metadata deployment run. The component list is
// frozen at creation so later catalog edits do not change what a run deploys.
type Deployment struct {
	ID           string                  `json:"id"`
	SessionID    string                  `json:"session_id"`
	OrgID        string                  `json:"org_id"`
	Domain       string                  `json:"domain"`
	Industry     string                  `json:"industry"`
	Modules      []string                `json:"modules"`
	Selection    metadata.Selection      `json:"selection"`
	Components   []metadata.ComponentRef `json:"components"`
	Status       DeploymentStatus        `json:"status"`
	Step         int                     `json:"step"`
	DeploymentID string                  `json:"deployment_id,omitempty"`
	Results      []ComponentResult       `json:"results,omitempty"`
	Message      string                  `json:"message,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	Attempts     int                     `json:"attempts"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	StartedAt    *time.Time              `json:"started_at,omitempty"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
}

// NewDeployment creates a pending run for the selected components of a
// generated package.
func NewDeployment(sessionID, orgID, domainName string, modules []string, pkg metadata.Package) (*Deployment, error) {
	components := pkg.Components()
	if len(components) == 0 {
		return nil, ErrNothingToDeploy
	}

	now := time.Now().UTC()
	return &Deployment{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		OrgID:      orgID,
		Domain:     domainName,
		Industry:   pkg.Industry,
		Modules:    modules,
		Selection:  pkg.Selection,
		Components: components,
		Status:     StatusPending,
		Attempts:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Transition attempts to move the deployment to a new status.
func (d *Deployment) Transition(to DeploymentStatus) error {
	if err := ValidateTransition(d.Status, to); err != nil {
		return err
	}

	now := time.Now().UTC()
	d.Status = to
	d.UpdatedAt = now

	switch to {
	case StatusInProgress:
		d.StartedAt = &now
	case StatusSucceeded, StatusFailed:
		d.CompletedAt = &now
	}

	return nil
}

// Start moves a pending deployment into progress.
func (d *Deployment) Start() error {
	return d.Transition(StatusInProgress)
}

// Advance completes the next progress step.
func (d *Deployment) Advance() error {
	if d.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if d.ProgressDone() {
		return ErrProgressComplete
	}
	d.Step++
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// ProgressDone reports whether every progress step has completed.
func (d *Deployment) ProgressDone() bool {
	return d.Step >= len(ProgressSteps)
}

// Progress returns the completed share of the progress script in percent.
func (d *Deployment) Progress() float64 {
	return float64(d.Step) / float64(len(ProgressSteps)) * 100
}

// StepCompleted reports whether step i (zero-based) is shown as done.
// Step i is complete once progress exceeds i eighths.
func (d *Deployment) StepCompleted(i int) bool {
	return d.Progress() > float64(i)*100/float64(len(ProgressSteps))
}

// CurrentStep returns the label of the step being worked on, or "" when
// the run has not started or has finished all steps.
func (d *Deployment) CurrentStep() string {
	if d.Status != StatusInProgress || d.ProgressDone() {
		return ""
	}
	return ProgressSteps[d.Step]
}

// Complete records a successful deployment.
func (d *Deployment) Complete(deploymentID string, results []ComponentResult) error {
	if d.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if err := d.Transition(StatusSucceeded); err != nil {
		return err
	}
	d.DeploymentID = deploymentID
	d.Results = results
	d.Message = MessageSucceeded
	d.ErrorMessage = ""
	return nil
}

// Fail records a failed deployment with an error message.
func (d *Deployment) Fail(errorMessage string) error {
	if err := d.Transition(StatusFailed); err != nil {
		return err
	}
	d.Message = MessageFailed
	d.ErrorMessage = errorMessage
	return nil
}

// Retry resets a failed deployment so the runner picks it up again.
func (d *Deployment) Retry() error {
	if err := d.Transition(StatusPending); err != nil {
		return err
	}
	d.Step = 0
	d.Results = nil
	d.DeploymentID = ""
	d.Message = ""
	d.ErrorMessage = ""
	d.StartedAt = nil
	d.CompletedAt = nil
	d.Attempts++
	return nil
}

// IsActive reports whether the runner still has work to do.
func (d *Deployment) IsActive() bool {
	return d.Status == StatusPending || d.Status == StatusInProgress
}

// Succeeded counts successful component results.
func (d *Deployment) Succeeded() int {
	n := 0
	for _, r := range d.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// =============================================================================
// State Machine
// =============================================================================

// validTransitions defines the allowed state transitions.
var validTransitions = map[DeploymentStatus][]DeploymentStatus{
	StatusPending:    {StatusInProgress, StatusFailed},
	StatusInProgress: {StatusSucceeded, StatusFailed},
	StatusFailed:     {StatusPending},
	StatusSucceeded:  {}, // Terminal state
}

// ValidateTransition checks if a status transition is valid.
func ValidateTransition(from, to DeploymentStatus) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return ErrInvalidTransition
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// =============================================================================
// Deployment ID Generation
// =============================================================================

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewSalesforceDeploymentID returns an 18 character id in the shape of a
// Salesforce AsyncResult id: the "0Af" key prefix and 15 random characters.
func NewSalesforceDeploymentID() string {
	suffix := make([]byte, 15)
	rand.Read(suffix)
	for i, b := range suffix {
		suffix[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return "0Af" + string(suffix)
}

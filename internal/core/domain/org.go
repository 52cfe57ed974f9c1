package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/artpar/sfadvisor/internal/core/metadata"
)

// =============================================================================
// Org Connection Errors
// =============================================================================

var (
	ErrInvalidAuthMethod = errors.New("invalid authentication method")
	ErrOrgNotConnected   = errors.New("org is not connected")
	ErrMissingPermission = errors.New("org user lacks a required permission")
)

// =============================================================================
// Org Status
// =============================================================================

type OrgStatus string

const (
	OrgDisconnected OrgStatus = "disconnected"
	OrgConnecting   OrgStatus = "connecting"
	OrgConnected    OrgStatus = "connected"
	OrgError        OrgStatus = "error"
)

// AuthMethod is how the user chose to authenticate against the org.
type AuthMethod string

const (
	AuthOAuth    AuthMethod = "oauth"
	AuthPassword AuthMethod = "password"
)

// ParseAuthMethod validates an authentication method name.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch m := AuthMethod(s); m {
	case AuthOAuth, AuthPassword:
		return m, nil
	default:
		return "", ErrInvalidAuthMethod
	}
}

// =============================================================================
// Org Info
// =============================================================================

// OrgPermissions are the metadata capabilities of the connected user.
type OrgPermissions struct {
	CanCreateObjects         bool `json:"can_create_objects"`
	CanCreateFields          bool `json:"can_create_fields"`
	CanCreateFlows           bool `json:"can_create_flows"`
	CanCreateValidationRules bool `json:"can_create_validation_rules"`
	CanDeployMetadata        bool `json:"can_deploy_metadata"`
}

// AllPermissions grants every capability.
func AllPermissions() OrgPermissions {
	return OrgPermissions{
		CanCreateObjects:         true,
		CanCreateFields:          true,
		CanCreateFlows:           true,
		CanCreateValidationRules: true,
		CanDeployMetadata:        true,
	}
}

// OrgInfo describes the org reached by a successful connection.
type OrgInfo struct {
	OrgID       string         `json:"org_id"`
	OrgName     string         `json:"org_name"`
	OrgType     string         `json:"org_type"`
	APIVersion  string         `json:"api_version"`
	InstanceURL string         `json:"instance_url"`
	UserID      string         `json:"user_id"`
	UserName    string         `json:"user_name"`
	Permissions OrgPermissions `json:"permissions"`
}

// =============================================================================
// Org Connection
// =============================================================================

// OrgConnection is the simulated link between a wizard session and a
// Salesforce org.
type OrgConnection struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"session_id"`
	Status       OrgStatus  `json:"status"`
	Method       AuthMethod `json:"method,omitempty"`
	Info         OrgInfo    `json:"info"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ConnectedAt  *time.Time `json:"connected_at,omitempty"`
	LastTestedAt *time.Time `json:"last_tested_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewOrgConnection returns a disconnected connection for a session.
func NewOrgConnection(sessionID string) *OrgConnection {
	now := time.Now().UTC()
	return &OrgConnection{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Status:    OrgDisconnected,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

var validOrgTransitions = map[OrgStatus][]OrgStatus{
	OrgDisconnected: {OrgConnecting},
	OrgConnecting:   {OrgConnected, OrgError, OrgDisconnected},
	OrgConnected:    {OrgDisconnected},
	OrgError:        {OrgConnecting, OrgDisconnected},
}

func (o *OrgConnection) transition(to OrgStatus) error {
	for _, s := range validOrgTransitions[o.Status] {
		if s == to {
			o.Status = to
			o.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrInvalidTransition
}

// BeginConnect starts a connection attempt.
func (o *OrgConnection) BeginConnect(method AuthMethod) error {
	if err := o.transition(OrgConnecting); err != nil {
		return err
	}
	o.Method = method
	o.ErrorMessage = ""
	return nil
}

// Connected records a successful connection.
func (o *OrgConnection) Connected(info OrgInfo) error {
	if err := o.transition(OrgConnected); err != nil {
		return err
	}
	if info.APIVersion == "" {
		info.APIVersion = metadata.DefaultAPIVersion
	}
	o.Info = info
	now := o.UpdatedAt
	o.ConnectedAt = &now
	return nil
}

// ConnectFailed records a failed connection attempt.
func (o *OrgConnection) ConnectFailed(message string) error {
	if err := o.transition(OrgError); err != nil {
		return err
	}
	o.ErrorMessage = message
	return nil
}

// Disconnect drops the connection and forgets the org details.
func (o *OrgConnection) Disconnect() {
	o.Status = OrgDisconnected
	o.Method = ""
	o.Info = OrgInfo{}
	o.ErrorMessage = ""
	o.ConnectedAt = nil
	o.LastTestedAt = nil
	o.UpdatedAt = time.Now().UTC()
}

// MarkTested records a successful connection test.
func (o *OrgConnection) MarkTested() error {
	if o.Status != OrgConnected {
		return ErrOrgNotConnected
	}
	now := time.Now().UTC()
	o.LastTestedAt = &now
	o.UpdatedAt = now
	return nil
}

// CanDeploy reports whether metadata can be deployed through this connection.
func (o *OrgConnection) CanDeploy() bool {
	return o.Status == OrgConnected && o.Info.Permissions.CanDeployMetadata
}

// CheckDeploy verifies the connection can deploy the selected component kinds.
func (o *OrgConnection) CheckDeploy(sel metadata.Selection) error {
	if o.Status != OrgConnected {
		return ErrOrgNotConnected
	}
	p := o.Info.Permissions
	switch {
	case !p.CanDeployMetadata:
		return ErrMissingPermission
	case sel.CustomObjects && !(p.CanCreateObjects && p.CanCreateFields):
		return ErrMissingPermission
	case sel.Flows && !p.CanCreateFlows:
		return ErrMissingPermission
	case sel.ValidationRules && !p.CanCreateValidationRules:
		return ErrMissingPermission
	}
	return nil
}

// APIVersion returns the org API version, or the default when not connected.
func (o *OrgConnection) APIVersion() string {
	if o == nil || o.Info.APIVersion == "" {
		return metadata.DefaultAPIVersion
	}
	return o.Info.APIVersion
}

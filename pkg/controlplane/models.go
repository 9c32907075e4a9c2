// Package controlplane implements the Control Plane domain store and the
// business operations that enforce the system's invariant lattice: no run
// executes without a valid reservation; every reservation settles exactly
// once or expires; every external payment produces at most one provisioning
// outcome. Control Plane is the sole writer of the domain store.
package controlplane

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Membership roles.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
	RoleViewer = "VIEWER"
)

// Offering categories and statuses.
const (
	CategoryAgent      = "AGENT"
	CategoryApp        = "APP"
	CategoryAssistant  = "ASSISTANT"
	CategoryAutomation = "AUTOMATION"

	OfferingDraft     = "DRAFT"
	OfferingPublished = "PUBLISHED"
	OfferingPaused    = "PAUSED"
	OfferingEOS       = "EOS"
	OfferingEOL       = "EOL"
)

// Billing periods.
const (
	BillingMonthly = "MONTHLY"
	BillingYearly  = "YEARLY"
	BillingOneTime = "ONE_TIME"
	BillingUsage   = "USAGE"
)

// Instance states.
const (
	InstanceRequested  = "REQUESTED"
	InstanceProvision  = "PROVISIONING"
	InstanceActive     = "ACTIVE"
	InstancePaused     = "PAUSED"
	InstanceTerminated = "TERMINATED"
)

// Ledger entry types.
const (
	EntryTopup       = "TOPUP"
	EntryUsage       = "USAGE"
	EntryRefund      = "REFUND"
	EntryTrialGrant  = "TRIAL_GRANT"
	EntryReservation = "RESERVATION"
	EntrySettlement  = "SETTLEMENT"
)

// Reservation statuses.
const (
	ReservationPending   = "PENDING"
	ReservationSettled   = "SETTLED"
	ReservationExpired   = "EXPIRED"
	ReservationCancelled = "CANCELLED"
)

// Connector binding statuses.
const (
	BindingActive  = "ACTIVE"
	BindingRevoked = "REVOKED"
)

// Organization is a billable tenant. OwnerID is an opaque identifier: a
// provider user id for personal workspaces, an email for customer workspaces
// created from commerce events.
type Organization struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	OwnerID   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project scopes instances and connector bindings within an organization.
type Project struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Name      string
	Slug      string
	IsDefault bool
	CreatedAt time.Time
}

// Membership links a user to an organization with a role.
type Membership struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	UserID    string
	Role      string
	Teams     []string
	CreatedAt time.Time
}

// Offering is a catalog entry representing an agent or app available for
// purchase or trial.
type Offering struct {
	ID                uuid.UUID
	Name              string
	Slug              string
	Category          string
	Status            string
	CommerceProductID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OfferingVersion is an immutable named revision of an offering bound to an
// artifact digest. Immutable once Status != DRAFT.
type OfferingVersion struct {
	ID           uuid.UUID
	OfferingID   uuid.UUID
	VersionLabel string
	ArtifactRef  string // object-store key
	ArtifactSHA  string // 64-hex digest
	Capabilities []string
	Defaults     map[string]any
	Status       string
	CreatedAt    time.Time
}

// Plan is a pricing/limit bundle attached to an offering.
type Plan struct {
	ID                uuid.UUID
	OfferingID        uuid.UUID
	Name              string
	Slug              string
	BillingPeriod     string
	PriceCredits      int64
	IncludedCredits   int64
	Limits            map[string]any
	IsDefault         bool
	IsTrial           bool
	CommerceVariantID *string
}

// Instance is a user's provisioned subscription to an (offering version,
// plan) pair within a project.
type Instance struct {
	ID                uuid.UUID
	OfferingVersionID uuid.UUID
	OrgID             uuid.UUID
	ProjectID         uuid.UUID
	PlanID            uuid.UUID
	Name              string
	State             string
	Overrides         map[string]any
	EffectiveConfig   map[string]any
	IdempotencyKey    pgtype.Text
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// APIKey authenticates callers to the Gateway and Connector Gateway on behalf
// of an instance. Only Prefix and Hash are stored; the full key is surfaced
// exactly once, at creation.
type APIKey struct {
	ID         uuid.UUID
	InstanceID uuid.UUID
	Name       string
	Prefix     string
	Hash       string
	LastUsedAt pgtype.Timestamptz
	ExpiresAt  pgtype.Timestamptz
	IsActive   bool
	CreatedAt  time.Time
}

// Wallet is the credit-balance container for an organization.
type Wallet struct {
	ID       uuid.UUID
	OrgID    uuid.UUID
	Balance  int64
	Currency string
}

// LedgerEntry is an append-only accounting row; the wallet's balance is the
// sum of its entries (I3).
type LedgerEntry struct {
	ID          uuid.UUID
	WalletID    uuid.UUID
	Amount      int64
	EntryType   string
	ReferenceID string
	InstanceID  pgtype.UUID
	Metadata    map[string]any
	CreatedAt   time.Time
}

// Reservation is a pending hold on credits created by authorize and
// discharged by settle.
type Reservation struct {
	ID         uuid.UUID
	WalletID   uuid.UUID
	InstanceID uuid.UUID
	Amount     int64
	Status     string
	CreatedAt  time.Time
	SettledAt  pgtype.Timestamptz
}

// ConnectorBinding is a named link from an instance's project to an external
// API, with secrets held in the external secret store.
type ConnectorBinding struct {
	ID            uuid.UUID
	OrgID         uuid.UUID
	ProjectID     uuid.UUID
	ConnectorID   string
	ConnectorType string         // "http", "mcp", or "oauth2"
	DisplayName   string
	SecretPath    string
	Config        map[string]any // connector-type-specific dispatch config (base_url, tools, server_url, token_url)
	Status        string
	CreatedAt     time.Time
}

// IdempotencyRecord collapses retries of a side-effecting operation to a
// single outcome. Key is the primary key; Response is replayed verbatim.
type IdempotencyRecord struct {
	Key       string
	Response  []byte // raw JSON
	CreatedAt time.Time
}

package controlplane

import (
	"context"
	"log/slog"
)

// SecretStore is the narrow contract connector bindings need from the
// external secret store. pkg/secretstore's Client satisfies it; the
// Service depends on the interface so tests can substitute a fake.
type SecretStore interface {
	Put(ctx context.Context, path string, data map[string]any) error
	Get(ctx context.Context, path string) (map[string]any, error)
	Delete(ctx context.Context, path string) error
}

// Service implements the Control Plane's business operations over a Store.
// It is the sole writer of the domain store and enforces invariants I1–I8.
type Service struct {
	store   *Store
	log     *slog.Logger
	secrets SecretStore

	// DefaultRunBudget is the credit budget authorize uses when the caller
	// supplies no requested_budget. Nominally 10.
	DefaultRunBudget int64
	// TrialCredits funds a newly created wallet. Nominally 100.
	TrialCredits int64
	// SecretMount is the path segment secret_path begins with.
	SecretMount string
}

// NewService constructs a Service.
func NewService(store *Store, log *slog.Logger, secrets SecretStore, defaultRunBudget, trialCredits int64, secretMount string) *Service {
	return &Service{
		store:            store,
		log:              log,
		secrets:          secrets,
		DefaultRunBudget: defaultRunBudget,
		TrialCredits:     trialCredits,
		SecretMount:      secretMount,
	}
}

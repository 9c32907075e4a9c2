package controlplane

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Digitlify-Inc/cmp-platform/internal/httpserver"
)

// CreateBindingRequest is the input to CreateBinding.
type CreateBindingRequest struct {
	OrgID         uuid.UUID
	ProjectID     uuid.UUID
	ConnectorID   string
	ConnectorType string
	DisplayName   string
	Config        map[string]any
	Credentials   map[string]any // optional; written to the secret store if non-empty
}

// CreateBinding creates a connector binding and, when credentials are
// supplied, writes them to the secret store at a freshly computed
// secret_path = {mount}/{org_id}/{project_id}/{connector_id}/{fresh_id}.
func (s *Service) CreateBinding(ctx context.Context, req CreateBindingRequest) (ConnectorBinding, error) {
	freshID := uuid.New()
	secretPath := fmt.Sprintf("%s/%s/%s/%s", req.OrgID, req.ProjectID, req.ConnectorID, freshID)

	connectorType := req.ConnectorType
	if connectorType == "" {
		connectorType = "http"
	}
	binding, err := s.store.CreateBindingQ(ctx, s.store.pool, ConnectorBinding{
		OrgID:         req.OrgID,
		ProjectID:     req.ProjectID,
		ConnectorID:   req.ConnectorID,
		ConnectorType: connectorType,
		DisplayName:   req.DisplayName,
		SecretPath:    secretPath,
		Config:        req.Config,
		Status:        BindingActive,
	})
	if err != nil {
		return ConnectorBinding{}, err
	}

	if len(req.Credentials) > 0 {
		if err := s.secrets.Put(ctx, secretPath, req.Credentials); err != nil {
			return ConnectorBinding{}, httpserver.NewError(httpserver.KindInternal, "writing connector credentials", err)
		}
	}

	return binding, nil
}

// ListBindings lists connector bindings for a project.
func (s *Service) ListBindings(ctx context.Context, projectID uuid.UUID) ([]ConnectorBinding, error) {
	return s.store.ListBindingsQ(ctx, s.store.pool, projectID)
}

// GetBinding returns a binding by id, without touching the secret store.
func (s *Service) GetBinding(ctx context.Context, id uuid.UUID) (ConnectorBinding, error) {
	return s.store.GetBindingQ(ctx, s.store.pool, id)
}

// RevokeBinding deletes a binding's secret and marks it REVOKED. Deleting an
// already-revoked binding's secret is a no-op (pkg/secretstore.Delete is
// idempotent), so this operation is itself idempotent.
func (s *Service) RevokeBinding(ctx context.Context, id uuid.UUID) error {
	binding, err := s.store.GetBindingQ(ctx, s.store.pool, id)
	if err != nil {
		return err
	}
	if err := s.secrets.Delete(ctx, binding.SecretPath); err != nil {
		return httpserver.NewError(httpserver.KindInternal, "deleting connector credentials", err)
	}
	return s.store.RevokeBindingQ(ctx, s.store.pool, id)
}

// ReadMaskedCredentials returns a binding's credentials with every value
// masked: the first two and last two characters kept, the middle replaced by
// stars, or **** for strings of length 4 or less. The raw secret never
// leaves this method.
func (s *Service) ReadMaskedCredentials(ctx context.Context, id uuid.UUID) (map[string]string, error) {
	binding, err := s.store.GetBindingQ(ctx, s.store.pool, id)
	if err != nil {
		return nil, err
	}
	raw, err := s.secrets.Get(ctx, binding.SecretPath)
	if err != nil {
		return nil, httpserver.NewError(httpserver.KindInternal, "reading connector credentials", err)
	}

	masked := make(map[string]string, len(raw))
	for k, v := range raw {
		str, ok := v.(string)
		if !ok {
			str = fmt.Sprintf("%v", v)
		}
		masked[k] = maskSecret(str)
	}
	return masked, nil
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}

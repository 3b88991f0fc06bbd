// internal/service/permission/permission.go
package permission

import (
	"context"
	"fmt"

	"rdm-service/internal/domain/permission"
	"rdm-service/internal/domain/user"
	xerrors "rdm-service/internal/pkg/errors"
)

// Repository is the slice of grant persistence the checker needs.
type Repository interface {
	FindLevels(ctx context.Context, userID, deviceID int) ([]permission.Level, error)
	Grant(ctx context.Context, g *permission.Grant) error
	Revoke(ctx context.Context, userID, deviceID int) error
	ListByDevice(ctx context.Context, deviceID int) ([]*permission.Grant, error)
}

// Service answers whether a user may see or drive a device. Admins bypass
// grant lookups entirely; everyone else needs a direct or group grant that
// covers the required level.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) has(ctx context.Context, identity *user.Identity, deviceID int, required permission.Level) (bool, error) {
	if identity == nil || !identity.IsActive {
		return false, nil
	}
	if identity.Role == user.RoleAdmin {
		return true, nil
	}

	levels, err := s.repo.FindLevels(ctx, identity.ID, deviceID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve permissions: %w", err)
	}
	for _, l := range levels {
		if l.Covers(required) {
			return true, nil
		}
	}
	return false, nil
}

// CanView reports whether the user may see the device in listings and logs.
func (s *Service) CanView(ctx context.Context, identity *user.Identity, deviceID int) (bool, error) {
	return s.has(ctx, identity, deviceID, permission.LevelView)
}

// CanControl reports whether the user may open a remote session to the device.
func (s *Service) CanControl(ctx context.Context, identity *user.Identity, deviceID int) (bool, error) {
	return s.has(ctx, identity, deviceID, permission.LevelControl)
}

// GrantAccess gives target a direct permission level on a device. Only
// admins grant.
func (s *Service) GrantAccess(ctx context.Context, actor *user.Identity, g *permission.Grant) error {
	if actor == nil || actor.Role != user.RoleAdmin {
		return xerrors.ErrForbidden
	}
	if !g.Level.Valid() {
		return xerrors.ErrInvalidInput
	}
	g.GrantedBy = &actor.ID
	return s.repo.Grant(ctx, g)
}

// RevokeAccess removes a direct grant. Only admins revoke.
func (s *Service) RevokeAccess(ctx context.Context, actor *user.Identity, userID, deviceID int) error {
	if actor == nil || actor.Role != user.RoleAdmin {
		return xerrors.ErrForbidden
	}
	return s.repo.Revoke(ctx, userID, deviceID)
}

// ListDeviceGrants returns every direct grant on a device. Only admins list.
func (s *Service) ListDeviceGrants(ctx context.Context, actor *user.Identity, deviceID int) ([]*permission.Grant, error) {
	if actor == nil || actor.Role != user.RoleAdmin {
		return nil, xerrors.ErrForbidden
	}
	return s.repo.ListByDevice(ctx, deviceID)
}

// internal/service/device/device.go
package device

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"rdm-service/internal/domain/audit"
	"rdm-service/internal/domain/device"
	"rdm-service/internal/domain/user"
	xerrors "rdm-service/internal/pkg/errors"
)

// Repository is the slice of catalog persistence the service needs.
type Repository interface {
	FindByID(ctx context.Context, id int) (*device.Device, error)
	FindActiveByID(ctx context.Context, id int) (*device.Device, error)
	Create(ctx context.Context, d *device.Device, secrets *device.Secrets) error
	Update(ctx context.Context, id int, req *device.UpdateDeviceRequest) (*device.Device, error)
	SetStatus(ctx context.Context, id int, status device.Status) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, f *device.ListFilters) ([]*device.Device, int, error)
}

// AccessChecker answers per-device visibility questions.
type AccessChecker interface {
	CanView(ctx context.Context, identity *user.Identity, deviceID int) (bool, error)
}

// AuditRecorder appends to the audit trail, best effort.
type AuditRecorder interface {
	Record(ctx context.Context, e *audit.Entry)
}

type Service struct {
	repo    Repository
	access  AccessChecker
	auditor AuditRecorder
	logger  *zap.Logger
}

func NewService(repo Repository, access AccessChecker, auditor AuditRecorder, logger *zap.Logger) *Service {
	return &Service{repo: repo, access: access, auditor: auditor, logger: logger}
}

// Get returns one active device if the caller may see it. Devices the caller
// cannot see read as not found, not forbidden.
func (s *Service) Get(ctx context.Context, identity *user.Identity, id int) (*device.Device, error) {
	d, err := s.repo.FindActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ok, err := s.access.CanView(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return d, nil
}

// List returns one page of active devices the caller may see.
func (s *Service) List(ctx context.Context, identity *user.Identity, f *device.ListFilters) (*device.Page, error) {
	f.Normalize()

	devices, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	// Admins see the catalog as stored; others get it filtered down to
	// their grants. The total then reflects the filtered page source, so
	// it stays an upper bound for non-admins.
	if identity.Role != user.RoleAdmin {
		visible := devices[:0]
		for _, d := range devices {
			ok, err := s.access.CanView(ctx, identity, d.ID)
			if err != nil {
				return nil, err
			}
			if ok {
				visible = append(visible, d)
			}
		}
		devices = visible
	}

	return device.NewPage(devices, total, f.Page, f.Size), nil
}

// Create registers a device. Only operators and admins manage the catalog;
// the handler enforces that, the service validates the payload.
func (s *Service) Create(ctx context.Context, identity *user.Identity, req *device.CreateDeviceRequest) (*device.Device, error) {
	if !req.Protocol.Valid() {
		return nil, xerrors.ErrInvalidInput
	}
	if req.Name == "" || req.Host == "" || req.Port <= 0 || req.Port > 65535 {
		return nil, xerrors.ErrInvalidInput
	}

	d := &device.Device{
		Name:        req.Name,
		Host:        req.Host,
		Port:        req.Port,
		Protocol:    req.Protocol,
		Username:    req.Username,
		Description: req.Description,
		Tags:        req.Tags,
		Status:      device.StatusUnknown,
		IsActive:    true,
		CreatedBy:   &identity.ID,
	}
	secrets := &device.Secrets{Password: req.Password, PrivateKey: req.PrivateKey}

	if err := s.repo.Create(ctx, d, secrets); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, &audit.Entry{
		UserID:       &identity.ID,
		Action:       audit.ActionCreate,
		ResourceType: "device",
		ResourceID:   &d.ID,
		Details:      map[string]interface{}{"name": d.Name, "protocol": string(d.Protocol)},
	})
	return d, nil
}

// Update patches a device with the non-nil fields of req.
func (s *Service) Update(ctx context.Context, identity *user.Identity, id int, req *device.UpdateDeviceRequest) (*device.Device, error) {
	if req.Protocol != nil && !req.Protocol.Valid() {
		return nil, xerrors.ErrInvalidInput
	}
	if req.Port != nil && (*req.Port <= 0 || *req.Port > 65535) {
		return nil, xerrors.ErrInvalidInput
	}

	d, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, &audit.Entry{
		UserID:       &identity.ID,
		Action:       audit.ActionUpdate,
		ResourceType: "device",
		ResourceID:   &id,
	})
	return d, nil
}

// Delete retires a device from the catalog.
func (s *Service) Delete(ctx context.Context, identity *user.Identity, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditor.Record(ctx, &audit.Entry{
		UserID:       &identity.ID,
		Action:       audit.ActionDelete,
		ResourceType: "device",
		ResourceID:   &id,
	})
	return nil
}

// SetStatus records the reachability last observed for a device.
func (s *Service) SetStatus(ctx context.Context, id int, status device.Status) error {
	err := s.repo.SetStatus(ctx, id, status)
	if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
		s.logger.Warn("failed to update device status", zap.Int("device_id", id), zap.Error(err))
	}
	return err
}

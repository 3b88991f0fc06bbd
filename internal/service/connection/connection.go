// internal/service/connection/connection.go
package connection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rdm-service/internal/domain/audit"
	"rdm-service/internal/domain/connection"
	"rdm-service/internal/domain/device"
	"rdm-service/internal/domain/user"
	"rdm-service/internal/gateway"
	xerrors "rdm-service/internal/pkg/errors"
)

// Repository is the slice of log persistence the broker needs.
type Repository interface {
	CreateOpen(ctx context.Context, l *connection.Log) error
	MarkActive(ctx context.Context, id int, gatewayConnID string) error
	Close(ctx context.Context, id int, status connection.Status) (*connection.Log, error)
	FindByID(ctx context.Context, id int) (*connection.Log, error)
	ListByUser(ctx context.Context, userID, page, size int) ([]*connection.Log, int, error)
	ListByDevice(ctx context.Context, deviceID, page, size int) ([]*connection.Log, int, error)
}

// DeviceRepository resolves connection targets and their secrets.
type DeviceRepository interface {
	FindActiveByID(ctx context.Context, id int) (*device.Device, error)
	FindSecrets(ctx context.Context, id int) (*device.Secrets, error)
}

// AccessChecker answers per-device permission questions.
type AccessChecker interface {
	CanView(ctx context.Context, identity *user.Identity, deviceID int) (bool, error)
	CanControl(ctx context.Context, identity *user.Identity, deviceID int) (bool, error)
}

// AuditRecorder appends to the audit trail, best effort.
type AuditRecorder interface {
	Record(ctx context.Context, e *audit.Entry)
}

// Broadcaster pushes lifecycle events to the live feed. A nil Broadcaster
// disables the feed.
type Broadcaster interface {
	BroadcastEvent(e *connection.Event)
}

type Service struct {
	repo    Repository
	devices DeviceRepository
	access  AccessChecker
	gw      gateway.Gateway
	auditor AuditRecorder
	feed    Broadcaster
	logger  *zap.Logger

	gatewayTimeout time.Duration
}

func NewService(repo Repository, devices DeviceRepository, access AccessChecker,
	gw gateway.Gateway, auditor AuditRecorder, feed Broadcaster,
	gatewayTimeout time.Duration, logger *zap.Logger) *Service {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}
	return &Service{
		repo:           repo,
		devices:        devices,
		access:         access,
		gw:             gw,
		auditor:        auditor,
		feed:           feed,
		logger:         logger,
		gatewayTimeout: gatewayTimeout,
	}
}

func (s *Service) broadcast(eventType string, l *connection.Log) {
	if s.feed == nil {
		return
	}
	s.feed.BroadcastEvent(&connection.Event{Type: eventType, Log: l})
}

// Initiate opens a remote session to a device. The order matters: the
// permission check runs before any row is written, so a forbidden attempt
// leaves no connection log behind. The pending log is inserted before the
// gateway call so the one-open-session rule is enforced by the database, not
// by a read-then-write race.
func (s *Service) Initiate(ctx context.Context, identity *user.Identity, deviceID int, ip, userAgent string) (*connection.InitiateResponse, error) {
	d, err := s.devices.FindActiveByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	// View permission admits; control decides whether the session is
	// interactive or read-only.
	ok, err := s.access.CanView(ctx, identity, deviceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.ErrForbidden
	}
	interactive, err := s.access.CanControl(ctx, identity, deviceID)
	if err != nil {
		return nil, err
	}

	log := &connection.Log{
		UserID:    identity.ID,
		DeviceID:  deviceID,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.repo.CreateOpen(ctx, log); err != nil {
		return nil, err
	}

	secrets, err := s.devices.FindSecrets(ctx, deviceID)
	if err != nil {
		s.fail(ctx, log, err)
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	handle, err := s.gw.RequestConnection(gctx, d, secrets)
	if err != nil {
		s.fail(ctx, log, err)
		return nil, xerrors.ErrGatewayUnavailable
	}

	if err := s.repo.MarkActive(ctx, log.ID, handle.ID); err != nil {
		// The gateway session is up but our record failed; release the
		// session rather than leak it.
		s.release(handle.ID)
		s.fail(ctx, log, err)
		return nil, err
	}
	log.GatewayConnID = handle.ID
	log.Status = connection.StatusSuccess

	s.auditor.Record(ctx, &audit.Entry{
		UserID:       &identity.ID,
		Action:       audit.ActionConnect,
		ResourceType: "device",
		ResourceID:   &deviceID,
		Details:      map[string]interface{}{"connectionLogId": log.ID, "gatewayConnId": handle.ID},
		IPAddress:    ip,
	})
	s.broadcast(connection.EventStarted, log)

	return &connection.InitiateResponse{
		ConnectionURL:   handle.URL,
		ConnectionLogID: log.ID,
		GatewayConnID:   handle.ID,
		DeviceName:      d.Name,
		Protocol:        string(d.Protocol),
		ReadOnly:        !interactive,
	}, nil
}

// fail closes a pending log as failed. The original error is what the caller
// sees; this cleanup only logs its own problems.
func (s *Service) fail(ctx context.Context, log *connection.Log, cause error) {
	closed, err := s.repo.Close(ctx, log.ID, connection.StatusFailed)
	if err != nil {
		s.logger.Error("failed to close pending connection log",
			zap.Int("log_id", log.ID), zap.Error(err))
		return
	}
	s.logger.Warn("connection attempt failed",
		zap.Int("log_id", log.ID),
		zap.Int("device_id", log.DeviceID),
		zap.Error(cause))
	s.broadcast(connection.EventClosed, closed)
}

// release tears down a gateway session outside the request path.
func (s *Service) release(gatewayConnID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.gatewayTimeout)
	defer cancel()
	if err := s.gw.ReleaseConnection(ctx, gatewayConnID); err != nil {
		s.logger.Warn("failed to release gateway session",
			zap.String("gateway_conn_id", gatewayConnID), zap.Error(err))
	}
}

// End closes an open session. Only the session's owner or an admin may end
// it. The close is unconditional once authorized: the gateway release is best
// effort and the log closes either way.
func (s *Service) End(ctx context.Context, identity *user.Identity, logID int, req *connection.EndRequest) (*connection.Log, error) {
	log, err := s.repo.FindByID(ctx, logID)
	if err != nil {
		return nil, err
	}

	if log.UserID != identity.ID && identity.Role != user.RoleAdmin {
		return nil, xerrors.ErrForbidden
	}

	status := connection.StatusSuccess
	if req != nil && req.Status != "" {
		if !req.Status.Valid() {
			return nil, xerrors.ErrInvalidInput
		}
		status = req.Status
	}

	closed, err := s.repo.Close(ctx, logID, status)
	if err != nil {
		return nil, err
	}

	if closed.GatewayConnID != "" {
		s.release(closed.GatewayConnID)
	}

	s.auditor.Record(ctx, &audit.Entry{
		UserID:       &identity.ID,
		Action:       audit.ActionDisconnect,
		ResourceType: "device",
		ResourceID:   &closed.DeviceID,
		Details:      map[string]interface{}{"connectionLogId": closed.ID, "status": string(closed.Status)},
	})
	s.broadcast(connection.EventClosed, closed)
	return closed, nil
}

func clampPage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

// ListOwn returns one page of the caller's own logs, newest first.
func (s *Service) ListOwn(ctx context.Context, identity *user.Identity, page, size int) (*connection.Page, error) {
	page, size = clampPage(page, size)
	logs, total, err := s.repo.ListByUser(ctx, identity.ID, page, size)
	if err != nil {
		return nil, err
	}
	return connection.NewPage(logs, total, page, size), nil
}

// ListByUser returns one page of another user's logs. Operators and admins
// only; viewers see just their own history through ListOwn.
func (s *Service) ListByUser(ctx context.Context, identity *user.Identity, userID, page, size int) (*connection.Page, error) {
	if !identity.Role.Satisfies(user.RoleOperator) {
		return nil, xerrors.ErrForbidden
	}
	page, size = clampPage(page, size)
	logs, total, err := s.repo.ListByUser(ctx, userID, page, size)
	if err != nil {
		return nil, err
	}
	return connection.NewPage(logs, total, page, size), nil
}

// ListByDevice returns one page of a device's logs. The caller must be able
// to view the device; a device they cannot see reads as not found.
func (s *Service) ListByDevice(ctx context.Context, identity *user.Identity, deviceID, page, size int) (*connection.Page, error) {
	if _, err := s.devices.FindActiveByID(ctx, deviceID); err != nil {
		return nil, err
	}
	ok, err := s.access.CanView(ctx, identity, deviceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.ErrNotFound
	}

	page, size = clampPage(page, size)
	logs, total, err := s.repo.ListByDevice(ctx, deviceID, page, size)
	if err != nil {
		return nil, err
	}
	return connection.NewPage(logs, total, page, size), nil
}


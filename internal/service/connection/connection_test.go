package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"rdm-service/internal/domain/audit"
	"rdm-service/internal/domain/connection"
	"rdm-service/internal/domain/device"
	"rdm-service/internal/domain/user"
	"rdm-service/internal/gateway"
	xerrors "rdm-service/internal/pkg/errors"
)

// fakeLogRepo mimics the one-open-session rule the partial unique index
// enforces in postgres.
type fakeLogRepo struct {
	nextID int
	logs   map[int]*connection.Log
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{nextID: 1, logs: make(map[int]*connection.Log)}
}

func (f *fakeLogRepo) CreateOpen(_ context.Context, l *connection.Log) error {
	for _, existing := range f.logs {
		if existing.UserID == l.UserID && existing.DeviceID == l.DeviceID && existing.Open() {
			return xerrors.ErrAlreadyConnected
		}
	}
	l.ID = f.nextID
	f.nextID++
	l.Status = connection.StatusPending
	l.Start = time.Now()
	cp := *l
	f.logs[l.ID] = &cp
	return nil
}

func (f *fakeLogRepo) MarkActive(_ context.Context, id int, gatewayConnID string) error {
	l, ok := f.logs[id]
	if !ok || !l.Open() {
		return xerrors.ErrNotFound
	}
	l.GatewayConnID = gatewayConnID
	l.Status = connection.StatusSuccess
	return nil
}

func (f *fakeLogRepo) Close(_ context.Context, id int, status connection.Status) (*connection.Log, error) {
	l, ok := f.logs[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	if !l.Open() {
		return nil, xerrors.ErrAlreadyClosed
	}
	now := time.Now()
	dur := int(now.Sub(l.Start).Seconds())
	l.End = &now
	l.Duration = &dur
	l.Status = status
	cp := *l
	return &cp, nil
}

func (f *fakeLogRepo) FindByID(_ context.Context, id int) (*connection.Log, error) {
	l, ok := f.logs[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLogRepo) ListByUser(_ context.Context, userID, _, _ int) ([]*connection.Log, int, error) {
	var out []*connection.Log
	for _, l := range f.logs {
		if l.UserID == userID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeLogRepo) ListByDevice(_ context.Context, deviceID, _, _ int) ([]*connection.Log, int, error) {
	var out []*connection.Log
	for _, l := range f.logs {
		if l.DeviceID == deviceID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

type fakeDeviceRepo struct {
	devices map[int]*device.Device
	secrets map[int]*device.Secrets
}

func (f *fakeDeviceRepo) FindActiveByID(_ context.Context, id int) (*device.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return d, nil
}

func (f *fakeDeviceRepo) FindSecrets(_ context.Context, id int) (*device.Secrets, error) {
	if s, ok := f.secrets[id]; ok {
		return s, nil
	}
	return &device.Secrets{}, nil
}

type fakeAccess struct {
	view    bool
	control bool
}

func (f *fakeAccess) CanView(_ context.Context, _ *user.Identity, _ int) (bool, error) {
	return f.view, nil
}

func (f *fakeAccess) CanControl(_ context.Context, _ *user.Identity, _ int) (bool, error) {
	return f.control, nil
}

type fakeGateway struct {
	handle   *gateway.Handle
	err      error
	requests int
	released []string
}

func (f *fakeGateway) RequestConnection(_ context.Context, _ *device.Device, _ *device.Secrets) (*gateway.Handle, error) {
	f.requests++
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

func (f *fakeGateway) ReleaseConnection(_ context.Context, connID string) error {
	f.released = append(f.released, connID)
	return nil
}

type recordingAuditor struct {
	entries []*audit.Entry
}

func (r *recordingAuditor) Record(_ context.Context, e *audit.Entry) {
	r.entries = append(r.entries, e)
}

type recordingFeed struct {
	events []*connection.Event
}

func (r *recordingFeed) BroadcastEvent(e *connection.Event) {
	r.events = append(r.events, e)
}

type brokerFixture struct {
	svc     *Service
	repo    *fakeLogRepo
	gw      *fakeGateway
	auditor *recordingAuditor
	feed    *recordingFeed
}

func newBroker(t *testing.T, access *fakeAccess, gw *fakeGateway) *brokerFixture {
	t.Helper()
	repo := newFakeLogRepo()
	devices := &fakeDeviceRepo{
		devices: map[int]*device.Device{
			7: {ID: 7, Name: "lab-7", Host: "10.1.0.7", Port: 3389, Protocol: device.ProtocolRDP, IsActive: true},
		},
		secrets: map[int]*device.Secrets{},
	}
	auditor := &recordingAuditor{}
	feed := &recordingFeed{}
	svc := NewService(repo, devices, access, gw, auditor, feed, time.Second, zap.NewNop())
	return &brokerFixture{svc: svc, repo: repo, gw: gw, auditor: auditor, feed: feed}
}

var operator = &user.Identity{ID: 10, Username: "op", Role: user.RoleOperator, IsActive: true}

func TestInitiateSuccess(t *testing.T) {
	fx := newBroker(t, &fakeAccess{view: true, control: true},
		&fakeGateway{handle: &gateway.Handle{ID: "gw-1", URL: "wss://gw/g/gw-1"}})

	resp, err := fx.svc.Initiate(context.Background(), operator, 7, "10.0.0.1", "rdm-cli")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if resp.GatewayConnID != "gw-1" || resp.ConnectionURL != "wss://gw/g/gw-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.ReadOnly {
		t.Error("a control grant should open an interactive session")
	}
	stored := fx.repo.logs[resp.ConnectionLogID]
	if stored == nil || stored.Status != connection.StatusSuccess || stored.GatewayConnID != "gw-1" {
		t.Errorf("log not activated: %+v", stored)
	}
	if len(fx.auditor.entries) != 1 || fx.auditor.entries[0].Action != audit.ActionConnect {
		t.Errorf("expected a connect audit entry, got %+v", fx.auditor.entries)
	}
	if len(fx.feed.events) != 1 || fx.feed.events[0].Type != connection.EventStarted {
		t.Errorf("expected a started event, got %+v", fx.feed.events)
	}
}

// A view-only grant still admits, but the session is flagged read-only.
func TestInitiateViewOnlyIsReadOnly(t *testing.T) {
	fx := newBroker(t, &fakeAccess{view: true, control: false},
		&fakeGateway{handle: &gateway.Handle{ID: "gw-1", URL: "u"}})

	resp, err := fx.svc.Initiate(context.Background(), operator, 7, "ip", "ua")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if !resp.ReadOnly {
		t.Error("a view-only grant should open a read-only session")
	}
}

// An attempt without even view permission must leave no trace: no log row,
// no audit entry, no gateway call.
func TestInitiateForbiddenLeavesNoTrace(t *testing.T) {
	gw := &fakeGateway{handle: &gateway.Handle{ID: "gw-1", URL: "u"}}
	fx := newBroker(t, &fakeAccess{view: false, control: false}, gw)

	_, err := fx.svc.Initiate(context.Background(), operator, 7, "10.0.0.1", "rdm-cli")
	if !errors.Is(err, xerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(fx.repo.logs) != 0 {
		t.Error("forbidden attempt must not create a connection log")
	}
	if len(fx.auditor.entries) != 0 {
		t.Error("forbidden attempt must not be audited as a connect")
	}
	if gw.requests != 0 {
		t.Error("forbidden attempt must not reach the gateway")
	}
}

func TestInitiateSecondSessionRejected(t *testing.T) {
	fx := newBroker(t, &fakeAccess{view: true, control: true},
		&fakeGateway{handle: &gateway.Handle{ID: "gw-1", URL: "u"}})

	if _, err := fx.svc.Initiate(context.Background(), operator, 7, "ip", "ua"); err != nil {
		t.Fatalf("first initiate: %v", err)
	}
	_, err := fx.svc.Initiate(context.Background(), operator, 7, "ip", "ua")
	if !errors.Is(err, xerrors.ErrAlreadyConnected) {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestInitiateGatewayFailure(t *testing.T) {
	fx := newBroker(t, &fakeAccess{view: true, control: true},
		&fakeGateway{err: errors.New("connect refused")})

	_, err := fx.svc.Initiate(context.Background(), operator, 7, "ip", "ua")
	if !errors.Is(err, xerrors.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
	if len(fx.repo.logs) != 1 {
		t.Fatalf("expected the pending log to be kept, have %d", len(fx.repo.logs))
	}
	for _, l := range fx.repo.logs {
		if l.Status != connection.StatusFailed || l.Open() {
			t.Errorf("pending log should be closed as failed, got %+v", l)
		}
	}
	// The failed slot is free again: a retry may open a new session.
	if _, err := fx.svc.Initiate(context.Background(), operator, 7, "ip", "ua"); !errors.Is(err, xerrors.ErrGatewayUnavailable) {
		t.Errorf("retry should reach the gateway again, got %v", err)
	}
}

func TestEndByOwner(t *testing.T) {
	fx := newBroker(t, &fakeAccess{view: true, control: true},
		&fakeGateway{handle: &gateway.Handle{ID: "gw-1", URL: "u"}})

	resp, err := fx.svc.Initiate(context.Background(), operator, 7, "ip", "ua")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	closed, err := fx.svc.End(context.Background(), operator, resp.ConnectionLogID, nil)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if closed.Status != connection.StatusSuccess || closed.Open() {
		t.Errorf("log should close as success, got %+v", closed)
	}
	if closed.Duration == nil {
		t.Error("closed log should carry a duration")
	}
	if len(fx.gw.released) != 1 || fx.gw.released[0] != "gw-1" {
		t.Errorf("gateway session should be released, got %v", fx.gw.released)
	}

	_, err = fx.svc.End(context.Background(), operator, resp.ConnectionLogID, nil)
	if !errors.Is(err, xerrors.ErrAlreadyClosed) {
		t.Fatalf("second end should report ErrAlreadyClosed, got %v", err)
	}
}

func TestEndAuthorization(t *testing.T) {
	fx := newBroker(t, &fakeAccess{view: true, control: true},
		&fakeGateway{handle: &gateway.Handle{ID: "gw-1", URL: "u"}})

	resp, err := fx.svc.Initiate(context.Background(), operator, 7, "ip", "ua")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	other := &user.Identity{ID: 99, Username: "other", Role: user.RoleOperator, IsActive: true}
	if _, err := fx.svc.End(context.Background(), other, resp.ConnectionLogID, nil); !errors.Is(err, xerrors.ErrForbidden) {
		t.Errorf("another operator must not end the session, got %v", err)
	}

	admin := &user.Identity{ID: 1, Username: "root", Role: user.RoleAdmin, IsActive: true}
	if _, err := fx.svc.End(context.Background(), admin, resp.ConnectionLogID, nil); err != nil {
		t.Errorf("admin should be able to end any session: %v", err)
	}
}

func TestEndStatusValidation(t *testing.T) {
	fx := newBroker(t, &fakeAccess{view: true, control: true},
		&fakeGateway{handle: &gateway.Handle{ID: "gw-1", URL: "u"}})

	resp, err := fx.svc.Initiate(context.Background(), operator, 7, "ip", "ua")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	req := &connection.EndRequest{Status: connection.StatusPending}
	if _, err := fx.svc.End(context.Background(), operator, resp.ConnectionLogID, req); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("pending is not a caller status, got %v", err)
	}

	closed, err := fx.svc.End(context.Background(), operator, resp.ConnectionLogID,
		&connection.EndRequest{Status: connection.StatusTimeout})
	if err != nil {
		t.Fatalf("end with timeout: %v", err)
	}
	if closed.Status != connection.StatusTimeout {
		t.Errorf("caller status should be recorded, got %s", closed.Status)
	}
}

func TestListByUserRequiresOperator(t *testing.T) {
	fx := newBroker(t, &fakeAccess{view: true, control: true},
		&fakeGateway{handle: &gateway.Handle{ID: "gw-1", URL: "u"}})

	viewer := &user.Identity{ID: 3, Role: user.RoleViewer, IsActive: true}
	if _, err := fx.svc.ListByUser(context.Background(), viewer, 42, 0, 20); !errors.Is(err, xerrors.ErrForbidden) {
		t.Errorf("viewer must not list another user's logs, got %v", err)
	}

	if _, err := fx.svc.ListByUser(context.Background(), operator, 42, 0, 20); err != nil {
		t.Errorf("operator list: %v", err)
	}

	admin := &user.Identity{ID: 1, Role: user.RoleAdmin, IsActive: true}
	if _, err := fx.svc.ListByUser(context.Background(), admin, 42, 0, 20); err != nil {
		t.Errorf("admin list: %v", err)
	}
}

// A device the caller cannot view reads as not found, including its log list.
func TestListByDeviceHidesUnviewable(t *testing.T) {
	fx := newBroker(t, &fakeAccess{view: false, control: false}, &fakeGateway{})

	_, err := fx.svc.ListByDevice(context.Background(), operator, 7, 0, 20)
	if !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

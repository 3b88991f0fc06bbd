package device

import (
	"context"
	"errors"
	"sort"
	"testing"

	"go.uber.org/zap"

	"rdm-service/internal/domain/audit"
	"rdm-service/internal/domain/device"
	"rdm-service/internal/domain/user"
	xerrors "rdm-service/internal/pkg/errors"
)

type fakeCatalog struct {
	nextID  int
	devices map[int]*device.Device
	secrets map[int]*device.Secrets
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{nextID: 1, devices: make(map[int]*device.Device), secrets: make(map[int]*device.Secrets)}
}

func (f *fakeCatalog) FindByID(_ context.Context, id int) (*device.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeCatalog) FindActiveByID(_ context.Context, id int) (*device.Device, error) {
	d, ok := f.devices[id]
	if !ok || !d.IsActive {
		return nil, xerrors.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeCatalog) Create(_ context.Context, d *device.Device, secrets *device.Secrets) error {
	d.ID = f.nextID
	f.nextID++
	cp := *d
	f.devices[d.ID] = &cp
	f.secrets[d.ID] = secrets
	return nil
}

func (f *fakeCatalog) Update(_ context.Context, id int, req *device.UpdateDeviceRequest) (*device.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	if req.Name != nil {
		d.Name = *req.Name
	}
	if req.Port != nil {
		d.Port = *req.Port
	}
	cp := *d
	return &cp, nil
}

func (f *fakeCatalog) SetStatus(_ context.Context, id int, status device.Status) error {
	d, ok := f.devices[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	d.Status = status
	return nil
}

func (f *fakeCatalog) Delete(_ context.Context, id int) error {
	d, ok := f.devices[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	d.IsActive = false
	return nil
}

func (f *fakeCatalog) List(_ context.Context, _ *device.ListFilters) ([]*device.Device, int, error) {
	var out []*device.Device
	for _, d := range f.devices {
		if d.IsActive {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

// viewSet allows viewing exactly the listed device IDs.
type viewSet map[int]bool

func (v viewSet) CanView(_ context.Context, identity *user.Identity, deviceID int) (bool, error) {
	if identity != nil && identity.Role == user.RoleAdmin {
		return true, nil
	}
	return v[deviceID], nil
}

type recordingAuditor struct {
	entries []*audit.Entry
}

func (r *recordingAuditor) Record(_ context.Context, e *audit.Entry) {
	r.entries = append(r.entries, e)
}

var (
	admin  = &user.Identity{ID: 1, Username: "root", Role: user.RoleAdmin, IsActive: true}
	viewer = &user.Identity{ID: 2, Username: "vee", Role: user.RoleViewer, IsActive: true}
)

func seed(t *testing.T, svc *Service, names ...string) []*device.Device {
	t.Helper()
	var out []*device.Device
	for _, name := range names {
		d, err := svc.Create(context.Background(), admin, &device.CreateDeviceRequest{
			Name: name, Host: name + ".lab", Port: 22, Protocol: device.ProtocolSSH,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		out = append(out, d)
	}
	return out
}

func TestCreateDevice(t *testing.T) {
	catalog := newFakeCatalog()
	auditor := &recordingAuditor{}
	svc := NewService(catalog, viewSet{}, auditor, zap.NewNop())

	d, err := svc.Create(context.Background(), admin, &device.CreateDeviceRequest{
		Name: "db-1", Host: "10.0.1.5", Port: 5901, Protocol: device.ProtocolVNC,
		Password: "vnc-secret", Tags: []string{"prod", "db"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Status != device.StatusUnknown || !d.IsActive {
		t.Errorf("new device should start unknown and active: %+v", d)
	}
	if d.CreatedBy == nil || *d.CreatedBy != admin.ID {
		t.Error("creator should be recorded")
	}
	if catalog.secrets[d.ID] == nil || catalog.secrets[d.ID].Password != "vnc-secret" {
		t.Error("secrets should be stored alongside the device")
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != audit.ActionCreate {
		t.Errorf("expected one create audit entry, got %+v", auditor.entries)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newFakeCatalog(), viewSet{}, &recordingAuditor{}, zap.NewNop())
	cases := []struct {
		name string
		req  *device.CreateDeviceRequest
	}{
		{"unknown protocol", &device.CreateDeviceRequest{Name: "a", Host: "h", Port: 22, Protocol: device.Protocol("telnet")}},
		{"missing name", &device.CreateDeviceRequest{Host: "h", Port: 22, Protocol: device.ProtocolSSH}},
		{"missing host", &device.CreateDeviceRequest{Name: "a", Port: 22, Protocol: device.ProtocolSSH}},
		{"port zero", &device.CreateDeviceRequest{Name: "a", Host: "h", Port: 0, Protocol: device.ProtocolSSH}},
		{"port too high", &device.CreateDeviceRequest{Name: "a", Host: "h", Port: 70000, Protocol: device.ProtocolSSH}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), admin, tc.req); !errors.Is(err, xerrors.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

// Devices the caller cannot view read as not found, never as forbidden.
func TestGetHidesUnviewable(t *testing.T) {
	catalog := newFakeCatalog()
	access := viewSet{}
	svc := NewService(catalog, access, &recordingAuditor{}, zap.NewNop())
	seeded := seed(t, svc, "web-1", "web-2")
	access[seeded[0].ID] = true

	if _, err := svc.Get(context.Background(), viewer, seeded[0].ID); err != nil {
		t.Errorf("granted device should be visible: %v", err)
	}
	if _, err := svc.Get(context.Background(), viewer, seeded[1].ID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("ungranted device should read as not found, got %v", err)
	}
}

func TestListFiltersByGrant(t *testing.T) {
	catalog := newFakeCatalog()
	access := viewSet{}
	svc := NewService(catalog, access, &recordingAuditor{}, zap.NewNop())
	seeded := seed(t, svc, "a", "b", "c")
	access[seeded[1].ID] = true

	page, err := svc.List(context.Background(), viewer, &device.ListFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != seeded[1].ID {
		t.Errorf("viewer should see only the granted device, got %+v", page.Items)
	}

	adminPage, err := svc.List(context.Background(), admin, &device.ListFilters{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(adminPage.Items) != 3 {
		t.Errorf("admin should see the full catalog, got %d items", len(adminPage.Items))
	}
}

func TestUpdateValidation(t *testing.T) {
	catalog := newFakeCatalog()
	svc := NewService(catalog, viewSet{}, &recordingAuditor{}, zap.NewNop())
	seeded := seed(t, svc, "a")

	badPort := 0
	if _, err := svc.Update(context.Background(), admin, seeded[0].ID, &device.UpdateDeviceRequest{Port: &badPort}); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("port zero should be rejected, got %v", err)
	}

	newPort := 2222
	updated, err := svc.Update(context.Background(), admin, seeded[0].ID, &device.UpdateDeviceRequest{Port: &newPort})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Port != 2222 {
		t.Errorf("port not updated: %+v", updated)
	}
}

// Delete retires the device; it drops out of active lookups but the row
// stays for old connection logs.
func TestDeleteRetires(t *testing.T) {
	catalog := newFakeCatalog()
	auditor := &recordingAuditor{}
	svc := NewService(catalog, viewSet{}, auditor, zap.NewNop())
	seeded := seed(t, svc, "a")
	auditor.entries = nil

	if err := svc.Delete(context.Background(), admin, seeded[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), admin, seeded[0].ID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("retired device should be gone from active lookups, got %v", err)
	}
	if _, err := catalog.FindByID(context.Background(), seeded[0].ID); err != nil {
		t.Errorf("retired device row should still exist: %v", err)
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != audit.ActionDelete {
		t.Errorf("expected one delete audit entry, got %+v", auditor.entries)
	}
}

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"atrium/internal/auth"
)

// fakeQuerier records the arguments of the last call so tests can
// assert what the scope guard forwarded to the underlying store.
type fakeQuerier struct {
	lastTable  string
	lastFilter Filter
	lastData   Row
	calls      int
}

func (f *fakeQuerier) FindMany(_ context.Context, table string, filter Filter) ([]Row, error) {
	f.calls++
	f.lastTable = table
	f.lastFilter = filter
	return nil, nil
}

func (f *fakeQuerier) FindUnique(_ context.Context, table string, filter Filter) (Row, error) {
	f.calls++
	f.lastTable = table
	f.lastFilter = filter
	return Row{}, nil
}

func (f *fakeQuerier) Create(_ context.Context, table string, data Row) (Row, error) {
	f.calls++
	f.lastTable = table
	f.lastData = data
	return data, nil
}

func (f *fakeQuerier) Update(_ context.Context, table string, filter Filter, data Row) (int64, error) {
	f.calls++
	f.lastTable = table
	f.lastFilter = filter
	f.lastData = data
	return 1, nil
}

func (f *fakeQuerier) Delete(_ context.Context, table string, filter Filter) (int64, error) {
	f.calls++
	f.lastTable = table
	f.lastFilter = filter
	return 1, nil
}

func adminOf(orgID uuid.UUID) auth.Principal {
	return auth.Principal{UserID: uuid.New(), Role: auth.RoleAdmin, OrganizationID: &orgID}
}

func TestScope_FindManyInjectsOrganization(t *testing.T) {
	orgID := uuid.New()
	fake := &fakeQuerier{}
	q := ScopeToPrincipal(adminOf(orgID), fake)

	if _, err := q.FindMany(context.Background(), "products", Filter{"active": true}); err != nil {
		t.Fatalf("FindMany: %v", err)
	}

	if got := fake.lastFilter["organization_id"]; got != orgID {
		t.Fatalf("organization_id = %v, want %v", got, orgID)
	}
	if got := fake.lastFilter["active"]; got != true {
		t.Fatalf("caller filter clause dropped: %v", fake.lastFilter)
	}
}

// An org_1 admin asking for org_2's API keys is a tenant mismatch; the
// underlying store must never see the query.
func TestScope_FindManyRejectsForeignOrganizationFilter(t *testing.T) {
	fake := &fakeQuerier{}
	q := ScopeToPrincipal(adminOf(uuid.New()), fake)

	otherOrg := uuid.New()
	_, err := q.FindMany(context.Background(), "api_keys", Filter{"organization_id": otherOrg})
	if !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("err = %v, want ErrTenantMismatch", err)
	}
	if fake.calls != 0 {
		t.Fatalf("underlying store was called %d times", fake.calls)
	}
}

// Redundant but matching organization filters are fine.
func TestScope_FindManyAcceptsOwnOrganizationFilter(t *testing.T) {
	orgID := uuid.New()
	fake := &fakeQuerier{}
	q := ScopeToPrincipal(adminOf(orgID), fake)

	if _, err := q.FindMany(context.Background(), "api_keys", Filter{"organization_id": orgID.String()}); err != nil {
		t.Fatalf("FindMany: %v", err)
	}
	if got := fake.lastFilter["organization_id"]; got != orgID {
		t.Fatalf("organization_id = %v, want %v", got, orgID)
	}
}

func TestScope_CreateStampsPrincipalOrganization(t *testing.T) {
	orgID := uuid.New()
	fake := &fakeQuerier{}
	q := ScopeToPrincipal(adminOf(orgID), fake)

	foreign := uuid.New()
	payload := Row{"name": "Widget", "organization_id": foreign}
	if _, err := q.Create(context.Background(), "products", payload); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := fake.lastData["organization_id"]; got != orgID {
		t.Fatalf("stored organization_id = %v, want principal's %v", got, orgID)
	}
	if payload["organization_id"] != foreign {
		t.Fatalf("caller payload was mutated")
	}
}

func TestScope_UpdateRejectsOrganizationChange(t *testing.T) {
	fake := &fakeQuerier{}
	q := ScopeToPrincipal(adminOf(uuid.New()), fake)

	_, err := q.Update(context.Background(), "products", Filter{"id": uuid.New()}, Row{"organization_id": uuid.New()})
	if !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("err = %v, want ErrTenantMismatch", err)
	}
	if fake.calls != 0 {
		t.Fatalf("underlying store was called %d times", fake.calls)
	}
}

func TestScope_DeleteScopesFilter(t *testing.T) {
	orgID := uuid.New()
	fake := &fakeQuerier{}
	q := ScopeToPrincipal(adminOf(orgID), fake)

	id := uuid.New()
	if _, err := q.Delete(context.Background(), "products", Filter{"id": id}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := fake.lastFilter["organization_id"]; got != orgID {
		t.Fatalf("organization_id = %v, want %v", got, orgID)
	}
	if got := fake.lastFilter["id"]; got != id {
		t.Fatalf("id filter dropped: %v", fake.lastFilter)
	}
}

// A principal without an organization (legacy cookie evidence) is
// blocked from every tenant operation.
func TestScope_PrincipalWithoutOrganizationFailsClosed(t *testing.T) {
	fake := &fakeQuerier{}
	p := auth.Principal{UserID: uuid.New(), Role: auth.RoleAdmin}
	q := ScopeToPrincipal(p, fake)

	if _, err := q.FindMany(context.Background(), "products", nil); !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("FindMany err = %v, want ErrTenantMismatch", err)
	}
	if _, err := q.Create(context.Background(), "products", Row{"name": "x"}); !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("Create err = %v, want ErrTenantMismatch", err)
	}
	if fake.calls != 0 {
		t.Fatalf("underlying store was called %d times", fake.calls)
	}
}

// SuperAdmins are not decorated at all; their filters pass through
// untouched for cross-tenant visibility.
func TestScope_SuperAdminPassesThrough(t *testing.T) {
	fake := &fakeQuerier{}
	p := auth.Principal{UserID: uuid.New(), Role: auth.RoleSuperAdmin}
	q := ScopeToPrincipal(p, fake)

	orgID := uuid.New()
	if _, err := q.FindMany(context.Background(), "products", Filter{"organization_id": orgID}); err != nil {
		t.Fatalf("FindMany: %v", err)
	}
	if got := fake.lastFilter["organization_id"]; got != orgID {
		t.Fatalf("superadmin filter was rewritten: %v", fake.lastFilter)
	}
	if len(fake.lastFilter) != 1 {
		t.Fatalf("superadmin filter gained clauses: %v", fake.lastFilter)
	}
}

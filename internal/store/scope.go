package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"atrium/internal/auth"
)

// ErrTenantMismatch means a filter or payload named an organization
// the principal does not belong to. Handlers surface it as not-found
// so unauthorized tenants learn nothing about the row's existence.
var ErrTenantMismatch = errors.New("tenant mismatch")

const orgColumn = "organization_id"

// ScopeToPrincipal decorates a Querier so every operation is
// constrained to the principal's organization. SuperAdmins pass
// through unchanged: cross-tenant visibility is intentional for them.
// Filters that already name a different organization are rejected
// before the underlying store is called, and creates always stamp the
// principal's organization over anything client-supplied.
func ScopeToPrincipal(p auth.Principal, next Querier) Querier {
	if p.IsSuperAdmin() {
		return next
	}
	return &scopedQuerier{principal: p, next: next}
}

type scopedQuerier struct {
	principal auth.Principal
	next      Querier
}

// scopeFilter injects the principal's organization into a filter. A
// principal without an organization (legacy cookie evidence) never
// reaches tenant data.
func (s *scopedQuerier) scopeFilter(filter Filter) (Filter, error) {
	orgID := s.principal.OrganizationID
	if orgID == nil {
		return nil, fmt.Errorf("%w: principal has no organization", ErrTenantMismatch)
	}

	scoped := make(Filter, len(filter)+1)
	for k, v := range filter {
		scoped[k] = v
	}

	if existing, ok := scoped[orgColumn]; ok {
		if !sameOrg(existing, *orgID) {
			return nil, fmt.Errorf("%w: filter names a different organization", ErrTenantMismatch)
		}
	}
	scoped[orgColumn] = *orgID

	return scoped, nil
}

func sameOrg(v any, orgID uuid.UUID) bool {
	switch t := v.(type) {
	case uuid.UUID:
		return t == orgID
	case *uuid.UUID:
		return t != nil && *t == orgID
	case string:
		parsed, err := uuid.Parse(t)
		return err == nil && parsed == orgID
	default:
		return false
	}
}

func (s *scopedQuerier) FindMany(ctx context.Context, table string, filter Filter) ([]Row, error) {
	scoped, err := s.scopeFilter(filter)
	if err != nil {
		return nil, err
	}
	return s.next.FindMany(ctx, table, scoped)
}

func (s *scopedQuerier) FindUnique(ctx context.Context, table string, filter Filter) (Row, error) {
	scoped, err := s.scopeFilter(filter)
	if err != nil {
		return nil, err
	}
	return s.next.FindUnique(ctx, table, scoped)
}

func (s *scopedQuerier) Create(ctx context.Context, table string, data Row) (Row, error) {
	orgID := s.principal.OrganizationID
	if orgID == nil {
		return nil, fmt.Errorf("%w: principal has no organization", ErrTenantMismatch)
	}

	// The new row's organization comes from the principal, never from
	// client input.
	stamped := cloneRow(data)
	stamped[orgColumn] = *orgID

	return s.next.Create(ctx, table, stamped)
}

func (s *scopedQuerier) Update(ctx context.Context, table string, filter Filter, data Row) (int64, error) {
	scoped, err := s.scopeFilter(filter)
	if err != nil {
		return 0, err
	}
	if _, ok := data[orgColumn]; ok {
		// organization_id is immutable after creation.
		return 0, fmt.Errorf("%w: update may not move rows between organizations", ErrTenantMismatch)
	}
	return s.next.Update(ctx, table, scoped, data)
}

func (s *scopedQuerier) Delete(ctx context.Context, table string, filter Filter) (int64, error) {
	scoped, err := s.scopeFilter(filter)
	if err != nil {
		return 0, err
	}
	return s.next.Delete(ctx, table, scoped)
}

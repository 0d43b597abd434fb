package store

import (
	"context"
	"errors"
	"testing"
)

func TestQuerier_UnknownTableRejected(t *testing.T) {
	q := &sqlQuerier{}

	_, err := q.FindMany(context.Background(), "organizations", nil)
	if !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("err = %v, want ErrUnknownTable", err)
	}
}

// Secret-bearing columns are not in the allow-list; the generic
// interface cannot read or filter by them.
func TestQuerier_SecretColumnsRejected(t *testing.T) {
	q := &sqlQuerier{}

	if _, err := q.FindMany(context.Background(), "api_keys", Filter{"key_hash": "x"}); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("api_keys.key_hash: err = %v, want ErrUnknownColumn", err)
	}
	if _, err := q.FindMany(context.Background(), "users", Filter{"password_hash": "x"}); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("users.password_hash: err = %v, want ErrUnknownColumn", err)
	}
}

func TestQuerier_UpdateRejectsUnknownDataColumn(t *testing.T) {
	q := &sqlQuerier{}

	_, err := q.Update(context.Background(), "products", Filter{"id": "x"}, Row{"sku": "y"})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("err = %v, want ErrUnknownColumn", err)
	}
}

func TestWhereClause_DeterministicOrder(t *testing.T) {
	where, args := whereClause(Filter{"organization_id": "o", "active": true, "id": "i"}, 0)

	want := " WHERE active = $1 AND id = $2 AND organization_id = $3"
	if where != want {
		t.Fatalf("where = %q, want %q", where, want)
	}
	if len(args) != 3 || args[0] != true || args[1] != "i" || args[2] != "o" {
		t.Fatalf("args = %v", args)
	}
}

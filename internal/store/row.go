package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Accessors for generic rows. Drivers return a narrow set of Go types
// for scanned columns; these normalize the common ones so handlers do
// not repeat type switches.

func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case uuid.UUID:
		return v.String()
	case [16]byte:
		return uuid.UUID(v).String()
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func (r Row) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func (r Row) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

func (r Row) Time(key string) time.Time {
	t, _ := r[key].(time.Time)
	return t
}

// IsNull reports whether the column is absent or scanned as SQL NULL.
func (r Row) IsNull(key string) bool {
	v, ok := r[key]
	return !ok || v == nil
}

package recordstore

import (
	"context"
	"errors"
)

// Table names used by the order lifecycle engine.
const (
	TableOrders   = "orders"
	TableProducts = "products"
)

// Row is a raw record as returned by the backend.
type Row map[string]any

// Filter selects rows by exact field equality; all pairs must match.
type Filter map[string]any

// Patch is the set of fields an update writes.
type Patch map[string]any

// ErrNoRowsAffected is returned by callers that expect an update to affect
// exactly one row when the backend reports an empty affected set. The backend
// gives no row-level locking, so a zero-row update is the only signal that a
// row vanished or changed out from under the caller.
var ErrNoRowsAffected = errors.New("update affected no rows")

// Store is the record-store contract: filtered CRUD with per-call, best-effort
// semantics. Each call is indivisible; there is no multi-statement transaction
// support and no cross-row atomicity.
type Store interface {
	// Select returns the rows matching filter; an empty result means no match.
	Select(ctx context.Context, table string, filter Filter) ([]Row, error)

	// Insert stores a new row and returns it with its id populated.
	Insert(ctx context.Context, table string, row Row) (Row, error)

	// Update applies patch to all rows matching filter and returns the
	// affected rows. An empty result means zero rows matched.
	Update(ctx context.Context, table string, patch Patch, filter Filter) ([]Row, error)

	// Delete removes the rows matching filter and reports whether any row
	// was removed.
	Delete(ctx context.Context, table string, filter Filter) (bool, error)
}

// Clone returns a deep-enough copy of a row for map-valued stores; values are
// scalars in this schema, so a shallow map copy suffices.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

package transaction

import (
	"cmp"
	"context"
	"strings"
	"time"

	"github.com/xraph/stockledger/id"
	"github.com/xraph/stockledger/types"
)

// Store is the append-only ledger persistence contract.
type Store interface {
	AppendTransaction(ctx context.Context, t *Transaction) error
	// ListTransactions returns entries matching opts in Compare order, oldest
	// first. A zero Limit returns every match.
	ListTransactions(ctx context.Context, opts QueryOpts) ([]*Transaction, error)
}

// QueryOpts filters ledger reads. Zero-valued fields do not filter.
// Start and End are inclusive.
type QueryOpts struct {
	types.ListOpts
	SKUID       id.SKUID
	Type        Type
	ReferenceID string
	Start       time.Time
	End         time.Time
}

// Matches reports whether t satisfies the filter (ignoring pagination).
func (o QueryOpts) Matches(t *Transaction) bool {
	if !o.SKUID.IsNil() && t.SKUID.String() != o.SKUID.String() {
		return false
	}
	if o.Type != "" && t.Type != o.Type {
		return false
	}
	if o.ReferenceID != "" && t.ReferenceID != o.ReferenceID {
		return false
	}
	if !o.Start.IsZero() && t.CreatedAt.Before(o.Start) {
		return false
	}
	if !o.End.IsZero() && t.CreatedAt.After(o.End) {
		return false
	}
	return true
}

// Compare orders entries by creation time, then by sequence, then by ID.
// Sequence breaks ties between entries of one SKU written within the same
// clock tick.
func Compare(a, b *Transaction) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Sequence, b.Sequence); c != 0 {
		return c
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}

// BySequence orders entries of one SKU in the order they were applied.
func BySequence(a, b *Transaction) int {
	return cmp.Compare(a.Sequence, b.Sequence)
}

package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// bulkFakeDB answers the single-flag lookups the bulk loops issue and
// succeeds every write, so per-account tagging can be exercised without a
// database.
type bulkFakeDB struct {
	flags map[int64]bool // id -> is_active (approve) or is_owner (suspend)
	execs int
}

func (f *bulkFakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs++
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *bulkFakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (f *bulkFakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	id, _ := args[0].(int64)
	flag, ok := f.flags[id]
	if !ok {
		return scanErrRow{pgx.ErrNoRows}
	}
	return boolRow{flag}
}

type scanErrRow struct{ err error }

func (r scanErrRow) Scan(dest ...any) error { return r.err }

type boolRow struct{ v bool }

func (r boolRow) Scan(dest ...any) error {
	*(dest[0].(*bool)) = r.v
	return nil
}

type failingExecDB struct{ bulkFakeDB }

func (f *failingExecDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("write failed")
}

func TestBulkApproveOutcomeAccounting(t *testing.T) {
	db := &bulkFakeDB{flags: map[int64]bool{
		1: false, // pending
		2: true,  // already active
		3: false,
	}}
	repo := NewRepository(db)

	res, err := repo.BulkApprove(t.Context(), []int64{1, 2, 3, 99})
	if err != nil {
		t.Fatalf("BulkApprove: %v", err)
	}

	want := []BulkOutcome{
		{ID: 1, Status: BulkUpdated},
		{ID: 2, Status: BulkSkipped, Reason: "already active"},
		{ID: 3, Status: BulkUpdated},
		{ID: 99, Status: BulkNotFound},
	}
	if len(res.Outcomes) != len(want) {
		t.Fatalf("got %d outcomes, want %d", len(res.Outcomes), len(want))
	}
	for i, got := range res.Outcomes {
		if got != want[i] {
			t.Errorf("outcome %d: got %+v, want %+v", i, got, want[i])
		}
	}
	if res.Updated != 2 {
		t.Errorf("Updated = %d, want 2", res.Updated)
	}
	if db.execs != 2 {
		t.Errorf("writes issued = %d, want 2 (skipped and missing ids must not write)", db.execs)
	}
}

func TestBulkSuspendHonorsRefusals(t *testing.T) {
	db := &bulkFakeDB{flags: map[int64]bool{
		5: false, // regular account
		6: true,  // the owner account
		7: false, // the caller
	}}
	repo := NewRepository(db)

	callerID := int64(7)
	canSuspend := func(id int64, isOwner bool) error {
		if id == callerID {
			return ErrSelfSuspension
		}
		if isOwner {
			return ErrOwnerSuspension
		}
		return nil
	}

	res, err := repo.BulkSuspend(t.Context(), []int64{5, 6, 7, 99}, canSuspend)
	if err != nil {
		t.Fatalf("BulkSuspend: %v", err)
	}

	want := []BulkOutcome{
		{ID: 5, Status: BulkUpdated},
		{ID: 6, Status: BulkSkipped, Reason: ErrOwnerSuspension.Error()},
		{ID: 7, Status: BulkSkipped, Reason: ErrSelfSuspension.Error()},
		{ID: 99, Status: BulkNotFound},
	}
	for i, got := range res.Outcomes {
		if got != want[i] {
			t.Errorf("outcome %d: got %+v, want %+v", i, got, want[i])
		}
	}
	if res.Updated != 1 {
		t.Errorf("Updated = %d, want 1", res.Updated)
	}
	if db.execs != 1 {
		t.Errorf("writes issued = %d, want 1", db.execs)
	}
}

func TestBulkApproveStorageErrorAbortsBatch(t *testing.T) {
	db := &failingExecDB{bulkFakeDB{flags: map[int64]bool{1: false, 2: false}}}
	repo := NewRepository(db)

	res, err := repo.BulkApprove(t.Context(), []int64{1, 2})
	if err == nil {
		t.Fatal("expected the storage error to surface")
	}
	if len(res.Outcomes) != 0 {
		t.Errorf("aborted batch must not report outcomes, got %d", len(res.Outcomes))
	}
}

package content

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// bulkFakeDB answers owner lookups from a map and succeeds every write, so
// the per-item tagging in bulk() can be exercised without a database.
type bulkFakeDB struct {
	owners map[int64]int64 // article id -> owner id
	execs  int
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
	owner, ok := f.owners[id]
	if !ok {
		return scanErrRow{pgx.ErrNoRows}
	}
	return ownerRow{owner}
}

type scanErrRow struct{ err error }

func (r scanErrRow) Scan(dest ...any) error { return r.err }

type ownerRow struct{ owner int64 }

func (r ownerRow) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.owner
	return nil
}

type failingExecDB struct{ bulkFakeDB }

func (f *failingExecDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("write failed")
}

func testSlugEncoder(t *testing.T) *SlugEncoder {
	t.Helper()
	slugs, err := NewSlugEncoder("bulk-test-salt")
	if err != nil {
		t.Fatalf("NewSlugEncoder: %v", err)
	}
	return slugs
}

func TestBulkOutcomeAccounting(t *testing.T) {
	db := &bulkFakeDB{owners: map[int64]int64{
		1: 10, // caller's own article
		2: 20, // someone else's
		3: 10,
	}}
	repo := NewArticleRepository(db, testSlugEncoder(t))

	canModify := func(ownerID int64) bool { return ownerID == 10 }

	res, err := repo.BulkSetVisibility(t.Context(), []int64{1, 2, 3, 99}, true, canModify)
	if err != nil {
		t.Fatalf("BulkSetVisibility: %v", err)
	}

	want := []BulkOutcome{
		{ID: 1, Status: BulkUpdated},
		{ID: 2, Status: BulkSkipped, Reason: "not permitted"},
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

func TestBulkUnrestrictedCallerUpdatesEverything(t *testing.T) {
	db := &bulkFakeDB{owners: map[int64]int64{1: 10, 2: 20}}
	repo := NewArticleRepository(db, testSlugEncoder(t))

	res, err := repo.BulkDelete(t.Context(), []int64{1, 2}, func(int64) bool { return true })
	if err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	if res.Updated != 2 {
		t.Errorf("Updated = %d, want 2", res.Updated)
	}
	for _, o := range res.Outcomes {
		if o.Status != BulkUpdated {
			t.Errorf("id %d: status %q, want %q", o.ID, o.Status, BulkUpdated)
		}
	}
}

func TestBulkStorageErrorAbortsBatch(t *testing.T) {
	db := &failingExecDB{bulkFakeDB{owners: map[int64]int64{1: 10, 2: 10}}}
	repo := NewArticleRepository(db, testSlugEncoder(t))

	res, err := repo.BulkSetArchived(t.Context(), []int64{1, 2}, true, func(int64) bool { return true })
	if err == nil {
		t.Fatal("expected the storage error to surface")
	}
	if len(res.Outcomes) != 0 {
		t.Errorf("aborted batch must not report outcomes, got %d", len(res.Outcomes))
	}
}

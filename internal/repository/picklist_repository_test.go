package repository_test

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "testing"
    "time"

    "github.com/iliyamo/warehouse-pick-queue/internal/repository"
    "github.com/iliyamo/warehouse-pick-queue/internal/testutil"
)

func inTx(t *testing.T, db *sql.DB, ctx context.Context, fn func(tx *sql.Tx)) {
    t.Helper()
    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        t.Fatalf("begin tx: %v", err)
    }
    fn(tx)
    if err := tx.Commit(); err != nil {
        t.Fatalf("commit: %v", err)
    }
}

func TestUpsertResetCreatesThenResets(t *testing.T) {
    db := testutil.OpenInMemoryDB(t, "upsert_reset")
    ctx := testutil.Ctx(t)
    repo := repository.NewPickListRepo(db, repository.SQLite)

    cust := testutil.CreateCustomer(t, db, "acme")
    p := testutil.CreateProduct(t, db, cust, "SKU-1")
    dev1 := testutil.CreateDevice(t, db, cust, "fp-1", "scanner one")
    dev2 := testutil.CreateDevice(t, db, cust, "fp-2", "scanner two")

    var picklistID uint64
    inTx(t, db, ctx, func(tx *sql.Tx) {
        pl, created, err := repo.UpsertResetTx(ctx, tx, cust, "PL-1", dev1, nil, "scanner one", time.Now().UTC())
        if err != nil {
            t.Fatalf("upsert: %v", err)
        }
        if !created {
            t.Error("first upsert should create")
        }
        picklistID = pl.ID
        if err := repo.CreatePicksBulkTx(ctx, tx, pl.ID, []uint64{p, p}); err != nil {
            t.Fatalf("create picks: %v", err)
        }
    })

    // Resolve one unit so the ledger has state to wipe.
    inTx(t, db, ctx, func(tx *sql.Tx) {
        id, ok, err := repo.NextPendingTx(ctx, tx, picklistID, p)
        if err != nil || !ok {
            t.Fatalf("next pending: ok=%v err=%v", ok, err)
        }
        if err := repo.ResolvePickTx(ctx, tx, id, true, time.Second, "scan"); err != nil {
            t.Fatalf("resolve: %v", err)
        }
    })

    // A second device takes over the same code: same row, wiped ledger.
    inTx(t, db, ctx, func(tx *sql.Tx) {
        pl, created, err := repo.UpsertResetTx(ctx, tx, cust, "PL-1", dev2, nil, "scanner two", time.Now().UTC())
        if err != nil {
            t.Fatalf("re-upsert: %v", err)
        }
        if created {
            t.Error("second upsert should reuse the existing row")
        }
        if pl.ID != picklistID {
            t.Errorf("picklist id changed: %d -> %d", picklistID, pl.ID)
        }
        if pl.DeviceID != dev2 {
            t.Errorf("device not handed over: %d", pl.DeviceID)
        }
        if !strings.Contains(pl.Notes, "restarted by device scanner two") {
            t.Errorf("missing restart note: %q", pl.Notes)
        }
    })

    var n int
    if err := db.QueryRow(`SELECT COUNT(*) FROM product_picks WHERE picklist_id = ?`, picklistID).Scan(&n); err != nil {
        t.Fatalf("count picks: %v", err)
    }
    if n != 0 {
        t.Errorf("ledger not wiped, %d rows remain", n)
    }
}

func TestNextPendingPrefersUnresolvedThenFailed(t *testing.T) {
    db := testutil.OpenInMemoryDB(t, "next_pending")
    ctx := testutil.Ctx(t)
    repo := repository.NewPickListRepo(db, repository.SQLite)

    cust := testutil.CreateCustomer(t, db, "acme")
    p := testutil.CreateProduct(t, db, cust, "SKU-1")
    dev := testutil.CreateDevice(t, db, cust, "fp-1", "scanner")

    var picklistID uint64
    inTx(t, db, ctx, func(tx *sql.Tx) {
        pl, _, err := repo.UpsertResetTx(ctx, tx, cust, "PL-1", dev, nil, "scanner", time.Now().UTC())
        if err != nil {
            t.Fatalf("upsert: %v", err)
        }
        picklistID = pl.ID
        if err := repo.CreatePicksBulkTx(ctx, tx, pl.ID, []uint64{p, p}); err != nil {
            t.Fatalf("create picks: %v", err)
        }
    })

    // Fail the first unit, succeed the second.
    var first uint64
    inTx(t, db, ctx, func(tx *sql.Tx) {
        id, ok, err := repo.NextPendingTx(ctx, tx, picklistID, p)
        if err != nil || !ok {
            t.Fatalf("next pending: ok=%v err=%v", ok, err)
        }
        first = id
        if err := repo.ResolvePickTx(ctx, tx, id, false, time.Second, "damaged"); err != nil {
            t.Fatalf("resolve: %v", err)
        }
    })
    inTx(t, db, ctx, func(tx *sql.Tx) {
        id, ok, err := repo.NextPendingTx(ctx, tx, picklistID, p)
        if err != nil || !ok {
            t.Fatalf("next pending: ok=%v err=%v", ok, err)
        }
        if id == first {
            t.Error("unresolved unit should be preferred over the failed one")
        }
        if err := repo.ResolvePickTx(ctx, tx, id, true, time.Second, "scan"); err != nil {
            t.Fatalf("resolve: %v", err)
        }
    })

    // With no unresolved units left, the failed one is offered for retry.
    inTx(t, db, ctx, func(tx *sql.Tx) {
        id, ok, err := repo.NextPendingTx(ctx, tx, picklistID, p)
        if err != nil || !ok {
            t.Fatalf("next pending (retry): ok=%v err=%v", ok, err)
        }
        if id != first {
            t.Errorf("expected failed unit %d, got %d", first, id)
        }
        if err := repo.ResolvePickTx(ctx, tx, id, true, time.Second, "retry"); err != nil {
            t.Fatalf("resolve retry: %v", err)
        }
    })

    // Everything resolved successfully: no row to offer.
    inTx(t, db, ctx, func(tx *sql.Tx) {
        _, ok, err := repo.NextPendingTx(ctx, tx, picklistID, p)
        if err != nil {
            t.Fatalf("next pending (done): %v", err)
        }
        if ok {
            t.Error("no pending unit should remain")
        }
        n, err := repo.CountPendingTx(ctx, tx, picklistID, p)
        if err != nil {
            t.Fatalf("count pending: %v", err)
        }
        if n != 0 {
            t.Errorf("pending count = %d, want 0", n)
        }
    })
}

func TestGetByCodeAndDeviceScoping(t *testing.T) {
    db := testutil.OpenInMemoryDB(t, "picklist_scope")
    ctx := testutil.Ctx(t)
    repo := repository.NewPickListRepo(db, repository.SQLite)

    cust := testutil.CreateCustomer(t, db, "acme")
    dev1 := testutil.CreateDevice(t, db, cust, "fp-1", "one")
    dev2 := testutil.CreateDevice(t, db, cust, "fp-2", "two")

    inTx(t, db, ctx, func(tx *sql.Tx) {
        if _, _, err := repo.UpsertResetTx(ctx, tx, cust, "PL-1", dev1, nil, "one", time.Now().UTC()); err != nil {
            t.Fatalf("upsert: %v", err)
        }
    })

    if _, err := repo.GetByCodeAndDevice(ctx, cust, "PL-1", dev1); err != nil {
        t.Fatalf("owner lookup: %v", err)
    }
    if _, err := repo.GetByCodeAndDevice(ctx, cust, "PL-1", dev2); !errors.Is(err, repository.ErrPickListNotFound) {
        t.Errorf("other device lookup: got %v, want ErrPickListNotFound", err)
    }
}

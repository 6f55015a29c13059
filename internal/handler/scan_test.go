package handler_test

import (
    "net/http"
    "strings"
    "testing"
    "time"

    "github.com/iliyamo/warehouse-pick-queue/internal/testutil"
)

func submitPickList(t *testing.T, e *env, custID, deviceID uint64, fp, code string, products []string) (int, map[string]interface{}) {
    t.Helper()
    c, rec := request(t, http.MethodPost, "/v1/scan/picklist", map[string]interface{}{
        "fingerprint":   fp,
        "picklist_code": code,
        "product_codes": products,
    }, custID, deviceID, fp)
    if err := e.scans.SubmitPickList(c); err != nil {
        t.Fatalf("submit handler: %v", err)
    }
    return rec.Code, decode(t, rec)
}

func recordPick(t *testing.T, e *env, custID, deviceID uint64, fp, list, product string) (int, map[string]interface{}) {
    t.Helper()
    c, rec := request(t, http.MethodPost, "/v1/scan/pick", map[string]interface{}{
        "fingerprint":   fp,
        "picklist_code": list,
        "product_code":  product,
        "time_taken_ms": 1500,
    }, custID, deviceID, fp)
    if err := e.scans.RecordPick(c); err != nil {
        t.Fatalf("record pick handler: %v", err)
    }
    return rec.Code, decode(t, rec)
}

func completePickList(t *testing.T, e *env, custID, deviceID uint64, fp, list string) (int, map[string]interface{}) {
    t.Helper()
    c, rec := request(t, http.MethodPost, "/v1/scan/complete", map[string]interface{}{
        "fingerprint":   fp,
        "picklist_code": list,
    }, custID, deviceID, fp)
    if err := e.scans.Complete(c); err != nil {
        t.Fatalf("complete handler: %v", err)
    }
    return rec.Code, decode(t, rec)
}

func TestSubmitAdHocPickList(t *testing.T) {
    e := newEnv(t, "scan_adhoc")
    cust := testutil.CreateCustomer(t, e.db, "acme")
    dev := testutil.CreateDevice(t, e.db, cust, "fp-1", "scanner")
    testutil.CreateProduct(t, e.db, cust, "SKU-1")
    testutil.CreateProduct(t, e.db, cust, "SKU-2")

    // The code matches no order, so an unbound picklist is created.
    code, body := submitPickList(t, e, cust, dev, "fp-1", "PAPER-7", []string{"SKU-1", "SKU-2", "SKU-1"})
    if code != http.StatusOK {
        t.Fatalf("submit status = %d (body %v)", code, body)
    }
    if n := body["product_count"].(float64); n != 3 {
        t.Errorf("product_count = %v, want 3", n)
    }
    var orderID interface{}
    if err := e.db.QueryRow(`SELECT order_id FROM picklists WHERE picklist_code = 'PAPER-7'`).Scan(&orderID); err != nil {
        t.Fatalf("read picklist: %v", err)
    }
    if orderID != nil {
        t.Errorf("ad-hoc picklist bound to order %v", orderID)
    }
}

func TestSubmitUnknownProductRollsBackEverything(t *testing.T) {
    e := newEnv(t, "scan_rollback")
    cust := testutil.CreateCustomer(t, e.db, "acme")
    dev := testutil.CreateDevice(t, e.db, cust, "fp-1", "scanner")
    testutil.CreateProduct(t, e.db, cust, "SKU-1")

    code, _ := submitPickList(t, e, cust, dev, "fp-1", "PAPER-7", []string{"SKU-1", "SKU-MISSING"})
    if code != http.StatusNotFound {
        t.Fatalf("submit status = %d, want 404", code)
    }

    // Nothing was written.
    var picklists, picks int
    if err := e.db.QueryRow(`SELECT COUNT(*) FROM picklists`).Scan(&picklists); err != nil {
        t.Fatalf("count picklists: %v", err)
    }
    if err := e.db.QueryRow(`SELECT COUNT(*) FROM product_picks`).Scan(&picks); err != nil {
        t.Fatalf("count picks: %v", err)
    }
    if picklists != 0 || picks != 0 {
        t.Errorf("partial write: %d picklists, %d picks", picklists, picks)
    }
}

func TestSubmitForQueuedOrderBindsAndClaims(t *testing.T) {
    e := newEnv(t, "scan_bind")
    cust := testutil.CreateCustomer(t, e.db, "acme")
    dev := testutil.CreateDevice(t, e.db, cust, "fp-1", "scanner")
    testutil.CreateProduct(t, e.db, cust, "SKU-1")
    pos := uint32(1)
    ord := testutil.CreateOrder(t, e.db, cust, "ORD-A", "queued", &pos, nil)

    code, _ := submitPickList(t, e, cust, dev, "fp-1", "ORD-A", []string{"SKU-1"})
    if code != http.StatusOK {
        t.Fatalf("submit status = %d", code)
    }

    got, err := e.orders.GetByID(testutil.Ctx(t), ord, cust)
    if err != nil {
        t.Fatalf("get order: %v", err)
    }
    if string(got.Status) != "in_progress" {
        t.Errorf("order status = %s, want in_progress", got.Status)
    }

    // A second device submitting the same code now hits the claim guard.
    dev2 := testutil.CreateDevice(t, e.db, cust, "fp-2", "other")
    code, _ = submitPickList(t, e, cust, dev2, "fp-2", "ORD-A", []string{"SKU-1"})
    if code != http.StatusConflict {
        t.Errorf("second submit status = %d, want 409", code)
    }
}

func TestRecordPickResolvesUnitsThenNoops(t *testing.T) {
    e := newEnv(t, "scan_pick")
    cust := testutil.CreateCustomer(t, e.db, "acme")
    dev := testutil.CreateDevice(t, e.db, cust, "fp-1", "scanner")
    testutil.CreateProduct(t, e.db, cust, "SKU-1")

    if code, _ := submitPickList(t, e, cust, dev, "fp-1", "PAPER-7", []string{"SKU-1", "SKU-1"}); code != http.StatusOK {
        t.Fatal("submit failed")
    }

    code, body := recordPick(t, e, cust, dev, "fp-1", "PAPER-7", "SKU-1")
    if code != http.StatusOK || body["status"] != "ok" {
        t.Fatalf("first pick: %d %v", code, body)
    }
    if rem := body["remaining_for_product"].(float64); rem != 1 {
        t.Errorf("remaining after first = %v, want 1", rem)
    }

    code, body = recordPick(t, e, cust, dev, "fp-1", "PAPER-7", "SKU-1")
    if code != http.StatusOK || body["remaining_for_product"].(float64) != 0 {
        t.Fatalf("second pick: %d %v", code, body)
    }

    // A third scan is one too many: accepted but a no-op.
    code, body = recordPick(t, e, cust, dev, "fp-1", "PAPER-7", "SKU-1")
    if code != http.StatusOK {
        t.Fatalf("extra pick status = %d, want 200", code)
    }
    if body["status"] != "noop" {
        t.Errorf("extra pick status field = %v, want noop", body["status"])
    }
    var resolved int
    if err := e.db.QueryRow(`SELECT COUNT(*) FROM product_picks WHERE successful = 1`).Scan(&resolved); err != nil {
        t.Fatalf("count resolved: %v", err)
    }
    if resolved != 2 {
        t.Errorf("resolved rows = %d, want 2", resolved)
    }
}

func TestRecordPickKeepsClientScanTimestamp(t *testing.T) {
    e := newEnv(t, "scan_pick_stamp")
    cust := testutil.CreateCustomer(t, e.db, "acme")
    dev := testutil.CreateDevice(t, e.db, cust, "fp-1", "scanner")
    testutil.CreateProduct(t, e.db, cust, "SKU-1")

    if code, _ := submitPickList(t, e, cust, dev, "fp-1", "PAPER-7", []string{"SKU-1", "SKU-1"}); code != http.StatusOK {
        t.Fatal("submit failed")
    }

    // The device reports when it scanned; that timestamp, not the
    // server clock, goes into the audit note.
    const stamp = "2020-01-02T03:04:05Z"
    c, rec := request(t, http.MethodPost, "/v1/scan/pick", map[string]interface{}{
        "fingerprint":   "fp-1",
        "picklist_code": "PAPER-7",
        "product_code":  "SKU-1",
        "scanned_at":    stamp,
    }, cust, dev, "fp-1")
    if err := e.scans.RecordPick(c); err != nil {
        t.Fatalf("record pick handler: %v", err)
    }
    wantStatus(t, rec, http.StatusOK)

    var note string
    if err := e.db.QueryRow(`SELECT notes FROM product_picks WHERE successful = 1`).Scan(&note); err != nil {
        t.Fatalf("read note: %v", err)
    }
    if !strings.Contains(note, "scanned_at="+stamp) {
        t.Errorf("note = %q, want client timestamp %s", note, stamp)
    }

    // Without a client timestamp the server clock is the fallback.
    before := time.Now().UTC()
    if code, _ := recordPick(t, e, cust, dev, "fp-1", "PAPER-7", "SKU-1"); code != http.StatusOK {
        t.Fatal("second pick failed")
    }
    var second string
    if err := e.db.QueryRow(
        `SELECT notes FROM product_picks WHERE successful = 1 AND notes NOT LIKE '%' || ? || '%'`, stamp,
    ).Scan(&second); err != nil {
        t.Fatalf("read fallback note: %v", err)
    }
    idx := strings.Index(second, "scanned_at=")
    if idx < 0 {
        t.Fatalf("fallback note = %q, missing scanned_at", second)
    }
    got, err := time.Parse(time.RFC3339, second[idx+len("scanned_at="):])
    if err != nil {
        t.Fatalf("parse fallback timestamp in %q: %v", second, err)
    }
    if got.Before(before.Truncate(time.Second)) || got.After(time.Now().UTC().Add(time.Second)) {
        t.Errorf("fallback timestamp %s outside call window", got)
    }
}

func TestScanRejectsFingerprintOfAnotherDevice(t *testing.T) {
    e := newEnv(t, "scan_spoof")
    cust := testutil.CreateCustomer(t, e.db, "acme")
    dev := testutil.CreateDevice(t, e.db, cust, "fp-1", "scanner")
    testutil.CreateDevice(t, e.db, cust, "fp-2", "other")
    testutil.CreateProduct(t, e.db, cust, "SKU-1")

    // The token was issued for fp-1; a body naming fp-2 is rejected.
    c, rec := request(t, http.MethodPost, "/v1/scan/picklist", map[string]interface{}{
        "fingerprint":   "fp-2",
        "picklist_code": "PAPER-7",
        "product_codes": []string{"SKU-1"},
    }, cust, dev, "fp-1")
    if err := e.scans.SubmitPickList(c); err != nil {
        t.Fatalf("submit handler: %v", err)
    }
    wantStatus(t, rec, http.StatusUnauthorized)

    var n int
    if err := e.db.QueryRow(`SELECT COUNT(*) FROM picklists`).Scan(&n); err != nil {
        t.Fatalf("count picklists: %v", err)
    }
    if n != 0 {
        t.Errorf("picklists = %d, want 0", n)
    }
}

func TestRecordPickUnknownTargets(t *testing.T) {
    e := newEnv(t, "scan_pick_missing")
    cust := testutil.CreateCustomer(t, e.db, "acme")
    dev := testutil.CreateDevice(t, e.db, cust, "fp-1", "scanner")
    testutil.CreateProduct(t, e.db, cust, "SKU-1")

    if code, _ := recordPick(t, e, cust, dev, "fp-1", "NO-SUCH-LIST", "SKU-1"); code != http.StatusNotFound {
        t.Errorf("unknown picklist: status = %d, want 404", code)
    }
    if code, _ := submitPickList(t, e, cust, dev, "fp-1", "PAPER-7", []string{"SKU-1"}); code != http.StatusOK {
        t.Fatal("submit failed")
    }
    if code, _ := recordPick(t, e, cust, dev, "fp-1", "PAPER-7", "SKU-MISSING"); code != http.StatusNotFound {
        t.Errorf("unknown product: status = %d, want 404", code)
    }
}

func TestCompleteFinishesOrderAndIsIdempotent(t *testing.T) {
    e := newEnv(t, "scan_complete")
    cust := testutil.CreateCustomer(t, e.db, "acme")
    dev := testutil.CreateDevice(t, e.db, cust, "fp-1", "scanner")
    testutil.CreateProduct(t, e.db, cust, "SKU-1")
    pos := uint32(1)
    ord := testutil.CreateOrder(t, e.db, cust, "ORD-A", "queued", &pos, nil)

    // pick_time is set at submit, so the session duration reported by
    // complete is bounded by the wall time between these two calls.
    start := time.Now()
    if code, _ := submitPickList(t, e, cust, dev, "fp-1", "ORD-A", []string{"SKU-1"}); code != http.StatusOK {
        t.Fatal("submit failed")
    }
    if code, _ := recordPick(t, e, cust, dev, "fp-1", "ORD-A", "SKU-1"); code != http.StatusOK {
        t.Fatal("pick failed")
    }

    code, body := completePickList(t, e, cust, dev, "fp-1", "ORD-A")
    elapsed := time.Since(start)
    if code != http.StatusOK {
        t.Fatalf("complete status = %d", code)
    }
    if body["order_status"] != "completed" {
        t.Errorf("order_status = %v, want completed", body["order_status"])
    }
    taken, ok := body["time_taken_ms"].(float64)
    if !ok {
        t.Fatalf("time_taken_ms missing: %v", body)
    }
    if taken < 0 || int64(taken) > elapsed.Milliseconds()+1000 {
        t.Errorf("time_taken_ms = %v, want within [0, %d]", taken, elapsed.Milliseconds()+1000)
    }

    got, err := e.orders.GetByID(testutil.Ctx(t), ord, cust)
    if err != nil {
        t.Fatalf("get order: %v", err)
    }
    if string(got.Status) != "completed" || got.CompletedAt == nil {
        t.Errorf("order not completed: status=%s completed_at=%v", got.Status, got.CompletedAt)
    }

    var listsPicked int
    if err := e.db.QueryRow(`SELECT lists_picked FROM devices WHERE device_id = ?`, dev).Scan(&listsPicked); err != nil {
        t.Fatalf("read lists_picked: %v", err)
    }
    if listsPicked != 1 {
        t.Errorf("lists_picked = %d, want 1", listsPicked)
    }

    // Completing again re-asserts the terminal state without error.
    code, body = completePickList(t, e, cust, dev, "fp-1", "ORD-A")
    if code != http.StatusOK {
        t.Fatalf("repeat complete status = %d", code)
    }
    if body["order_status"] != "completed" {
        t.Errorf("repeat order_status = %v", body["order_status"])
    }
    if err := e.db.QueryRow(`SELECT lists_picked FROM devices WHERE device_id = ?`, dev).Scan(&listsPicked); err != nil {
        t.Fatalf("read lists_picked: %v", err)
    }
    if listsPicked != 1 {
        t.Errorf("lists_picked after repeat = %d, want 1", listsPicked)
    }
}

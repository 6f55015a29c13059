package handler_test

import (
    "net/http"
    "strconv"
    "testing"

    "github.com/iliyamo/warehouse-pick-queue/internal/testutil"
)

func TestCreateOrderResolvesProductCodes(t *testing.T) {
    e := newEnv(t, "order_create")
    cust := testutil.CreateCustomer(t, e.db, "acme")
    dev := testutil.CreateDevice(t, e.db, cust, "fp-1", "scanner")
    testutil.CreateProduct(t, e.db, cust, "SKU-1")
    testutil.CreateProduct(t, e.db, cust, "SKU-2")

    c, rec := request(t, http.MethodPost, "/v1/orders", map[string]interface{}{
        "order_code": "ORD-A",
        "lines": []map[string]interface{}{
            {"product_code": "SKU-1", "quantity": 2},
            {"product_code": "SKU-2", "quantity": 1},
        },
    }, cust, dev, "fp-1")
    if err := e.ord.Create(c); err != nil {
        t.Fatalf("create handler: %v", err)
    }
    wantStatus(t, rec, http.StatusCreated)
    body := decode(t, rec)
    if body["order_status"] != "draft" {
        t.Errorf("order_status = %v, want draft", body["order_status"])
    }

    var lines int
    if err := e.db.QueryRow(`SELECT COUNT(*) FROM order_lines`).Scan(&lines); err != nil {
        t.Fatalf("count lines: %v", err)
    }
    if lines != 2 {
        t.Errorf("order lines = %d, want 2", lines)
    }

    // Unknown product codes reject the whole order.
    c, rec = request(t, http.MethodPost, "/v1/orders", map[string]interface{}{
        "order_code": "ORD-B",
        "lines": []map[string]interface{}{
            {"product_code": "SKU-MISSING", "quantity": 1},
        },
    }, cust, dev, "fp-1")
    if err := e.ord.Create(c); err != nil {
        t.Fatalf("create handler: %v", err)
    }
    wantStatus(t, rec, http.StatusNotFound)
}

func TestCancelOrderThroughHandler(t *testing.T) {
    e := newEnv(t, "order_cancel")
    cust := testutil.CreateCustomer(t, e.db, "acme")
    dev := testutil.CreateDevice(t, e.db, cust, "fp-1", "scanner")
    ord := testutil.CreateOrder(t, e.db, cust, "ORD-A", "draft", nil, nil)

    c, rec := request(t, http.MethodPost, "/v1/orders/:id/cancel", nil, cust, dev, "fp-1")
    c.SetParamNames("id")
    c.SetParamValues(strconv.FormatUint(ord, 10))
    if err := e.ord.Cancel(c); err != nil {
        t.Fatalf("cancel handler: %v", err)
    }
    wantStatus(t, rec, http.StatusOK)

    got, err := e.orders.GetByID(testutil.Ctx(t), ord, cust)
    if err != nil {
        t.Fatalf("get order: %v", err)
    }
    if string(got.Status) != "cancelled" {
        t.Errorf("status = %s, want cancelled", got.Status)
    }

    // A completed order cannot be cancelled.
    done := testutil.CreateOrder(t, e.db, cust, "ORD-DONE", "completed", nil, nil)
    c, rec = request(t, http.MethodPost, "/v1/orders/:id/cancel", nil, cust, dev, "fp-1")
    c.SetParamNames("id")
    c.SetParamValues(strconv.FormatUint(done, 10))
    if err := e.ord.Cancel(c); err != nil {
        t.Fatalf("cancel handler: %v", err)
    }
    wantStatus(t, rec, http.StatusBadRequest)
}

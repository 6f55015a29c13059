package handler

import (
    "errors"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/warehouse-pick-queue/internal/model"
    "github.com/iliyamo/warehouse-pick-queue/internal/queue"
    "github.com/iliyamo/warehouse-pick-queue/internal/repository"
    event_publisher "github.com/iliyamo/warehouse-pick-queue/internal/service"
)

// ScanHandler implements the scanner-facing endpoints: submitting a
// picklist, recording individual unit scans, and completing a session.
// Devices identify themselves by fingerprint inside the request body;
// the body fingerprint must resolve to a device of the token's customer.
type ScanHandler struct {
    Orders    *repository.OrderRepo
    Devices   *repository.DeviceRepo
    Products  *repository.ProductRepo
    PickLists *repository.PickListRepo
}

// NewScanHandler constructs a ScanHandler.
func NewScanHandler(orders *repository.OrderRepo, devices *repository.DeviceRepo, products *repository.ProductRepo, picklists *repository.PickListRepo) *ScanHandler {
    if orders == nil || devices == nil || products == nil || picklists == nil {
        panic("nil repository passed to NewScanHandler")
    }
    return &ScanHandler{Orders: orders, Devices: devices, Products: products, PickLists: picklists}
}

// device resolves the body fingerprint (or the token's, when the body
// carries none) to a registered device of the caller's customer.
func (h *ScanHandler) device(c echo.Context, custID uint64, fingerprint string) (*model.Device, int, string) {
    if fingerprint == "" {
        fingerprint = tokenFingerprint(c)
    }
    if fingerprint == "" {
        return nil, http.StatusBadRequest, "fingerprint is required"
    }
    d, err := h.Devices.GetByFingerprint(c.Request().Context(), fingerprint)
    if err != nil {
        if errors.Is(err, repository.ErrDeviceNotFound) {
            return nil, http.StatusUnauthorized, "unknown device"
        }
        return nil, http.StatusInternalServerError, "database error"
    }
    if d.CustomerID != custID {
        return nil, http.StatusUnauthorized, "device belongs to another customer"
    }
    // A token is bound to one device; a body fingerprint naming a
    // different device of the same customer is spoofing, not a fallback.
    if tokDev, err := authDeviceID(c); err == nil && tokDev != d.ID {
        return nil, http.StatusUnauthorized, "fingerprint does not match the token's device"
    }
    return d, 0, ""
}

// SubmitPickList handles POST /v1/scan/picklist. A device submits the
// code it scanned plus the list of product codes on the paper list. When
// the code matches one of the customer's orders the picklist is bound to
// that order and the order goes through the same claim checks as the
// queue path; when it matches nothing an ad-hoc picklist is created.
func (h *ScanHandler) SubmitPickList(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Fingerprint  string   `json:"fingerprint"`
        PickListCode string   `json:"picklist_code"`
        ProductCodes []string `json:"product_codes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.PickListCode == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "picklist_code is required"})
    }
    if len(body.ProductCodes) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "product_codes is required"})
    }

    dev, status, msg := h.device(c, custID, body.Fingerprint)
    if dev == nil {
        return c.JSON(status, echo.Map{"error": msg})
    }

    ctx := c.Request().Context()
    tx, err := h.Orders.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Resolve codes first so an unknown product rejects the submission
    // before any ledger rows exist.
    resolved, err := h.Products.ResolveCodesTx(ctx, tx, custID, body.ProductCodes)
    if err != nil {
        if errors.Is(err, repository.ErrProductNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "one or more product codes are unknown"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    var orderID *uint64
    ord, err := h.Orders.GetByCodeForUpdateTx(ctx, tx, body.PickListCode, custID)
    switch {
    case err == nil:
        // A submission for an order goes through the same claim guard as
        // the queue path, except a draft order (printed but never queued)
        // may still be picked.
        if gerr := repository.Claimable(ord.Status); gerr != nil && ord.Status != model.StatusDraft {
            return claimRefused(c, gerr)
        }
        if ord.Status == model.StatusQueued {
            if err := h.Orders.SetStatusTx(ctx, tx, ord.ID, model.StatusInProgress); err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
            }
        }
        orderID = &ord.ID
    case errors.Is(err, repository.ErrOrderNotFound):
        // Ad-hoc picklist: the code matches no order, pick it anyway.
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    now := time.Now().UTC()
    pl, created, err := h.PickLists.UpsertResetTx(ctx, tx, custID, body.PickListCode, dev.ID, orderID, dev.Name, now)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    productIDs := make([]uint64, 0, len(body.ProductCodes))
    for _, code := range body.ProductCodes {
        productIDs = append(productIDs, resolved[code])
    }
    if err := h.PickLists.CreatePicksBulkTx(ctx, tx, pl.ID, productIDs); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    committed = true

    return c.JSON(http.StatusOK, echo.Map{
        "status":        "ok",
        "picklist_id":   pl.ID,
        "created":       created,
        "product_count": len(productIDs),
    })
}

// RecordPick handles POST /v1/scan/pick. Each call resolves exactly one
// pending ledger row for the scanned product. A scan beyond the expected
// count is not an error; it returns a noop result so a double-scan never
// blocks the worker.
func (h *ScanHandler) RecordPick(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Fingerprint  string `json:"fingerprint"`
        PickListCode string `json:"picklist_code"`
        ProductCode  string `json:"product_code"`
        Successful   *bool  `json:"successful"`
        TimeTakenMS  int64  `json:"time_taken_ms"`
        ScannedAt    string `json:"scanned_at"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.PickListCode == "" || body.ProductCode == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "picklist_code and product_code are required"})
    }
    successful := true
    if body.Successful != nil {
        successful = *body.Successful
    }

    dev, status, msg := h.device(c, custID, body.Fingerprint)
    if dev == nil {
        return c.JSON(status, echo.Map{"error": msg})
    }

    ctx := c.Request().Context()
    pl, err := h.PickLists.GetByCodeAndDevice(ctx, custID, body.PickListCode, dev.ID)
    if err != nil {
        if errors.Is(err, repository.ErrPickListNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "picklist not found for this device"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    product, err := h.Products.GetByCode(ctx, custID, body.ProductCode)
    if err != nil {
        if errors.Is(err, repository.ErrProductNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown product code"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    tx, err := h.Orders.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    now := time.Now().UTC()
    pickID, ok, err := h.PickLists.NextPendingTx(ctx, tx, pl.ID, product.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !ok {
        // Every unit of this product is already resolved; treat the
        // extra scan as a harmless repeat.
        if err := tx.Commit(); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        committed = true
        return c.JSON(http.StatusOK, echo.Map{
            "status":                "noop",
            "product_code":          product.Code,
            "remaining_for_product": 0,
        })
    }

    // The note carries the device's own scan timestamp when it sent one;
    // the server clock is only a fallback for clients that omit it.
    scannedAt := body.ScannedAt
    if scannedAt == "" {
        scannedAt = now.Format(time.RFC3339)
    }
    note := fmt.Sprintf("device=%s; scanned_at=%s", dev.Fingerprint, scannedAt)
    if err := h.PickLists.ResolvePickTx(ctx, tx, pickID, successful, time.Duration(body.TimeTakenMS)*time.Millisecond, note); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    remaining, err := h.PickLists.CountPendingTx(ctx, tx, pl.ID, product.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    committed = true

    return c.JSON(http.StatusOK, echo.Map{
        "status":                "ok",
        "product_code":          product.Code,
        "successful":            successful,
        "remaining_for_product": remaining,
    })
}

// Complete handles POST /v1/scan/complete. The session duration is
// measured server-side from pick_time so a device with a wrong clock
// cannot skew it. When the picklist is bound to an order the order is
// completed too and the device's lists_picked counter is refreshed.
// Completion is idempotent; repeating it re-asserts the terminal fields.
func (h *ScanHandler) Complete(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Fingerprint  string `json:"fingerprint"`
        PickListCode string `json:"picklist_code"`
        Successful   *bool  `json:"successful"`
        Notes        string `json:"notes"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.PickListCode == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "picklist_code is required"})
    }
    successful := true
    if body.Successful != nil {
        successful = *body.Successful
    }

    dev, status, msg := h.device(c, custID, body.Fingerprint)
    if dev == nil {
        return c.JSON(status, echo.Map{"error": msg})
    }

    ctx := c.Request().Context()
    pl, err := h.PickLists.GetByCodeAndDevice(ctx, custID, body.PickListCode, dev.ID)
    if err != nil {
        if errors.Is(err, repository.ErrPickListNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "picklist not found for this device"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    now := time.Now().UTC()
    timeTaken := now.Sub(pl.PickTime)
    if timeTaken < 0 {
        timeTaken = 0
    }

    notes := pl.Notes
    entry := fmt.Sprintf("completed by device %s at %s", dev.Name, now.Format("2006-01-02 15:04"))
    if body.Notes != "" {
        entry = entry + ": " + body.Notes
    }
    if notes != "" {
        notes = notes + "\n" + entry
    } else {
        notes = entry
    }

    tx, err := h.Orders.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if err := h.PickLists.CompleteTx(ctx, tx, pl.ID, timeTaken, successful, notes); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    orderStatus := ""
    var orderCode string
    if pl.OrderID != nil {
        ord, err := h.Orders.GetForUpdateTx(ctx, tx, *pl.OrderID, custID)
        if err != nil && !errors.Is(err, repository.ErrOrderNotFound) {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
        if ord != nil {
            if ord.Status != model.StatusCompleted {
                if err := h.Orders.CompleteTx(ctx, tx, ord.ID, now); err != nil {
                    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
                }
            }
            orderStatus = string(model.StatusCompleted)
            orderCode = ord.Code
        }
    }

    if err := h.Devices.RefreshListsPickedTx(ctx, tx, dev.ID); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    committed = true

    // Publish after commit; a broker outage must not fail the request.
    event := queue.PickListCompletedEvent{
        PickListID:   pl.ID,
        PickListCode: pl.Code,
        CustomerID:   custID,
        DeviceID:     dev.ID,
        DeviceName:   dev.Name,
        Successful:   successful,
        TimeTakenMS:  timeTaken.Milliseconds(),
        CompletedAt:  now.Format(time.RFC3339),
    }
    if pl.OrderID != nil {
        event.OrderID = *pl.OrderID
        event.OrderCode = orderCode
    }
    _ = event_publisher.PublishPickListCompleted(ctx, event)

    resp := echo.Map{
        "status":        "ok",
        "picklist_id":   pl.ID,
        "successful":    successful,
        "time_taken_ms": timeTaken.Milliseconds(),
    }
    if orderStatus != "" {
        resp["order_status"] = orderStatus
    }
    return c.JSON(http.StatusOK, resp)
}

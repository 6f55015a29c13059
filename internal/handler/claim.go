package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/warehouse-pick-queue/internal/model"
    "github.com/iliyamo/warehouse-pick-queue/internal/repository"
)

// ClaimHandler implements the claim protocol: a device takes exclusive
// ownership of a queued order and receives the expanded pick sequence.
// The whole claim runs in one transaction holding a row lock on the
// order, so when several devices claim the same order at once exactly
// one wins and the rest get a conflict response.
type ClaimHandler struct {
    Orders    *repository.OrderRepo
    Devices   *repository.DeviceRepo
    PickLists *repository.PickListRepo
}

// NewClaimHandler constructs a ClaimHandler.
func NewClaimHandler(orders *repository.OrderRepo, devices *repository.DeviceRepo, picklists *repository.PickListRepo) *ClaimHandler {
    if orders == nil || devices == nil || picklists == nil {
        panic("nil repository passed to NewClaimHandler")
    }
    return &ClaimHandler{Orders: orders, Devices: devices, PickLists: picklists}
}

// Claim handles POST /v1/queue/orders/:id/claim. On success the order
// is in_progress, a picklist exists for its code with one ledger row per
// unit of every line, and the response carries the pick sequence.
func (h *ClaimHandler) Claim(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }

    var body struct {
        Fingerprint string `json:"fingerprint"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    fingerprint := body.Fingerprint
    if fingerprint == "" {
        fingerprint = tokenFingerprint(c)
    }
    if fingerprint == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "fingerprint is required"})
    }

    ctx := c.Request().Context()
    device, err := h.Devices.GetByFingerprint(ctx, fingerprint)
    if err != nil {
        if errors.Is(err, repository.ErrDeviceNotFound) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown device, register it first"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if device.CustomerID != custID {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "device belongs to another customer"})
    }
    if tokDev, err := authDeviceID(c); err == nil && tokDev != device.ID {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "fingerprint does not match the token's device"})
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

    ord, err := h.Orders.GetForUpdateTx(ctx, tx, orderID, custID)
    if err != nil {
        if errors.Is(err, repository.ErrOrderNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    // The status check happens under the row lock, so the loser of a
    // concurrent claim observes in_progress here, never a stale queued.
    if err := repository.Claimable(ord.Status); err != nil {
        return claimRefused(c, err)
    }

    if err := h.Orders.SetStatusTx(ctx, tx, ord.ID, model.StatusInProgress); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    now := time.Now().UTC()
    pl, created, err := h.PickLists.UpsertResetTx(ctx, tx, custID, ord.Code, device.ID, &ord.ID, device.Name, now)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    lines, err := h.Orders.LinesTx(ctx, tx, ord.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    // Expand each line into one ledger row per unit so every scan
    // resolves exactly one row.
    productIDs := make([]uint64, 0, len(lines))
    codes := make([]string, 0, len(lines))
    for _, l := range lines {
        for q := uint32(0); q < l.Quantity; q++ {
            productIDs = append(productIDs, l.ProductID)
            codes = append(codes, l.ProductCode)
        }
    }
    if err := h.PickLists.CreatePicksBulkTx(ctx, tx, pl.ID, productIDs); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    committed = true

    return c.JSON(http.StatusOK, echo.Map{
        "status":           "ok",
        "order_code":       ord.Code,
        "picklist_id":      pl.ID,
        "picklist_created": created,
        "picklist":         codes,
        "redirect_url":     "/",
    })
}

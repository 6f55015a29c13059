package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/warehouse-pick-queue/internal/model"
    "github.com/iliyamo/warehouse-pick-queue/internal/repository"
)

// OrderHandler implements order creation and cancellation. Orders are
// created as drafts; joining the queue is a separate step handled by
// QueueHandler.
type OrderHandler struct {
    Orders   *repository.OrderRepo
    Products *repository.ProductRepo
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders *repository.OrderRepo, products *repository.ProductRepo) *OrderHandler {
    if orders == nil || products == nil {
        panic("nil repository passed to NewOrderHandler")
    }
    return &OrderHandler{Orders: orders, Products: products}
}

// Create handles POST /v1/orders. Lines reference products by code;
// every code must resolve within the customer's catalogue or the whole
// order is rejected.
func (h *OrderHandler) Create(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Code  string `json:"order_code"`
        Notes string `json:"notes"`
        Lines []struct {
            ProductCode string `json:"product_code"`
            Quantity    uint32 `json:"quantity"`
        } `json:"lines"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_code is required"})
    }
    if len(body.Lines) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "lines is required"})
    }
    codes := make([]string, 0, len(body.Lines))
    for _, l := range body.Lines {
        if l.ProductCode == "" || l.Quantity == 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "every line needs a product_code and a positive quantity"})
        }
        codes = append(codes, l.ProductCode)
    }

    ctx := c.Request().Context()
    resolved, err := h.Products.ResolveCodes(ctx, custID, codes)
    if err != nil {
        if errors.Is(err, repository.ErrProductNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "one or more product codes are unknown"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    ord := &model.Order{CustomerID: custID, Code: body.Code, Notes: body.Notes}
    lines := make([]model.OrderLine, 0, len(body.Lines))
    for _, l := range body.Lines {
        lines = append(lines, model.OrderLine{ProductID: resolved[l.ProductCode], Quantity: l.Quantity})
    }
    if err := h.Orders.Create(ctx, ord, lines); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
    }

    return c.JSON(http.StatusCreated, echo.Map{
        "status":     "ok",
        "order_id":   ord.ID,
        "order_code": ord.Code,
        "order_status": string(ord.Status),
    })
}

// Cancel handles POST /v1/orders/:id/cancel. Only draft and queued
// orders may be cancelled; an order a device is already picking has to
// be dequeued first.
func (h *OrderHandler) Cancel(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }

    if err := h.Orders.Cancel(c.Request().Context(), orderID, custID); err != nil {
        switch {
        case errors.Is(err, repository.ErrOrderNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        case errors.Is(err, repository.ErrInvalidState):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "order cannot be cancelled from its current status"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "ok", "order_id": orderID})
}

package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/warehouse-pick-queue/internal/repository"
)

// completedFadeWindow is how long a completed order keeps showing up in
// the queue listing after completion, so the display can fade it out
// instead of having it vanish between two polls.
const completedFadeWindow = 30 * time.Second

// QueueHandler implements the queue management endpoints: listing,
// enqueue, dequeue, full reorder and single-step moves. Every operation
// is scoped to the customer carried in the device token.
type QueueHandler struct {
    Orders *repository.OrderRepo
}

// NewQueueHandler constructs a QueueHandler.
func NewQueueHandler(orders *repository.OrderRepo) *QueueHandler {
    if orders == nil {
        panic("nil repository passed to NewQueueHandler")
    }
    return &QueueHandler{Orders: orders}
}

// List handles GET /v1/queue. It returns queued and in_progress orders
// in queue order, plus orders completed within the fade-out window.
func (h *QueueHandler) List(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    cutoff := time.Now().UTC().Add(-completedFadeWindow)
    entries, err := h.Orders.ListQueue(c.Request().Context(), custID, cutoff)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"orders": entries})
}

// Enqueue handles POST /v1/queue/orders/:id. A draft order joins the
// back of the queue and its assigned position is returned.
func (h *QueueHandler) Enqueue(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }

    pos, err := h.Orders.Enqueue(c.Request().Context(), orderID, custID)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrOrderNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        case errors.Is(err, repository.ErrInvalidState):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "order cannot be queued from its current status"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "ok", "order_id": orderID, "queue_position": pos})
}

// Dequeue handles DELETE /v1/queue/orders/:id. The order returns to
// draft and loses its position.
func (h *QueueHandler) Dequeue(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }

    if err := h.Orders.Dequeue(c.Request().Context(), orderID, custID); err != nil {
        switch {
        case errors.Is(err, repository.ErrOrderNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
        case errors.Is(err, repository.ErrInvalidState):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "order is not in the queue"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "ok", "order_id": orderID})
}

// Reorder handles POST /v1/queue/reorder. The body carries the desired
// front-to-back order of IDs; positions are rewritten 1..N. Unknown or
// foreign IDs are skipped rather than rejected, matching how a stale
// drag-and-drop client should behave.
func (h *QueueHandler) Reorder(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        OrderIDs []uint64 `json:"order_ids"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if len(body.OrderIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "order_ids is required"})
    }

    if err := h.Orders.Reorder(c.Request().Context(), custID, body.OrderIDs); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Move handles POST /v1/queue/orders/:id/move. It swaps the order with
// its neighbour in the requested direction; at the edge of the queue it
// is a no-op and the unchanged position is returned.
func (h *QueueHandler) Move(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
    }
    var body struct {
        Direction string `json:"direction"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Direction != "up" && body.Direction != "down" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "direction must be \"up\" or \"down\""})
    }

    pos, err := h.Orders.Move(c.Request().Context(), orderID, custID, body.Direction)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrOrderNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found in queue"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "ok", "order_id": orderID, "queue_position": pos})
}

package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/warehouse-pick-queue/internal/repository"
    "github.com/iliyamo/warehouse-pick-queue/internal/utils"
)

// DeviceHandler implements device registration. Registration is the
// one endpoint that runs without a device token: a device presents its
// fingerprint, display name and customer, and receives a signed token
// used on every subsequent call. Registering an already-known
// fingerprint refreshes the name and last_login and returns a fresh
// token, so the endpoint doubles as the device login.
type DeviceHandler struct {
    Devices   *repository.DeviceRepo
    JWTSecret string
    TokenTTL  int // minutes
}

// NewDeviceHandler constructs a DeviceHandler.
func NewDeviceHandler(devices *repository.DeviceRepo, secret string, ttlMin int) *DeviceHandler {
    if devices == nil {
        panic("nil repository passed to NewDeviceHandler")
    }
    return &DeviceHandler{Devices: devices, JWTSecret: secret, TokenTTL: ttlMin}
}

// Register handles POST /v1/devices/register.
func (h *DeviceHandler) Register(c echo.Context) error {
    var body struct {
        Fingerprint string `json:"fingerprint"`
        Name        string `json:"name"`
        CustomerID  uint64 `json:"customer_id"`
        Description string `json:"description"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Fingerprint == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "fingerprint is required"})
    }
    if body.CustomerID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_id is required"})
    }

    ctx := c.Request().Context()
    device, created, err := h.Devices.Register(ctx, body.CustomerID, body.Fingerprint, body.Name, body.Description, time.Now().UTC())
    if err != nil {
        if errors.Is(err, repository.ErrFingerprintTaken) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "fingerprint already registered to another customer"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }

    token, err := utils.NewDeviceToken(h.JWTSecret, device.ID, device.CustomerID, device.Fingerprint, h.TokenTTL)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
    }

    status := http.StatusOK
    if created {
        status = http.StatusCreated
    }
    return c.JSON(status, echo.Map{
        "status":     "ok",
        "device_id":  device.ID,
        "created":    created,
        "token":      token.Token,
        "expires_at": token.Exp.Format(time.RFC3339),
    })
}

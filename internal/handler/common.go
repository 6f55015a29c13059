package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/warehouse-pick-queue/internal/repository"
)

// errNoIdentity is returned by the context helpers when the auth
// middleware did not run or the token carried no usable identity.
var errNoIdentity = errors.New("no authenticated identity in context")

// customerID extracts the tenant scope placed in the context by the
// DeviceAuth middleware. Handlers must never take the customer from the
// request body; the token is the only source of tenant identity.
func customerID(c echo.Context) (uint64, error) {
    if v, ok := c.Get("customer_id").(uint64); ok && v != 0 {
        return v, nil
    }
    return 0, errNoIdentity
}

// authDeviceID extracts the device identity from the context.
func authDeviceID(c echo.Context) (uint64, error) {
    if v, ok := c.Get("device_id").(uint64); ok && v != 0 {
        return v, nil
    }
    return 0, errNoIdentity
}

// tokenFingerprint returns the fingerprint claim from the device token,
// or an empty string. Used as a fallback when a request body does not
// repeat the fingerprint.
func tokenFingerprint(c echo.Context) string {
    if v, ok := c.Get("fingerprint").(string); ok {
        return v
    }
    return ""
}

// claimRefused translates a repository.Claimable refusal into the HTTP
// response both claim paths return.
func claimRefused(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrAlreadyPicking):
        return c.JSON(http.StatusConflict, echo.Map{"error": "This order is already being picked"})
    case errors.Is(err, repository.ErrAlreadyCompleted):
        return c.JSON(http.StatusConflict, echo.Map{"error": "This order has already been completed"})
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "order is not available for picking"})
    }
}

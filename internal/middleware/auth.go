package middleware // reusable HTTP middleware for the pick-queue API

import (
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// DeviceAuth returns an Echo middleware that validates the Bearer device
// token issued at registration and injects the device identity into the
// request context. Handlers read the tenant scope exclusively from
// these values, never from the request body. The provided secret must
// match the one used when issuing tokens.
func DeviceAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                // Reject any signing method other than HMAC.
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            deviceID, ok1 := claimUint64(claims, "sub")
            customerID, ok2 := claimUint64(claims, "customer_id")
            if !ok1 || !ok2 || deviceID == 0 || customerID == 0 {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            c.Set("device_id", deviceID)
            c.Set("customer_id", customerID)
            if fp, ok := claims["fingerprint"].(string); ok {
                c.Set("fingerprint", fp)
            }
            return next(c)
        }
    }
}

// claimUint64 reads a numeric claim. JSON numbers decode as float64, so
// both representations are accepted.
func claimUint64(claims jwt.MapClaims, key string) (uint64, bool) {
    switch v := claims[key].(type) {
    case float64:
        if v < 0 {
            return 0, false
        }
        return uint64(v), true
    case uint64:
        return v, true
    case int64:
        if v < 0 {
            return 0, false
        }
        return uint64(v), true
    }
    return 0, false
}

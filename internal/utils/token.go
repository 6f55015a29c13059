package utils // helper functions for device token creation

import (
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// DeviceToken represents a signed JWT identifying one registered device.
// The Token field contains the JWT string; Exp stores the expiration
// timestamp. Devices send the token in the Authorization header on
// every call after registration.
type DeviceToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewDeviceToken builds and signs an HS256 JWT for a device. The claims
// carry the device ID as subject, the owning customer for tenant
// scoping, and the fingerprint so a handler can fall back to it when no
// fingerprint is present in the request body.
func NewDeviceToken(secret string, deviceID, customerID uint64, fingerprint string, ttlMin int) (DeviceToken, error) {
    exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":         deviceID,
        "customer_id": customerID,
        "fingerprint": fingerprint,
        "exp":         exp.Unix(),
        "iat":         time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return DeviceToken{}, err
    }
    return DeviceToken{Token: signed, Exp: exp}, nil
}

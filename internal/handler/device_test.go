package handler_test

import (
    "bytes"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/warehouse-pick-queue/internal/handler"
    "github.com/iliyamo/warehouse-pick-queue/internal/testutil"
)

func registerDevice(t *testing.T, h *handler.DeviceHandler, body interface{}) (int, map[string]interface{}) {
    t.Helper()
    var buf bytes.Buffer
    if err := json.NewEncoder(&buf).Encode(body); err != nil {
        t.Fatalf("encode body: %v", err)
    }
    req := httptest.NewRequest(http.MethodPost, "/v1/devices/register", &buf)
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := echo.New().NewContext(req, rec)
    if err := h.Register(c); err != nil {
        t.Fatalf("register handler: %v", err)
    }
    return rec.Code, decode(t, rec)
}

func TestRegisterIssuesToken(t *testing.T) {
    e := newEnv(t, "device_handler")
    cust := testutil.CreateCustomer(t, e.db, "acme")
    h := handler.NewDeviceHandler(e.devices, "test-secret", 60)

    code, body := registerDevice(t, h, map[string]interface{}{
        "fingerprint": "fp-1",
        "name":        "scanner",
        "customer_id": cust,
    })
    if code != http.StatusCreated {
        t.Fatalf("register status = %d, want 201 (body %v)", code, body)
    }
    if body["token"] == nil || body["token"] == "" {
        t.Error("no token issued")
    }
    if body["created"] != true {
        t.Error("created should be true on first registration")
    }

    // Repeat registration returns 200 and a fresh token.
    code, body = registerDevice(t, h, map[string]interface{}{
        "fingerprint": "fp-1",
        "name":        "scanner",
        "customer_id": cust,
    })
    if code != http.StatusOK {
        t.Fatalf("repeat register status = %d, want 200", code)
    }
    if body["created"] != false {
        t.Error("created should be false on repeat registration")
    }

    // Another customer cannot take the fingerprint.
    other := testutil.CreateCustomer(t, e.db, "globex")
    code, _ = registerDevice(t, h, map[string]interface{}{
        "fingerprint": "fp-1",
        "name":        "scanner",
        "customer_id": other,
    })
    if code != http.StatusConflict {
        t.Errorf("foreign register status = %d, want 409", code)
    }
}

func TestRegisterValidation(t *testing.T) {
    e := newEnv(t, "device_validation")
    h := handler.NewDeviceHandler(e.devices, "test-secret", 60)

    if code, _ := registerDevice(t, h, map[string]interface{}{"name": "x", "customer_id": 1}); code != http.StatusBadRequest {
        t.Errorf("missing fingerprint: status = %d, want 400", code)
    }
    if code, _ := registerDevice(t, h, map[string]interface{}{"fingerprint": "fp-1"}); code != http.StatusBadRequest {
        t.Errorf("missing customer: status = %d, want 400", code)
    }
}

package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/warehouse-pick-queue/internal/model"
    "github.com/iliyamo/warehouse-pick-queue/internal/repository"
)

// ProductHandler implements the product catalogue endpoints.
type ProductHandler struct {
    Products *repository.ProductRepo
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(products *repository.ProductRepo) *ProductHandler {
    if products == nil {
        panic("nil repository passed to NewProductHandler")
    }
    return &ProductHandler{Products: products}
}

// Create handles POST /v1/products.
func (h *ProductHandler) Create(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Code        string `json:"code"`
        Description string `json:"description"`
        Location    string `json:"location"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Code == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
    }

    p := &model.Product{
        CustomerID:  custID,
        Code:        body.Code,
        Description: body.Description,
        Location:    body.Location,
        Active:      true,
    }
    if err := h.Products.Create(c.Request().Context(), p); err != nil {
        return c.JSON(http.StatusConflict, echo.Map{"error": "product code already exists"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"status": "ok", "product_id": p.ID, "code": p.Code})
}

// List handles GET /v1/products.
func (h *ProductHandler) List(c echo.Context) error {
    custID, err := customerID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    products, err := h.Products.List(c.Request().Context(), custID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]echo.Map, 0, len(products))
    for _, p := range products {
        out = append(out, echo.Map{
            "product_id":  p.ID,
            "code":        p.Code,
            "description": p.Description,
            "location":    p.Location,
            "active":      p.Active,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"products": out})
}

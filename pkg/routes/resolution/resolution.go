// Package resolution exposes on-demand entity resolution endpoints
package resolution

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/resolver"
)

var validate = validator.New()

// Register registers resolution routes
func Register(g *echo.Group) {
	g.POST("/resolve", ResolveParty)
	g.POST("/batch", ResolveBatch)
}

// ResolveParty resolves a single extracted party against known entities
func ResolveParty(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.ResolveRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !req.Kind.IsValid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "kind must be supplier or customer")
	}

	ctx, res, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result := res.Resolve(ctx, req.Kind, req.Candidate)
	return c.JSON(http.StatusOK, result)
}

// ResolveBatch resolves the parties of a batch of extracted invoices
func ResolveBatch(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.ResolveBatchRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, res, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result := res.ResolveInvoiceEntities(ctx, req.Invoices)
	return c.JSON(http.StatusOK, result)
}

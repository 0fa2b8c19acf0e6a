// Package entity exposes supplier and customer management endpoints
package entity

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	entityrepo "github.com/Ramsey-B/fern/internal/repositories/entity"
	"github.com/Ramsey-B/fern/pkg/models"
)

var validate = validator.New()

// Register registers entity routes
func Register(g *echo.Group) {
	g.GET("", ListEntities)
	g.GET("/:id", GetEntity)
	g.POST("", CreateEntity)
	g.POST("/:id/deactivate", DeactivateEntity)
}

// ListEntities lists entities with paging, optionally filtered by kind
func ListEntities(c echo.Context) error {
	ctx := c.Request().Context()

	kind := models.EntityKind(c.QueryParam("kind"))
	if kind != "" && !kind.IsValid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "kind must be supplier or customer")
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, repo, err := ectoinject.GetContext[*entityrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := repo.List(ctx, kind, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// GetEntity gets an entity by ID
func GetEntity(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, repo, err := ectoinject.GetContext[*entityrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entity, err := repo.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, entity)
}

// CreateEntity creates an entity manually
func CreateEntity(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateEntityRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !req.Kind.IsValid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "kind must be supplier or customer")
	}
	// manual creation is never flagged as auto-created
	req.AutoCreated = false

	ctx, repo, err := ectoinject.GetContext[*entityrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	entity, err := repo.Create(ctx, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, entity)
}

// DeactivateEntity marks an entity inactive
func DeactivateEntity(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, repo, err := ectoinject.GetContext[*entityrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Deactivate(ctx, c.Param("id")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "inactive"})
}

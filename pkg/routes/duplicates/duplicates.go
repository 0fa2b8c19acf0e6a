// Package duplicates exposes duplicate detection and group resolution endpoints
package duplicates

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/document"
	"github.com/Ramsey-B/fern/pkg/dedup"
	"github.com/Ramsey-B/fern/pkg/models"
)

var validate = validator.New()

// Register registers duplicate detection routes
func Register(g *echo.Group) {
	g.POST("/detect", DetectDuplicates)
	g.GET("/groups", ListGroups)
	g.GET("/groups/:id", GetGroup)
	g.POST("/groups/:id/resolve", ResolveGroup)
}

// DetectDuplicates runs on-demand detection for a candidate fingerprint
// against the tenant's recent documents
func DetectDuplicates(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.DetectDuplicatesRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Candidate.FileName == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "candidate file_name is required")
	}

	ctx, docRepo, err := ectoinject.GetContext[*document.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, detector, err := ectoinject.GetContext[*dedup.Detector](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, groups, err := ectoinject.GetContext[*dedup.GroupManager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	existing, err := docRepo.ListFingerprints(ctx, 0)
	if err != nil {
		return err
	}

	matches := detector.DetectDuplicates(ctx, req.Candidate, existing)
	resp := models.DetectDuplicatesResponse{Matches: matches}
	if req.Candidate.DocumentID != "" {
		resp.Group = groups.MaybeGroup(ctx, req.Candidate.DocumentID, matches)
	}

	return c.JSON(http.StatusOK, resp)
}

// ListGroups lists pending duplicate groups for the tenant
func ListGroups(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, groups, err := ectoinject.GetContext[*dedup.GroupManager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	return c.JSON(http.StatusOK, groups.List(ctx))
}

// GetGroup retrieves a pending duplicate group
func GetGroup(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, groups, err := ectoinject.GetContext[*dedup.GroupManager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	group, err := groups.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, group)
}

// ResolveGroup applies an operator action to a pending duplicate group
func ResolveGroup(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.ResolveGroupRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, groups, err := ectoinject.GetContext[*dedup.GroupManager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := groups.Resolve(ctx, c.Param("id"), req.Action); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "resolved"})
}

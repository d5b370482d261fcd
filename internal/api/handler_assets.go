package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"assetdesk-backend/internal/asset"
	"assetdesk-backend/internal/export"
	"assetdesk-backend/internal/upstream"
)

const assetsPath = "/api/assets"

func (h *Handler) activeAssets(c *gin.Context) ([]asset.Record, bool) {
	records, err := h.assets.ListAssets(c.Request.Context())
	if err != nil {
		h.log.Warn("failed to list assets", zap.Error(err))
		errorJSON(c, http.StatusBadGateway, "failed to load assets")
		return nil, false
	}
	return asset.ActiveOnly(records), true
}

// ListAssets returns active assets, filtered by name when search is given.
func (h *Handler) ListAssets(c *gin.Context) {
	records, ok := h.activeAssets(c)
	if !ok {
		return
	}
	records = asset.FilterByName(records, c.Query("search"))
	if records == nil {
		records = []asset.Record{}
	}
	c.JSON(http.StatusOK, records)
}

// DeactivateAsset marks an asset inactive upstream.
func (h *Handler) DeactivateAsset(c *gin.Context) {
	err := h.assets.DeactivateAsset(c.Request.Context(), asset.Scalar(c.Param("id")))
	switch {
	case upstream.IsNotFound(err):
		errorJSON(c, http.StatusNotFound, "asset not found")
		return
	case err != nil:
		h.log.Warn("failed to deactivate asset", zap.String("id", c.Param("id")), zap.Error(err))
		errorJSON(c, http.StatusBadGateway, "failed to deactivate asset")
		return
	}
	h.invalidateAssets()
	c.Status(http.StatusNoContent)
}

// ExportAssets downloads active assets as a spreadsheet.
func (h *Handler) ExportAssets(c *gin.Context) {
	records, ok := h.activeAssets(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.Assets(&buf, records); err != nil {
		h.internalError(c, err)
		return
	}

	filename := fmt.Sprintf("assets-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// RefreshDropdowns drops the cached dropdown lists so wizards opened afterwards fetch them again.
func (h *Handler) RefreshDropdowns(c *gin.Context) {
	if h.dropdowns == nil {
		errorJSON(c, http.StatusServiceUnavailable, "dropdown cache is not configured")
		return
	}
	h.dropdowns.InvalidateDropdowns()
	c.Status(http.StatusNoContent)
}

package api

import (
	"context"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"assetdesk-backend/internal/asset"
	"assetdesk-backend/internal/bankuploads"
	"assetdesk-backend/internal/mw"
	"assetdesk-backend/internal/session"
	"assetdesk-backend/internal/store"
	"assetdesk-backend/internal/wizard"
)

// AssetDirectory lists and deactivates assets on the upstream.
type AssetDirectory interface {
	ListAssets(ctx context.Context) ([]asset.Record, error)
	DeactivateAsset(ctx context.Context, id asset.Scalar) error
}

// DropdownCache drops cached company, property and project lists.
type DropdownCache interface {
	InvalidateDropdowns()
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Store     store.Store
	Webpush   *webpush.Options
	Sessions  *session.Manager
	Assets    AssetDirectory
	Dropdowns DropdownCache
	LastView  *bankuploads.Service
	Cache     *mw.ResponseCache
	Log       *zap.Logger

	// MaxUploadBytes caps a file upload request body. Zero means no cap.
	MaxUploadBytes int64
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	webpush   *webpush.Options
	sessions  *session.Manager
	assets    AssetDirectory
	dropdowns DropdownCache
	lastView  *bankuploads.Service
	cache     *mw.ResponseCache
	log       *zap.Logger

	maxUpload int64
}

// NewHandler creates a new API handler. Saving an asset through a wizard invalidates the
// cached asset list.
func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		store:     d.Store,
		webpush:   d.Webpush,
		sessions:  d.Sessions,
		assets:    d.Assets,
		dropdowns: d.Dropdowns,
		lastView:  d.LastView,
		cache:     d.Cache,
		log:       log,

		maxUpload: d.MaxUploadBytes,
	}
	if h.sessions != nil {
		h.sessions.OnSaved(func(wizard.Result) {
			h.invalidateAssets()
		})
	}
	return h
}

func (h *Handler) invalidateAssets() {
	if h.cache != nil {
		h.cache.Invalidate(assetsPath)
	}
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	errorJSON(c, http.StatusInternalServerError, "internal server error")
}

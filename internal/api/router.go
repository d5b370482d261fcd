package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"assetdesk-backend/config"
	"assetdesk-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, d Deps) *gin.Engine {
	if d.Cache == nil {
		d.Cache = mw.NewResponseCache(cfg.CacheTTL)
	}
	if d.MaxUploadBytes == 0 && cfg.MaxUploadMB > 0 {
		d.MaxUploadBytes = int64(cfg.MaxUploadMB) << 20
	}
	handler := NewHandler(d)

	r := gin.New()
	r.Use(mw.Logger(handler.log), gin.Recovery())

	api := r.Group("/api")
	if cfg.RateLimitPerSec > 0 {
		api.Use(mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst))
	}
	{
		wizards := api.Group("/asset-wizards")
		wizards.POST("", handler.OpenWizard)
		wizards.GET("/:id", handler.GetWizard)
		wizards.DELETE("/:id", handler.CancelWizard)
		wizards.PATCH("/:id/fields", handler.SetField)
		wizards.POST("/:id/next", handler.Next)
		wizards.POST("/:id/back", handler.Back)
		wizards.POST("/:id/service-dues", handler.AddServiceDue)
		wizards.PATCH("/:id/service-dues/:index", handler.UpdateServiceDue)
		wizards.DELETE("/:id/service-dues/:index", handler.RemoveServiceDue)
		wizards.POST("/:id/files", handler.AttachFiles)
		wizards.DELETE("/:id/documents/:doc_id", handler.DeleteDocument)

		api.GET("/assets", d.Cache.Middleware(), handler.ListAssets)
		api.GET("/assets/export", handler.ExportAssets)
		api.DELETE("/assets/:id", handler.DeactivateAsset)
		api.POST("/dropdowns/refresh", handler.RefreshDropdowns)

		api.GET("/bank-uploads/last-view", handler.GetLastView)
		api.PUT("/bank-uploads/last-view", handler.PutLastView)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"assetdesk-backend/internal/bankuploads"
	"assetdesk-backend/internal/mw"
)

// GetLastView restores the bank account and batch the client looked at last.
func (h *Handler) GetLastView(c *gin.Context) {
	view, err := h.lastView.Restore(c.Request.Context(), mw.ClientID(c))
	if err != nil {
		h.log.Warn("failed to restore bank upload view", zap.Error(err))
		errorJSON(c, http.StatusBadGateway, "failed to restore last view")
		return
	}
	c.JSON(http.StatusOK, view)
}

// PutLastView remembers the bank account and batch the client is looking at.
func (h *Handler) PutLastView(c *gin.Context) {
	var view bankuploads.LastView
	if err := c.ShouldBindJSON(&view); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.lastView.Remember(c.Request.Context(), mw.ClientID(c), view)
	switch {
	case errors.Is(err, bankuploads.ErrAccountRequired):
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

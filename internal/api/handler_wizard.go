package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"assetdesk-backend/internal/asset"
	"assetdesk-backend/internal/notification"
	"assetdesk-backend/internal/session"
	"assetdesk-backend/internal/wizard"
)

// wizardResponse is the view of a session plus the toasts raised since the last response.
type wizardResponse struct {
	SessionID string `json:"session_id"`
	wizard.View
	Notifications []notification.Toast `json:"notifications"`
}

func respondWizard(c *gin.Context, status int, s *session.Session) {
	c.JSON(status, wizardResponse{
		SessionID:     s.ID,
		View:          s.Wizard.View(),
		Notifications: s.Feed.Drain(),
	})
}

// session resolves the :id parameter, writing a 404 when the session is unknown.
func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		errorJSON(c, http.StatusNotFound, err.Error())
		return nil, false
	}
	return s, true
}

// wizardError maps a wizard operation error to a status code.
func (h *Handler) wizardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wizard.ErrBusy):
		errorJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, wizard.ErrClosed):
		errorJSON(c, http.StatusGone, err.Error())
	case errors.Is(err, wizard.ErrUnknownDocument):
		errorJSON(c, http.StatusNotFound, err.Error())
	case errors.Is(err, asset.ErrUnknownField),
		errors.Is(err, asset.ErrInvalidValue),
		errors.Is(err, asset.ErrEntryIndex):
		errorJSON(c, http.StatusBadRequest, err.Error())
	default:
		h.internalError(c, err)
	}
}

type openWizardRequest struct {
	AssetID asset.Scalar `json:"asset_id"`
}

// OpenWizard starts a wizard session in add mode, or in edit mode for asset_id.
func (h *Handler) OpenWizard(c *gin.Context) {
	var req openWizardRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			errorJSON(c, http.StatusBadRequest, "invalid request")
			return
		}
	}

	s, err := h.sessions.Open(c.Request.Context(), req.AssetID.String())
	switch {
	case errors.Is(err, session.ErrAssetNotFound):
		errorJSON(c, http.StatusNotFound, err.Error())
		return
	case err != nil:
		h.log.Warn("failed to open wizard", zap.Error(err))
		errorJSON(c, http.StatusBadGateway, "failed to load assets")
		return
	}
	respondWizard(c, http.StatusCreated, s)
}

// GetWizard returns the current view of a session.
func (h *Handler) GetWizard(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	respondWizard(c, http.StatusOK, s)
}

// CancelWizard discards a session without saving.
func (h *Handler) CancelWizard(c *gin.Context) {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		errorJSON(c, http.StatusNotFound, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

type fieldRequest struct {
	Field string          `json:"field" binding:"required"`
	Value json.RawMessage `json:"value"`
}

// scalarText turns a JSON string, number, bool or null into form text.
func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch v.(type) {
	case bool, float64:
		return string(raw), nil
	}
	return "", fmt.Errorf("value must be a scalar")
}

func bindField(c *gin.Context) (string, string, bool) {
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid request")
		return "", "", false
	}
	value, err := scalarText(req.Value)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return "", "", false
	}
	return req.Field, value, true
}

// SetField updates one draft field.
func (h *Handler) SetField(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	field, value, ok := bindField(c)
	if !ok {
		return
	}
	if err := s.Wizard.Set(asset.Field(field), value); err != nil {
		h.wizardError(c, err)
		return
	}
	respondWizard(c, http.StatusOK, s)
}

// Next validates the current step and advances, submitting on the last step.
func (h *Handler) Next(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	// A submit already sent upstream completes even when the browser goes away.
	if err := s.Wizard.Next(context.WithoutCancel(c.Request.Context())); err != nil {
		h.wizardError(c, err)
		return
	}
	respondWizard(c, http.StatusOK, s)
}

// Back returns to the previous step.
func (h *Handler) Back(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Wizard.Back(); err != nil {
		h.wizardError(c, err)
		return
	}
	respondWizard(c, http.StatusOK, s)
}

// AddServiceDue appends an empty service due entry.
func (h *Handler) AddServiceDue(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Wizard.AddEntry(); err != nil {
		h.wizardError(c, err)
		return
	}
	respondWizard(c, http.StatusOK, s)
}

func entryIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "index must be an integer")
		return 0, false
	}
	return index, true
}

// UpdateServiceDue sets one field of a service due entry.
func (h *Handler) UpdateServiceDue(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := entryIndex(c)
	if !ok {
		return
	}
	field, value, ok := bindField(c)
	if !ok {
		return
	}
	if err := s.Wizard.UpdateEntry(index, asset.ScheduleField(field), value); err != nil {
		h.wizardError(c, err)
		return
	}
	respondWizard(c, http.StatusOK, s)
}

// RemoveServiceDue deletes a service due entry.
func (h *Handler) RemoveServiceDue(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, ok := entryIndex(c)
	if !ok {
		return
	}
	if err := s.Wizard.RemoveEntry(index); err != nil {
		h.wizardError(c, err)
		return
	}
	respondWizard(c, http.StatusOK, s)
}

// AttachFiles accepts one batch of files from the multipart field "files".
func (h *Handler) AttachFiles(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	form, err := c.MultipartForm()
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid multipart form")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		errorJSON(c, http.StatusBadRequest, "files are required")
		return
	}

	batch := make([]asset.Attachment, 0, len(headers))
	for _, fh := range headers {
		a, err := readAttachment(fh)
		if err != nil {
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
		batch = append(batch, a)
	}

	if err := s.Wizard.AttachFiles(batch); err != nil {
		h.wizardError(c, err)
		return
	}
	respondWizard(c, http.StatusOK, s)
}

// readAttachment loads a part. Oversized parts are not read: their size alone rejects the batch.
// The declared content type is replaced by a sniffed one when the browser sent none or a
// generic one.
func readAttachment(fh *multipart.FileHeader) (asset.Attachment, error) {
	contentType := asset.NormalizeContentType(fh.Header.Get("Content-Type"))
	if fh.Size > asset.MaxAttachmentSize {
		return asset.Attachment{Name: fh.Filename, ContentType: contentType, Size: fh.Size}, nil
	}

	f, err := fh.Open()
	if err != nil {
		return asset.Attachment{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return asset.Attachment{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}

	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	return asset.NewAttachment(fh.Filename, contentType, data), nil
}

// DeleteDocument removes a persisted document of the asset being edited.
func (h *Handler) DeleteDocument(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	if err := s.Wizard.DeleteDocument(ctx, asset.Scalar(c.Param("doc_id"))); err != nil {
		h.wizardError(c, err)
		return
	}
	respondWizard(c, http.StatusOK, s)
}

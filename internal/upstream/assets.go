package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"assetdesk-backend/internal/asset"
)

// ListAssets returns the active assets. Inactive records are filtered out here since the
// upstream list endpoint returns soft-deleted assets too.
func (c *Client) ListAssets(ctx context.Context) ([]asset.Record, error) {
	var records []asset.Record
	if err := c.getJSON(ctx, "assets/", nil, &records); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return asset.ActiveOnly(records), nil
}

// CreateAsset posts a new asset as multipart form data.
func (c *Client) CreateAsset(ctx context.Context, p asset.Payload) (asset.Record, error) {
	rec, err := c.sendAsset(ctx, http.MethodPost, "assets/", p)
	if err != nil {
		return asset.Record{}, fmt.Errorf("create asset: %w", err)
	}
	return rec, nil
}

// UpdateAsset replaces an existing asset. The payload must carry the asset id.
func (c *Client) UpdateAsset(ctx context.Context, p asset.Payload) (asset.Record, error) {
	if p.ID == "" {
		return asset.Record{}, fmt.Errorf("update asset: missing asset id")
	}
	rec, err := c.sendAsset(ctx, http.MethodPut, "assets/"+escapeID(p.ID)+"/", p)
	if err != nil {
		return asset.Record{}, fmt.Errorf("update asset %s: %w", p.ID, err)
	}
	return rec, nil
}

// DeactivateAsset soft-deletes an asset.
func (c *Client) DeactivateAsset(ctx context.Context, id asset.Scalar) error {
	body, err := json.Marshal(map[string]bool{"is_active": false})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, "assets/"+escapeID(id)+"/", nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("deactivate asset %s: %w", id, err)
	}
	return nil
}

// DeleteDocument removes a persisted document.
func (c *Client) DeleteDocument(ctx context.Context, id asset.Scalar) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "asset-documents/"+escapeID(id)+"/", nil, nil)
	if err != nil {
		return err
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func (c *Client) sendAsset(ctx context.Context, method, path string, p asset.Payload) (asset.Record, error) {
	body, contentType, err := encodeMultipart(p)
	if err != nil {
		return asset.Record{}, err
	}
	req, err := c.newRequest(ctx, method, path, nil, body)
	if err != nil {
		return asset.Record{}, err
	}
	req.Header.Set("Content-Type", contentType)

	var rec asset.Record
	if err := c.do(req, &rec); err != nil {
		return asset.Record{}, err
	}
	return rec, nil
}

func escapeID(id asset.Scalar) string {
	return url.PathEscape(string(id))
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart writes the scalar fields in payload order, then the service_dues JSON part,
// then one documents part per attachment.
func encodeMultipart(p asset.Payload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range p.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}
	if err := w.WriteField(asset.FormServiceDues, string(p.ServiceDues)); err != nil {
		return nil, "", fmt.Errorf("write field %s: %w", asset.FormServiceDues, err)
	}

	for _, file := range p.Files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			asset.FormDocuments, quoteEscaper.Replace(file.Name)))
		h.Set("Content-Type", file.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part for %s: %w", file.Name, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", fmt.Errorf("write part for %s: %w", file.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

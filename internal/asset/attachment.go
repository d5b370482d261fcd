package asset

import (
	"fmt"
	"strings"
)

// MaxAttachmentSize is the per-file ceiling for new documents.
const MaxAttachmentSize = 5 * 1024 * 1024

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
}

// Attachment is a new file waiting to be uploaded with the asset.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// NewAttachment builds an attachment from its content.
func NewAttachment(name, contentType string, data []byte) Attachment {
	return Attachment{
		Name:        name,
		ContentType: NormalizeContentType(contentType),
		Size:        int64(len(data)),
		Data:        data,
	}
}

// NormalizeContentType lowercases a MIME type and drops its parameters.
func NormalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// AttachmentRule identifies which batch check a file failed.
type AttachmentRule string

const (
	RuleContentType AttachmentRule = "content_type"
	RuleSize        AttachmentRule = "size"
)

// AttachmentError rejects a whole batch because of one file.
type AttachmentError struct {
	File string
	Rule AttachmentRule
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment %q rejected: %s", e.File, e.Rule)
}

// Message is the user-facing text for the rejection.
func (e *AttachmentError) Message() string {
	if e.Rule == RuleSize {
		return fmt.Sprintf("File %q exceeds 5MB limit.", e.File)
	}
	return "Only PDF, JPG, or PNG files are allowed."
}

// ValidateBatch checks one drop action. The first failing file rejects the entire batch.
func ValidateBatch(batch []Attachment) error {
	for _, a := range batch {
		if !allowedContentTypes[NormalizeContentType(a.ContentType)] {
			return &AttachmentError{File: a.Name, Rule: RuleContentType}
		}
		if a.Size > MaxAttachmentSize {
			return &AttachmentError{File: a.Name, Rule: RuleSize}
		}
	}
	return nil
}

// Package intake validates and classifies submitted attachments before any
// extraction call is made.
package intake

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sumika/estimator/internal/apperr"
	"github.com/sumika/estimator/internal/model"
)

const (
	// DefaultMaxAttachments is the attachment count cap per request.
	DefaultMaxAttachments = 5
	// DefaultMaxSize is the per-file decoded byte cap for document-class
	// content.
	DefaultMaxSize = 16 << 20
)

// Validator checks attachment submissions against count and size policy.
type Validator struct {
	maxCount int
	maxSize  int64
}

// NewValidator creates a Validator. Non-positive limits fall back to the
// defaults.
func NewValidator(maxCount int, maxSize int64) *Validator {
	if maxCount <= 0 {
		maxCount = DefaultMaxAttachments
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Validator{maxCount: maxCount, maxSize: maxSize}
}

// Validate classifies and checks raw attachments. Estimate requests must
// carry ephemeral extraction inputs, so any entry referencing a previously
// stored blob is rejected outright. New attachments are annotated with an
// estimated decoded size and a best-effort content type.
func (v *Validator) Validate(raw []model.RawAttachment) ([]model.Attachment, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) > v.maxCount {
		return nil, apperr.Validation("too many attachments: %d (max %d)", len(raw), v.maxCount)
	}

	out := make([]model.Attachment, 0, len(raw))
	for i, r := range raw {
		if r.BlobRef != "" {
			return nil, apperr.Validation(
				"attachment %q references a stored file; resubmit it as fresh inline data", displayName(r, i))
		}
		if r.DataURL == "" {
			return nil, apperr.Validation("attachment %q has no encoded data", displayName(r, i))
		}

		contentType, payload := splitDataURL(r.DataURL)
		if r.ContentType != "" {
			contentType = r.ContentType
		}
		size := decodedSize(payload)
		if size > v.maxSize {
			return nil, apperr.Validation(
				"attachment %q is too large: %d bytes (max %d)", displayName(r, i), size, v.maxSize)
		}

		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		out = append(out, model.Attachment{
			ID:          id,
			Name:        r.Name,
			ContentType: contentType,
			Size:        size,
			Data:        payload,
		})
	}

	zap.L().Debug("intake: attachments validated",
		zap.Int("count", len(out)),
	)
	return out, nil
}

// splitDataURL separates a data URI into its media type and base64 payload.
// Plain base64 without a data: prefix is accepted as-is with an empty type.
func splitDataURL(s string) (contentType, payload string) {
	if !strings.HasPrefix(s, "data:") {
		return "", s
	}
	rest := strings.TrimPrefix(s, "data:")
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return "", ""
	}
	meta := rest[:comma]
	payload = rest[comma+1:]
	contentType = strings.TrimSuffix(meta, ";base64")
	return contentType, payload
}

// decodedSize estimates the decoded byte count of a base64 payload.
func decodedSize(payload string) int64 {
	n := int64(len(payload)) * 3 / 4
	if strings.HasSuffix(payload, "==") {
		n -= 2
	} else if strings.HasSuffix(payload, "=") {
		n--
	}
	if n < 0 {
		n = 0
	}
	return n
}

func displayName(r model.RawAttachment, i int) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("#%d", i+1)
}

// Package storage holds the blob-store contract shared by the GCS client and
// the in-memory store used for local runs.
package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Object is a stored blob reference. The order engine keeps URL and Key, never the bytes.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int
}

// Kind groups objects under an order.
type Kind string

const (
	KindSignature Kind = "signature"
	KindPhoto     Kind = "photos"
)

var (
	ErrEmptyPayload   = errors.New("storage: payload is empty")
	ErrPayloadTooBig  = errors.New("storage: payload exceeds size limit")
	ErrNotAnImage     = errors.New("storage: payload is not a supported image")
	allowedImageTypes = []string{"image/png", "image/jpeg", "image/webp"}
)

// SniffImage detects the content type of data from its bytes and rejects
// anything that is not an accepted image or is larger than maxBytes.
func SniffImage(data []byte, maxBytes int) (*mimetype.MIME, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooBig, len(data), maxBytes)
	}
	detected := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed) {
			return detected, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotAnImage, detected.String())
}

// ObjectKey builds `branches/<branch>/orders/<order>/<kind>/<uuid><ext>`.
func ObjectKey(branchID, orderID uuid.UUID, kind Kind, extension string) string {
	ext := strings.TrimSpace(extension)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(
		"branches", branchID.String(),
		"orders", orderID.String(),
		string(kind),
		uuid.NewString()+ext,
	)
}

package model

// RawAttachment is an attachment-like object as submitted by the caller,
// before intake validation. Exactly one of DataURL or BlobRef should be set:
// DataURL carries inline base64 content for a newly submitted file, BlobRef
// points at a previously stored server-side file.
type RawAttachment struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	DataURL     string `json:"data_url,omitempty"`
	BlobRef     string `json:"blob_ref,omitempty"`
}

// Attachment is a validated, newly submitted attachment. It is consumed by
// the extraction step and discarded; only name and size survive into the
// persisted record.
type Attachment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"` // estimated decoded bytes
	Data        string `json:"-"`    // base64 payload, never persisted
}

// AttachmentMeta is the persisted trace of an attachment: names and sizes
// only, no binary.
type AttachmentMeta struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// Meta strips the payload from an attachment for persistence.
func (a Attachment) Meta() AttachmentMeta {
	return AttachmentMeta{Name: a.Name, ContentType: a.ContentType, Size: a.Size}
}

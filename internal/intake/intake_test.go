package intake

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumika/estimator/internal/apperr"
	"github.com/sumika/estimator/internal/model"
)

func dataURL(contentType, content string) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

func TestValidate_Empty(t *testing.T) {
	v := NewValidator(0, 0)
	out, err := v.Validate(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestValidate_RejectsExisting(t *testing.T) {
	v := NewValidator(5, DefaultMaxSize)
	_, err := v.Validate([]model.RawAttachment{
		{Name: "lease.pdf", BlobRef: "blobs/abc123"},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "resubmit")
}

func TestValidate_TooMany(t *testing.T) {
	v := NewValidator(2, DefaultMaxSize)
	raw := make([]model.RawAttachment, 3)
	for i := range raw {
		raw[i] = model.RawAttachment{Name: "f", DataURL: dataURL("application/pdf", "x")}
	}
	_, err := v.Validate(raw)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "too many attachments")
}

func TestValidate_TooLarge(t *testing.T) {
	v := NewValidator(5, 8)
	_, err := v.Validate([]model.RawAttachment{
		{Name: "big.pdf", DataURL: dataURL("application/pdf", strings.Repeat("x", 100))},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "too large")
}

func TestValidate_MissingData(t *testing.T) {
	v := NewValidator(5, DefaultMaxSize)
	_, err := v.Validate([]model.RawAttachment{{Name: "empty.pdf"}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestValidate_AnnotatesSizeAndType(t *testing.T) {
	v := NewValidator(5, DefaultMaxSize)
	content := "hello estimation"
	out, err := v.Validate([]model.RawAttachment{
		{Name: "doc.pdf", DataURL: dataURL("application/pdf", content)},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "application/pdf", out[0].ContentType)
	assert.Equal(t, int64(len(content)), out[0].Size)
	assert.NotEmpty(t, out[0].ID)
	assert.NotEmpty(t, out[0].Data)
}

func TestValidate_ExplicitContentTypeWins(t *testing.T) {
	v := NewValidator(5, DefaultMaxSize)
	out, err := v.Validate([]model.RawAttachment{
		{Name: "scan", ContentType: "image/png", DataURL: dataURL("application/octet-stream", "img")},
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", out[0].ContentType)
}

func TestSplitDataURL_PlainBase64(t *testing.T) {
	ct, payload := splitDataURL("QUJD")
	assert.Empty(t, ct)
	assert.Equal(t, "QUJD", payload)
}

func TestDecodedSize_Padding(t *testing.T) {
	// "QQ==" decodes to 1 byte, "QUI=" to 2, "QUJD" to 3.
	assert.Equal(t, int64(1), decodedSize("QQ=="))
	assert.Equal(t, int64(2), decodedSize("QUI="))
	assert.Equal(t, int64(3), decodedSize("QUJD"))
}

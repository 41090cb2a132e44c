package chat

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// BuildAttachment sniffs the real content type from the file header and
// builds the attachment metadata carried by a message. The declared filename
// extension is never trusted.
func BuildAttachment(name string, data []byte) (models.Attachment, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("sniff attachment type: %w", err)
	}
	if kind == filetype.Unknown {
		return models.Attachment{}, fmt.Errorf("unsupported attachment type for %q", name)
	}

	attType := models.AttachmentTypeFile
	if strings.HasPrefix(kind.MIME.Value, "image/") {
		attType = models.AttachmentTypeImage
	}

	return models.Attachment{
		Type:     attType,
		Name:     name,
		MimeType: kind.MIME.Value,
		FileID:   uuid.NewString(),
	}, nil
}

package chat

import (
	"testing"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// Minimal valid file headers for type sniffing.
var (
	pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	pdfHeader = []byte{0x25, 0x50, 0x44, 0x46, 0x2D, 0x31, 0x2E, 0x34}
)

func TestBuildAttachment(t *testing.T) {
	att, err := BuildAttachment("photo.png", pngHeader)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if att.Type != models.AttachmentTypeImage {
		t.Errorf("expected image type, got %q", att.Type)
	}
	if att.MimeType != "image/png" {
		t.Errorf("expected image/png, got %q", att.MimeType)
	}
	if att.Name != "photo.png" || att.FileID == "" {
		t.Errorf("expected name and file id, got %+v", att)
	}
}

func TestBuildAttachment_NonImage(t *testing.T) {
	att, err := BuildAttachment("doc.pdf", pdfHeader)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if att.Type != models.AttachmentTypeFile {
		t.Errorf("expected file type, got %q", att.Type)
	}
	if att.MimeType != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", att.MimeType)
	}
}

func TestBuildAttachment_ExtensionNotTrusted(t *testing.T) {
	// A PNG named .txt is still an image.
	att, err := BuildAttachment("notes.txt", pngHeader)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if att.Type != models.AttachmentTypeImage {
		t.Errorf("expected sniffed image type, got %q", att.Type)
	}
}

func TestBuildAttachment_Unknown(t *testing.T) {
	if _, err := BuildAttachment("mystery.bin", []byte{0x00, 0x01, 0x02, 0x03}); err == nil {
		t.Fatal("expected error for unrecognized content")
	}
}

package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	apperrors "github.com/trailheadapp/trailhead-server/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// makePNG renders a small gradient as PNG bytes.
func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessTourImage(t *testing.T) {
	p := NewProcessor(testLogger())

	out, err := p.ProcessTourImage(makePNG(t, 120, 80))
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not jpeg: %v", err)
	}
	if img.Bounds().Dx() != TourCoverWidth || img.Bounds().Dy() != TourCoverHeight {
		t.Errorf("size: got %v", img.Bounds())
	}
}

func TestProcessUserPhotoSquare(t *testing.T) {
	p := NewProcessor(testLogger())

	out, err := p.ProcessUserPhoto(makePNG(t, 333, 777))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not jpeg: %v", err)
	}
	if img.Bounds().Dx() != UserPhotoSize || img.Bounds().Dy() != UserPhotoSize {
		t.Errorf("size: got %v", img.Bounds())
	}
}

func TestProcessRejectsNonImage(t *testing.T) {
	p := NewProcessor(testLogger())

	_, err := p.ProcessTourImage([]byte("definitely not an image"))
	if err == nil {
		t.Fatal("expected error")
	}
	var domainErr *apperrors.Error
	if !apperrors.As(err, &domainErr) || domainErr.Code != apperrors.CodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestComputeBlurHash(t *testing.T) {
	hash, err := ComputeBlurHash(makePNG(t, 200, 133))
	if err != nil {
		t.Fatalf("blurhash: %v", err)
	}
	if len(hash) < 6 {
		t.Errorf("suspiciously short hash: %q", hash)
	}
}

func TestFilenames(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	if got := TourCoverFilename("tour-abc", now); got != "tour-abc-1700000000000-cover.jpeg" {
		t.Errorf("cover: %q", got)
	}
	if got := TourImageFilename("tour-abc", now, 0); !strings.HasSuffix(got, "-1.jpeg") {
		t.Errorf("gallery: %q", got)
	}
	if got := UserPhotoFilename("usr-x", now); got != "usr-x-1700000000000.jpeg" {
		t.Errorf("user: %q", got)
	}
}

func TestStorageRoundTrip(t *testing.T) {
	s, err := NewStorage(t.TempDir(), SubdirTours)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}

	if err := s.Save("a.jpeg", []byte("data")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !s.Exists("a.jpeg") {
		t.Error("expected file to exist")
	}
	data, err := s.Get("a.jpeg")
	if err != nil || string(data) != "data" {
		t.Errorf("get: %q, %v", data, err)
	}
	if err := s.Delete("a.jpeg"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Exists("a.jpeg") {
		t.Error("expected file to be gone")
	}
	// Deleting again is fine.
	if err := s.Delete("a.jpeg"); err != nil {
		t.Errorf("re-delete: %v", err)
	}
}

package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"mime/multipart"
	"strings"
	"testing"
)

type fakeUploader struct {
	keys  []string
	blobs [][]byte
	types []string
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	f.keys = append(f.keys, key)
	f.blobs = append(f.blobs, data)
	f.types = append(f.types, contentType)
	return "stored://" + key, nil
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buf.Bytes()
}

// fileHeaders builds real multipart file headers from raw payloads by writing
// and re-reading a multipart body, the same shape ParseMultipartForm yields.
func fileHeaders(t *testing.T, field string, payloads [][]byte) []*multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i, payload := range payloads {
		part, err := w.CreateFormFile(field, fmt.Sprintf("upload-%d.bin", i))
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(payload); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("failed to read multipart form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })

	return form.File[field]
}

func decodedWidth(t *testing.T, data []byte) int {
	t.Helper()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode stored image: %v", err)
	}
	return cfg.Width
}

func TestStorePhotosRejectsTooMany(t *testing.T) {
	payloads := make([][]byte, MaxPhotos+1)
	for i := range payloads {
		payloads[i] = pngBytes(t, 4, 4)
	}

	intake := NewIntake(&fakeUploader{}, 1200, 1000, 80)
	_, err := intake.StorePhotos(context.Background(), fileHeaders(t, "photos", payloads))
	if !errors.Is(err, ErrTooManyPhotos) {
		t.Fatalf("expected ErrTooManyPhotos, got %v", err)
	}
}

func TestStorePhotosRejectsNonImage(t *testing.T) {
	intake := NewIntake(&fakeUploader{}, 1200, 1000, 80)
	_, err := intake.StorePhotos(context.Background(), fileHeaders(t, "photos", [][]byte{
		[]byte("definitely not an image"),
	}))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestStorePhotosPreservesOrder(t *testing.T) {
	uploader := &fakeUploader{}
	intake := NewIntake(uploader, 1200, 1000, 80)

	widths := []int{10, 20, 30}
	payloads := make([][]byte, len(widths))
	for i, w := range widths {
		payloads[i] = pngBytes(t, w, 8)
	}

	refs, err := intake.StorePhotos(context.Background(), fileHeaders(t, "photos", payloads))
	if err != nil {
		t.Fatalf("StorePhotos: %v", err)
	}

	if len(refs) != len(widths) {
		t.Fatalf("expected %d locators, got %d", len(widths), len(refs))
	}
	for i, ref := range refs {
		if "stored://"+uploader.keys[i] != ref {
			t.Errorf("locator %d does not match upload order", i)
		}
		if got := decodedWidth(t, uploader.blobs[i]); got != widths[i] {
			t.Errorf("stored image %d has width %d, want %d", i, got, widths[i])
		}
	}
}

func TestStorePhotosDownscalesWideImages(t *testing.T) {
	uploader := &fakeUploader{}
	intake := NewIntake(uploader, 100, 1000, 80)

	_, err := intake.StorePhotos(context.Background(), fileHeaders(t, "photos", [][]byte{
		pngBytes(t, 400, 40),
	}))
	if err != nil {
		t.Fatalf("StorePhotos: %v", err)
	}

	if got := decodedWidth(t, uploader.blobs[0]); got != 100 {
		t.Errorf("stored width = %d, want 100", got)
	}
}

func TestStorePhotosNeverUpscales(t *testing.T) {
	uploader := &fakeUploader{}
	intake := NewIntake(uploader, 1200, 1000, 80)

	_, err := intake.StorePhotos(context.Background(), fileHeaders(t, "photos", [][]byte{
		pngBytes(t, 50, 50),
	}))
	if err != nil {
		t.Fatalf("StorePhotos: %v", err)
	}

	if got := decodedWidth(t, uploader.blobs[0]); got != 50 {
		t.Errorf("stored width = %d, want 50", got)
	}
}

func TestStorePhotosReencodesAsJPEG(t *testing.T) {
	uploader := &fakeUploader{}
	intake := NewIntake(uploader, 1200, 1000, 80)

	_, err := intake.StorePhotos(context.Background(), fileHeaders(t, "photos", [][]byte{
		pngBytes(t, 12, 12),
	}))
	if err != nil {
		t.Fatalf("StorePhotos: %v", err)
	}

	if uploader.types[0] != "image/jpeg" {
		t.Errorf("stored content type = %q, want image/jpeg", uploader.types[0])
	}
	if !strings.HasSuffix(uploader.keys[0], ".jpg") {
		t.Errorf("object key %q should end in .jpg", uploader.keys[0])
	}
}

func TestStoreSketch(t *testing.T) {
	uploader := &fakeUploader{}
	intake := NewIntake(uploader, 1200, 100, 80)

	headers := fileHeaders(t, "sketch", [][]byte{pngBytes(t, 300, 30)})
	ref, err := intake.StoreSketch(context.Background(), headers[0])
	if err != nil {
		t.Fatalf("StoreSketch: %v", err)
	}

	if !strings.HasPrefix(ref, "stored://tasks/") {
		t.Errorf("locator %q should carry the tasks/ prefix", ref)
	}
	if got := decodedWidth(t, uploader.blobs[0]); got != 100 {
		t.Errorf("sketch width = %d, want the sketch cap 100", got)
	}
}

func TestStorePhotosAbortsOnUploadFailure(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("bucket unreachable")}
	intake := NewIntake(uploader, 1200, 1000, 80)

	_, err := intake.StorePhotos(context.Background(), fileHeaders(t, "photos", [][]byte{
		pngBytes(t, 8, 8),
	}))
	if err == nil {
		t.Fatal("expected upload failure to surface")
	}
}

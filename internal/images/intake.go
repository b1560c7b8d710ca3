package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"fieldreport/internal/utils"

	"github.com/disintegration/imaging"
)

// MaxPhotos caps the number of photo payloads per submission.
const MaxPhotos = 10

var (
	ErrTooManyPhotos   = errors.New("too many photos")
	ErrUnsupportedType = errors.New("unsupported image type")
)

const keyPrefix = "tasks"

// allowedTypes maps accepted content types to the extension used in the
// generated object key.
var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Uploader persists bytes under a key and returns a locator the storage
// backend understands. Callers treat the locator as an opaque string.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Intake validates uploaded images, downscales and recompresses them, and
// hands them to the storage backend.
type Intake struct {
	uploader       Uploader
	maxPhotoWidth  int
	maxSketchWidth int
	quality        int
}

func NewIntake(uploader Uploader, maxPhotoWidth, maxSketchWidth, quality int) *Intake {
	if maxPhotoWidth <= 0 {
		maxPhotoWidth = 1200
	}
	if maxSketchWidth <= 0 {
		maxSketchWidth = 1000
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	return &Intake{
		uploader:       uploader,
		maxPhotoWidth:  maxPhotoWidth,
		maxSketchWidth: maxSketchWidth,
		quality:        quality,
	}
}

// StorePhotos persists photo payloads in submission order and returns one
// locator per payload. Any faulty payload aborts the whole batch; files
// already written stay written.
func (i *Intake) StorePhotos(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	if len(files) > MaxPhotos {
		return nil, fmt.Errorf("%w: got %d, limit %d", ErrTooManyPhotos, len(files), MaxPhotos)
	}

	refs := make([]string, 0, len(files))
	for _, fh := range files {
		ref, err := i.store(ctx, fh, i.maxPhotoWidth)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	return refs, nil
}

// StoreSketch persists the single optional sketch payload.
func (i *Intake) StoreSketch(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	return i.store(ctx, fh, i.maxSketchWidth)
}

func (i *Intake) store(ctx context.Context, fh *multipart.FileHeader, maxWidth int) (string, error) {
	data, err := readPayload(fh)
	if err != nil {
		return "", err
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnsupportedType, contentType)
	}

	// WebP passes through untouched; the stdlib image stack cannot re-encode
	// it and the transform is an optimization, not a requirement.
	if contentType != "image/webp" {
		data, err = i.transform(data, maxWidth)
		if err != nil {
			return "", err
		}
		contentType = "image/jpeg"
		ext = "jpg"
	}

	return i.uploader.Upload(ctx, objectKey(ext), data, contentType)
}

// transform downscales to maxWidth (never upscaling) and re-encodes as JPEG
// at the configured quality.
func (i *Intake) transform(data []byte, maxWidth int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(i.quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

func readPayload(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}

	return data, nil
}

// objectKey builds a collision-resistant name: time prefix + random suffix.
func objectKey(ext string) string {
	return fmt.Sprintf("%s/%d-%s.%s", keyPrefix, time.Now().UnixMilli(), utils.NanoIDSize(8), ext)
}

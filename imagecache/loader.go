package imagecache

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/gg"
)

// ErrUnsupportedRef is returned by FileOpener for references it cannot open.
var ErrUnsupportedRef = errors.New("imagecache: unsupported image reference")

// Fetcher maps a durable image id to a locally readable reference.
type Fetcher interface {
	GetImageURL(ctx context.Context, imageID string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, imageID string) (string, error)

// GetImageURL calls f.
func (f FetcherFunc) GetImageURL(ctx context.Context, imageID string) (string, error) {
	return f(ctx, imageID)
}

// DirFetcher resolves ids to files under a directory. Ids that already look
// like a data: or file: reference pass through unchanged.
type DirFetcher struct {
	Dir string
}

// GetImageURL implements Fetcher.
func (d DirFetcher) GetImageURL(_ context.Context, imageID string) (string, error) {
	if strings.HasPrefix(imageID, "data:") || strings.HasPrefix(imageID, "file:") {
		return imageID, nil
	}
	if d.Dir == "" {
		return imageID, nil
	}
	return filepath.Join(d.Dir, imageID), nil
}

// Opener returns the bytes behind a local reference.
type Opener interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// FileOpener opens plain file paths, file:// URLs and base64 data: URIs.
type FileOpener struct{}

// Open implements Opener.
func (FileOpener) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		data, err := decodeDataURI(ref)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	case strings.HasPrefix(ref, "file:"):
		u, err := url.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedRef, err)
		}
		return os.Open(u.Path)
	case strings.Contains(ref, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
	default:
		return os.Open(ref)
	}
}

// decodeDataURI extracts the payload of "data:[<mediatype>][;base64],<data>".
func decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URI", ErrUnsupportedRef)
	}
	if !strings.HasSuffix(meta, ";base64") {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedRef, err)
		}
		return []byte(s), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedRef, err)
	}
	return data, nil
}

// Decode reads a PNG, JPEG, GIF, WebP, BMP or TIFF image into a bitmap.
func Decode(r io.Reader) (*gg.ImageBuf, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return gg.ImageBufFromImage(img), nil
}

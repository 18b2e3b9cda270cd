// Package asset fetches the external images (logos) referenced by a style.
//
// A Store resolves an image reference to its raw bytes. References can be
// local file paths, http(s) URLs or RFC 2397 data URIs; Router dispatches to
// the matching Store and Cache puts a read-through cache in front of any Store.
package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/esimov/qrstyle/utils"
)

// DefaultMaxBytes caps the size of a single fetched asset.
const DefaultMaxBytes = 8 << 20

var (
	// ErrNotFound is returned when the reference does not point to an existing asset.
	ErrNotFound = errors.New("asset not found")
	// ErrTooLarge is returned when the asset exceeds the store's size limit.
	ErrTooLarge = errors.New("asset too large")
	// ErrNotImage is returned when the fetched bytes are not an image.
	ErrNotImage = errors.New("asset is not an image")
)

// Store resolves an image reference to its bytes.
// Implementations must be safe for concurrent use.
type Store interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, ref string) ([]byte, error)

// Fetch calls f(ctx, ref).
func (f StoreFunc) Fetch(ctx context.Context, ref string) ([]byte, error) {
	return f(ctx, ref)
}

// HTTPStore downloads assets over http(s).
type HTTPStore struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPStore returns a store using a dedicated client with the given timeout.
func NewHTTPStore(timeout time.Duration) *HTTPStore {
	return &HTTPStore{
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: DefaultMaxBytes,
	}
}

// Fetch downloads the image and checks that the response body is an image.
func (s *HTTPStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid asset url %q: %w", ref, err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to download image file from URI %s: %w", ref, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unable to download image file from URI %s, status %v", ref, res.Status)
	}

	data, err := readLimited(res.Body, s.maxBytes())
	if err != nil {
		return nil, fmt.Errorf("unable to read response body: %w", err)
	}
	return checkImage(data)
}

func (s *HTTPStore) maxBytes() int64 {
	if s.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return s.MaxBytes
}

// FileStore reads assets from the local file system.
// When Root is set, references are resolved relative to it and may not escape it.
type FileStore struct {
	Root     string
	MaxBytes int64
}

// Fetch reads the file pointed to by ref.
func (s *FileStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("could not open the image file: %w", err)
	}
	defer file.Close()

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := readLimited(file, limit)
	if err != nil {
		return nil, fmt.Errorf("could not read the image file: %w", err)
	}
	return checkImage(data)
}

func (s *FileStore) resolve(ref string) (string, error) {
	ref = strings.TrimPrefix(ref, "file://")
	if s.Root == "" {
		return filepath.Clean(ref), nil
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, filepath.FromSlash(ref))
	if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside of the asset root", ErrNotFound, ref)
	}
	return path, nil
}

// DataStore decodes RFC 2397 data URIs, e.g. data:image/png;base64,....
type DataStore struct{}

// Fetch decodes the payload of the data URI.
func (DataStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: not a data uri", ErrNotFound)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.New("malformed data uri: missing payload")
	}

	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(meta, ";base64") {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed data uri: %w", err)
		}
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("malformed data uri: %w", err)
		}
		data = []byte(s)
	}
	return checkImage(data)
}

// Router dispatches a reference to the store handling its scheme.
type Router struct {
	HTTP Store
	File Store
	Data Store
}

// NewRouter returns a Router serving http(s) URLs, data URIs and files under root.
func NewRouter(root string, timeout time.Duration) *Router {
	return &Router{
		HTTP: NewHTTPStore(timeout),
		File: &FileStore{Root: root},
		Data: DataStore{},
	}
}

// Fetch forwards the request to the store matching the reference.
func (r *Router) Fetch(ctx context.Context, ref string) ([]byte, error) {
	var s Store
	switch {
	case strings.HasPrefix(ref, "data:"):
		s = r.Data
	case utils.IsValidUrl(ref) && (strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")):
		s = r.HTTP
	default:
		s = r.File
	}
	if s == nil {
		return nil, fmt.Errorf("%w: no store configured for %q", ErrNotFound, ref)
	}
	return s.Fetch(ctx, ref)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, ErrTooLarge
	}
	return buf.Bytes(), nil
}

// checkImage sniffs the content type, since only images are valid assets.
func checkImage(data []byte) ([]byte, error) {
	if !strings.HasPrefix(utils.DetectContentType(data), "image/") {
		return nil, ErrNotImage
	}
	return data, nil
}

package raster

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// LoadError is returned when a raster cannot be read or parsed. It names the
// source so callers can degrade just that layer.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("raster: load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader resolves a raster source (a path or URL) into a decoded raster.
type Loader interface {
	Load(ctx context.Context, source string) (*Raster, error)
}

// Downloader is the part of the fetcher a RemoteLoader needs.
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Decode sniffs data and decodes it as GeoTIFF or JSON grid.
func Decode(data []byte) (*Raster, error) {
	if IsGeoTIFF(data) {
		r, err := DecodeGeoTIFF(data)
		if err != nil {
			return nil, err
		}
		return r, r.Validate()
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return DecodeGrid(bytes.NewReader(trimmed))
	}
	return nil, eris.New("raster: unrecognized format")
}

// FileLoader reads rasters from the local filesystem.
type FileLoader struct{}

// Load reads and decodes the file at path.
func (FileLoader) Load(ctx context.Context, path string) (*Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	r, err := Decode(data)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	return r, nil
}

// RemoteLoader fetches http(s) sources through a Downloader and falls back to
// the filesystem for everything else.
type RemoteLoader struct {
	Downloader Downloader
	Files      FileLoader
}

// NewRemoteLoader wraps d.
func NewRemoteLoader(d Downloader) *RemoteLoader {
	return &RemoteLoader{Downloader: d}
}

// Load resolves source.
func (l *RemoteLoader) Load(ctx context.Context, source string) (*Raster, error) {
	if !isRemote(source) || l.Downloader == nil {
		return l.Files.Load(ctx, source)
	}
	body, err := l.Downloader.Download(ctx, source)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &LoadError{Source: source, Err: eris.Wrap(err, "read body")}
	}
	r, err := Decode(data)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return r, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

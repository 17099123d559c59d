// Package download saves the static practice assets (the E-R diagram and
// the starter prompts) to disk.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/amit-mskl/sql-playground/internal/activity"
	"github.com/amit-mskl/sql-playground/internal/arena"
	"golang.org/x/sync/errgroup"
)

// Asset describes one downloadable resource.
type Asset struct {
	Name string
	Path string
	// ContentType is the expected media type. A mismatch is logged but
	// the body is still saved.
	ContentType string
	Activity    activity.Type
	// FailureMessage is the alert shown when the download fails.
	FailureMessage string
}

// FileName is the name the asset is saved under.
func (a Asset) FileName() string {
	return path.Base(a.Path)
}

var (
	Diagram = Asset{
		Name:           "diagram",
		Path:           "/downloads/globalmart-schema.png",
		ContentType:    "image/png",
		Activity:       activity.TypeDownloadDiagram,
		FailureMessage: "Failed to download database schema. Please try again later.",
	}
	StarterPrompts = Asset{
		Name:           "prompts",
		Path:           "/downloads/sql_starter_prompts.txt",
		ContentType:    "text/plain",
		Activity:       activity.TypeDownloadPrompts,
		FailureMessage: "Failed to download starter prompts. Please try again later.",
	}
)

// Catalog returns the known assets, overriding their paths when the
// arguments are non-empty.
func Catalog(diagramPath, promptsPath string) []Asset {
	d, p := Diagram, StarterPrompts
	if diagramPath != "" {
		d.Path = diagramPath
	}
	if promptsPath != "" {
		p.Path = promptsPath
	}
	return []Asset{d, p}
}

// Find returns the asset called name.
func Find(assets []Asset, name string) (Asset, bool) {
	for _, a := range assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// Error is a failed download. Its message is the user-facing alert.
type Error struct {
	Asset Asset
	Err   error
}

func (e *Error) Error() string { return e.Asset.FailureMessage }

func (e *Error) Unwrap() error { return e.Err }

// Fetcher retrieves an asset body.
type Fetcher interface {
	FetchAsset(ctx context.Context, path string) (*arena.Asset, error)
}

// Downloader fetches assets and writes them into Dir.
type Downloader struct {
	fetcher Fetcher
	dir     string
	sink    activity.Sink
	logger  *slog.Logger
}

// New creates a downloader writing into dir. sink may be nil.
func New(fetcher Fetcher, dir string, sink activity.Sink, logger *slog.Logger) *Downloader {
	if sink == nil {
		sink = activity.Discard
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Downloader{fetcher: fetcher, dir: dir, sink: sink, logger: logger}
}

// Dir returns the download directory.
func (d *Downloader) Dir() string { return d.dir }

// Download saves asset and returns the written path. Existing files are
// never overwritten; the name gets a " (n)" suffix instead.
func (d *Downloader) Download(ctx context.Context, asset Asset, loginID string) (string, error) {
	body, err := d.fetcher.FetchAsset(ctx, asset.Path)
	if err != nil {
		d.logger.Error("error downloading asset", "asset", asset.Name, "error", err)
		return "", &Error{Asset: asset, Err: err}
	}
	if asset.ContentType != "" && !mediaTypeIs(body.ContentType, asset.ContentType) {
		d.logger.Warn("unexpected asset content type", "asset", asset.Name, "want", asset.ContentType, "got", body.ContentType)
	}

	dest, err := d.save(asset.FileName(), body.Body)
	if err != nil {
		d.logger.Error("error saving asset", "asset", asset.Name, "error", err)
		return "", &Error{Asset: asset, Err: err}
	}

	d.logger.Debug("asset saved", "asset", asset.Name, "path", dest, "bytes", len(body.Body))
	d.sink.Enqueue(activity.New(asset.Activity, loginID, true))
	return dest, nil
}

// DownloadAll fetches assets concurrently. Paths are returned in asset
// order; on failure the first error is returned alongside whatever
// succeeded. A failed asset does not cancel the others.
func (d *Downloader) DownloadAll(ctx context.Context, assets []Asset, loginID string) ([]string, error) {
	paths := make([]string, len(assets))
	var g errgroup.Group
	for i, a := range assets {
		g.Go(func() error {
			p, err := d.Download(ctx, a, loginID)
			paths[i] = p
			return err
		})
	}
	return paths, g.Wait()
}

func mediaTypeIs(header, want string) bool {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return false
	}
	return strings.EqualFold(mt, want)
}

func (d *Downloader) save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, ".sqlarena-download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("failed to set permissions on %s: %w", name, err)
	}

	// Link fails when the target exists, so a concurrent writer can never
	// be clobbered.
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 0; ; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		dest := filepath.Join(d.dir, candidate)

		err := os.Link(tmpName, dest)
		if err == nil {
			return dest, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}

		// Filesystems without hard links.
		if _, statErr := os.Lstat(dest); statErr == nil {
			continue
		}
		if err := os.Rename(tmpName, dest); err != nil {
			return "", fmt.Errorf("failed to save %s: %w", candidate, err)
		}
		return dest, nil
	}
}

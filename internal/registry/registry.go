package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"memed/internal/pkg/logger"
	"memed/internal/ports"
)

// Registry resolves template identifiers. Named templates go through the
// catalog; custom templates are keyed by a digest of their background URL
// and materialized from the storage provider into a local cache.
//
// Concurrent CreateFromURL calls for the same URL converge on the same
// cache path; the last writer wins, which is harmless since the content
// is identical.
type Registry struct {
	catalog  Catalog
	sp       ports.StorageProvider
	cacheDir string
	log      *logger.Logger
}

func New(catalog Catalog, sp ports.StorageProvider, cacheDir string, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Registry{
		catalog:  catalog,
		sp:       sp,
		cacheDir: cacheDir,
		log:      log.WithComponent("registry"),
	}
}

func (r *Registry) Get(ctx context.Context, id string) (*Template, error) {
	return r.catalog.Get(ctx, id)
}

func (r *Registry) List(ctx context.Context) ([]*Template, error) {
	return r.catalog.List(ctx)
}

// CreateFromURL returns the custom template for a background URL. The
// template always resolves; when the background cannot be materialized its
// ImagePath stays empty and ImageExists reports false, which the resolution
// cascade translates into a 415.
func (r *Registry) CreateFromURL(ctx context.Context, rawURL string) (*Template, error) {
	digest := urlDigest(rawURL)
	ext := backgroundExt(rawURL)

	t := &Template{
		ID:   "custom-" + digest,
		Name: backgroundName(rawURL),
	}

	cached := filepath.Join(r.cacheDir, digest+ext)
	if _, err := os.Stat(cached); err == nil {
		t.ImagePath = cached
		return t, nil
	}

	if r.sp == nil {
		return t, nil
	}

	objectKey := "backgrounds/" + digest + ext
	rc, _, _, err := r.sp.GetObject(ctx, objectKey)
	if err != nil {
		r.log.FromContext(ctx).Debug("background not in storage",
			"url", rawURL,
			"object_key", objectKey,
		)
		return t, nil
	}
	defer rc.Close()

	if err := writeCache(cached, rc); err != nil {
		return t, err
	}
	t.ImagePath = cached
	return t, nil
}

func writeCache(dst string, rc io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".bg-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func urlDigest(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:8])
}

func backgroundExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".png"
	}
	ext := strings.ToLower(filepath.Ext(u.Path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
		return ext
	}
	return ".png"
}

func backgroundName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "custom"
	}
	return u.Host
}

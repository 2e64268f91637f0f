package catalog

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DefaultStarMapExt is used when the response has no usable content type.
const DefaultStarMapExt = "png"

// StarMap is a rendered star-map image.
type StarMap struct {
	Planet      string
	ContentType string
	Ext         string
	Data        []byte
}

// FileName returns the download name for the image.
func (m StarMap) FileName() string {
	return StarMapFileName(m.Planet, m.Ext)
}

// StarMapFileName returns "star_map-<planet>.<ext>". Path separators in the
// planet name are replaced so the result is always a single file name.
func StarMapFileName(planet, ext string) string {
	if ext == "" {
		ext = DefaultStarMapExt
	}
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(planet)
	return fmt.Sprintf("star_map-%s.%s", name, strings.TrimPrefix(ext, "."))
}

// FetchStarMap requests the rendered star map for a planet.
func (c *Client) FetchStarMap(ctx context.Context, planet string) (StarMap, error) {
	q := url.Values{}
	q.Set("planet", planet)

	resp, err := c.do(ctx, http.MethodGet, "/api/generate_star_map", q, nil, "image/*")
	if err != nil {
		return StarMap{}, fmt.Errorf("fetch star map for %s: %w", planet, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return StarMap{}, fmt.Errorf("read star map: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	return StarMap{
		Planet:      planet,
		ContentType: ct,
		Ext:         extensionFor(ct),
		Data:        data,
	}, nil
}

// DownloadStarMap fetches the star map and writes it into dir. It returns
// the path of the written file.
func (c *Client) DownloadStarMap(ctx context.Context, planet, dir string) (string, error) {
	m, err := c.FetchStarMap(ctx, planet)
	if err != nil {
		return "", err
	}
	return WriteStarMap(m, dir)
}

// WriteStarMap writes an already fetched star map into dir.
func WriteStarMap(m StarMap, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, m.FileName())
	if err := os.WriteFile(path, m.Data, 0o644); err != nil {
		return "", fmt.Errorf("write star map: %w", err)
	}
	return path, nil
}

// extensionFor maps an image content type to a file extension.
func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return DefaultStarMapExt
	}
	switch mediaType {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/svg+xml":
		return "svg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}
	if strings.HasPrefix(mediaType, "image/") {
		return strings.TrimPrefix(mediaType, "image/")
	}
	return DefaultStarMapExt
}

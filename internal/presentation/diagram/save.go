package diagram

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultRendererURL is the public Mermaid rendering service.
const DefaultRendererURL = "https://mermaid.ink"

// DefaultPath is where the diagram is written when no path is configured.
var DefaultPath = filepath.Join("outputs", "missing_values_workflow.mmd")

// Renderer turns Mermaid source into an image through a mermaid.ink
// compatible HTTP service.
type Renderer struct {
	BaseURL string
	Client  *http.Client
}

// NewRenderer creates a renderer for the given service URL. An empty URL
// selects DefaultRendererURL.
func NewRenderer(baseURL string) *Renderer {
	if baseURL == "" {
		baseURL = DefaultRendererURL
	}
	return &Renderer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Render fetches the image of src in the given format ("png" or "svg").
func (r *Renderer) Render(ctx context.Context, src, format string) ([]byte, error) {
	encoded := base64.URLEncoding.EncodeToString([]byte(src))

	var endpoint string
	switch format {
	case "png":
		endpoint = fmt.Sprintf("%s/img/%s?type=png", r.BaseURL, encoded)
	case "svg":
		endpoint = fmt.Sprintf("%s/svg/%s", r.BaseURL, encoded)
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("renderer returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered image: %w", err)
	}
	return body, nil
}

// Save writes the diagram to path. Paths ending in .png or .svg are
// rendered through r; any other extension gets the Mermaid source.
// Missing parent directories are created.
func Save(ctx context.Context, path, src string, r *Renderer) error {
	if path == "" {
		path = DefaultPath
	}

	data := []byte(src)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png", ".svg":
		if r == nil {
			r = NewRenderer("")
		}
		img, err := r.Render(ctx, src, ext[1:])
		if err != nil {
			return err
		}
		data = img
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create diagram directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write diagram: %w", err)
	}
	return nil
}

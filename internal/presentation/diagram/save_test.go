package diagram_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/sieve/internal/presentation/diagram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const src = "graph TD\n    a --> b\n"

func fakeRenderer(t *testing.T, status int) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		if status != http.StatusOK {
			http.Error(w, "nope", status)
			return
		}
		_, _ = w.Write([]byte("IMAGE"))
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func TestSave_MermaidSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outputs", "flow.mmd")

	require.NoError(t, diagram.Save(context.Background(), path, src, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src, string(data))
}

func TestSave_RenderedImage(t *testing.T) {
	tests := []struct {
		file       string
		wantPrefix string
	}{
		{file: "flow.png", wantPrefix: "/img/"},
		{file: "flow.svg", wantPrefix: "/svg/"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			srv, paths := fakeRenderer(t, http.StatusOK)
			path := filepath.Join(t.TempDir(), tt.file)

			err := diagram.Save(context.Background(), path, src, diagram.NewRenderer(srv.URL+"/"))
			require.NoError(t, err)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "IMAGE", string(data))

			require.Len(t, *paths, 1)
			got := (*paths)[0]
			assert.True(t, strings.HasPrefix(got, tt.wantPrefix), got)
			assert.Contains(t, got, base64.URLEncoding.EncodeToString([]byte(src)))
		})
	}
}

func TestSave_RendererFailure(t *testing.T) {
	srv, _ := fakeRenderer(t, http.StatusBadGateway)
	path := filepath.Join(t.TempDir(), "flow.png")

	err := diagram.Save(context.Background(), path, src, diagram.NewRenderer(srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file is written on failure")
}

func TestRender_UnsupportedFormat(t *testing.T) {
	_, err := diagram.NewRenderer("").Render(context.Background(), src, "gif")
	assert.ErrorContains(t, err, "unsupported")
}

package cli_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	filestore "github.com/aretw0/sieve/internal/adapters/file"
	redisstore "github.com/aretw0/sieve/internal/adapters/redis"
	"github.com/aretw0/sieve/internal/cli"
	"github.com/aretw0/sieve/internal/config"
	sievehttp "github.com/aretw0/sieve/pkg/adapters/http"
	"github.com/aretw0/sieve/pkg/adapters/memory"
	"github.com/aretw0/sieve/pkg/domain"
	"github.com/aretw0/sieve/pkg/observability"
	"github.com/aretw0/sieve/pkg/ports"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		check   func(t *testing.T, store any)
		wantErr bool
	}{
		{
			name:  "none",
			cfg:   config.StoreConfig{Backend: config.BackendNone},
			check: func(t *testing.T, store any) { assert.Nil(t, store) },
		},
		{
			name:  "memory",
			cfg:   config.StoreConfig{Backend: config.BackendMemory},
			check: func(t *testing.T, store any) { assert.IsType(t, &memory.Store{}, store) },
		},
		{
			name:  "file",
			cfg:   config.StoreConfig{Backend: config.BackendFile, Dir: t.TempDir()},
			check: func(t *testing.T, store any) { assert.IsType(t, &filestore.Store{}, store) },
		},
		{
			name:  "redis",
			cfg:   config.StoreConfig{Backend: config.BackendRedis, Redis: config.RedisConfig{Addr: mr.Addr()}},
			check: func(t *testing.T, store any) { assert.IsType(t, &redisstore.Store{}, store) },
		},
		{
			name:    "redis unreachable",
			cfg:     config.StoreConfig{Backend: config.BackendRedis, Redis: config.RedisConfig{Addr: "127.0.0.1:1"}},
			wantErr: true,
		},
		{
			name: "encrypted file",
			cfg: config.StoreConfig{
				Backend:       config.BackendFile,
				Dir:           t.TempDir(),
				EncryptionKey: "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=",
			},
			check: func(t *testing.T, store any) {
				require.NotNil(t, store)
				assert.NotEqual(t, reflect.TypeOf(&filestore.Store{}), reflect.TypeOf(store), "the backend is wrapped")
				ports.RunReportStoreContract(t, store.(ports.ReportStore))
			},
		},
		{
			name:    "bad encryption key",
			cfg:     config.StoreConfig{Backend: config.BackendMemory, EncryptionKey: "c2hvcnQ="},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			cfg:     config.StoreConfig{Backend: "s3"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closer, err := cli.OpenStore(context.Background(), tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if closer != nil {
				t.Cleanup(func() { closer() })
			}
			tt.check(t, store)
		})
	}
}

func TestApp_Run(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "data.csv")
	diagramPath := filepath.Join(dir, "outputs", "graph.mmd")
	cfgPath := filepath.Join(dir, "sieve.yaml")

	writeFile(t, source, "a,b\n1,x\n,y\n3,z\n")
	writeFile(t, cfgPath, "source: "+source+"\n"+
		"log:\n  level: warn\n"+
		"diagram:\n  path: "+diagramPath+"\n"+
		"store:\n  backend: memory\n")

	var stdout, stderr bytes.Buffer
	app, err := cli.NewApp(context.Background(), cli.Options{
		ConfigPath: cfgPath,
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	require.NoError(t, app.Run(context.Background(), ""))

	out := stdout.String()
	assert.Contains(t, out, "Workflow graph saved to "+diagramPath)
	assert.Contains(t, out, "Running workflow...")
	assert.Contains(t, out, "Found 1 missing value(s) - routing to cleaning step")
	assert.Contains(t, out, "Data Summary:")

	mmd, err := os.ReadFile(diagramPath)
	require.NoError(t, err)
	assert.Contains(t, string(mmd), "graph TD")

	ids, err := app.Store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 1)
	report, err := app.Store.Load(context.Background(), ids[0])
	require.NoError(t, err)
	assert.True(t, report.Cleaned)
	assert.Equal(t, source, report.SourcePath)

	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics.PipelineRuns.WithLabelValues(observability.StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics.RouteDecisions.WithLabelValues("inspect", "Handle")))
}

func TestApp_RunFailure(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sieve.yaml")
	writeFile(t, cfgPath, "diagram:\n  enabled: false\n")

	var stdout bytes.Buffer
	app, err := cli.NewApp(context.Background(), cli.Options{
		ConfigPath: cfgPath,
		Stdout:     &stdout,
		Stderr:     &bytes.Buffer{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	err = app.Run(context.Background(), filepath.Join(dir, "missing.csv"))

	var stepErr *domain.StepExecutionError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "load", stepErr.StepName)
	assert.NotContains(t, stdout.String(), "Data Summary:")
	assert.NotContains(t, stdout.String(), "Workflow graph saved")
	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics.PipelineRuns.WithLabelValues(observability.StatusError)))
}

func TestApp_SaveDiagramFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	app, err := cli.NewApp(context.Background(), cli.Options{
		ConfigPath: filepath.Join(dir, "absent.yaml"),
		Stdout:     &stdout,
		Stderr:     &bytes.Buffer{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	// A regular file where a directory is expected makes the write fail.
	blocker := filepath.Join(dir, "blocker")
	writeFile(t, blocker, "")

	err = app.SaveDiagram(context.Background(), filepath.Join(blocker, "graph.mmd"))
	require.Error(t, err)
	assert.Contains(t, stdout.String(), "Could not generate graph visualization:")
}

func TestNewApp_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sieve.yaml")
	writeFile(t, cfgPath, "log:\n  level: loud\n")

	_, err := cli.NewApp(context.Background(), cli.Options{ConfigPath: cfgPath, Stderr: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestNewApp_DebugOverridesLevel(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sieve.yaml")
	writeFile(t, cfgPath, "log:\n  level: error\n  format: json\n")

	var stderr bytes.Buffer
	app, err := cli.NewApp(context.Background(), cli.Options{
		ConfigPath: cfgPath,
		Debug:      true,
		Stdout:     &bytes.Buffer{},
		Stderr:     &stderr,
	})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	app.Logger.Debug("debug line")
	assert.Contains(t, stderr.String(), `"msg":"debug line"`)
}

func newQuietApp(t *testing.T, yaml string) *cli.App {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "sieve.yaml")
	writeFile(t, cfgPath, "diagram:\n  enabled: false\n"+yaml)

	app, err := cli.NewApp(context.Background(), cli.Options{
		ConfigPath: cfgPath,
		Stdout:     &bytes.Buffer{},
		Stderr:     &bytes.Buffer{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestApp_TraceRun(t *testing.T) {
	dir := t.TempDir()
	withGap := filepath.Join(dir, "gap.csv")
	writeFile(t, withGap, "a,b\n1,x\n,y\n3,z\n")

	tests := []struct {
		name        string
		source      string
		wantVisited []string
		wantFailed  string
		wantStatus  string
	}{
		{
			name:        "cleaning branch",
			source:      withGap,
			wantVisited: []string{"load", "inspect", "clean", "summarize", "report"},
			wantStatus:  observability.StatusSuccess,
		},
		{
			name:       "failed load",
			source:     filepath.Join(dir, "missing.csv"),
			wantFailed: "load",
			wantStatus: observability.StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newQuietApp(t, "")

			src, err := app.TraceRun(context.Background(), tt.source)
			if tt.wantFailed != "" {
				var stepErr *domain.StepExecutionError
				require.ErrorAs(t, err, &stepErr)
				assert.Equal(t, tt.wantFailed, stepErr.StepName)
				assert.Contains(t, src, "class "+tt.wantFailed+" failed;")
			} else {
				require.NoError(t, err)
				assert.NotContains(t, src, " failed;")
			}

			assert.True(t, strings.HasPrefix(src, "graph TD\n"))
			for _, step := range tt.wantVisited {
				assert.Contains(t, src, "class "+step+" visited;")
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics.PipelineRuns.WithLabelValues(tt.wantStatus)))
		})
	}
}

func TestApp_RunsThroughHTTPAreCounted(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "data.csv"), "a\n1\n2\n")
	app := newQuietApp(t, "server:\n  data_dir: "+dataDir+"\n")

	handler, err := sievehttp.NewHandler(app.Engine,
		sievehttp.WithGatherer(app.Registry),
		sievehttp.WithDataDir(app.Config.Server.DataDir),
	)
	require.NoError(t, err)

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, post(`{"source_path":"data.csv"}`))
	assert.Equal(t, http.StatusCreated, post(`{"source_path":"data.csv"}`))
	assert.Equal(t, http.StatusUnprocessableEntity, post(`{"source_path":"missing.csv"}`))

	assert.Equal(t, 2.0, testutil.ToFloat64(app.Metrics.PipelineRuns.WithLabelValues(observability.StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics.PipelineRuns.WithLabelValues(observability.StatusError)))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `sieve_pipeline_runs_total{status="success"} 2`)
}

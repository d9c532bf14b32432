package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/tophits/internal/metrics"
	"github.com/desertthunder/tophits/internal/models"
	"github.com/desertthunder/tophits/internal/server"
	"github.com/desertthunder/tophits/internal/services"
	"github.com/desertthunder/tophits/internal/shared"
	"github.com/desertthunder/tophits/internal/tasks"
	tu "github.com/desertthunder/tophits/internal/testing"
	"github.com/urfave/cli/v3"
)

// newTestRunner wires a runner to a mock catalog so commands never reach the network.
func newTestRunner(catalog *tu.MockCatalog, output *bytes.Buffer) *Runner {
	m := metrics.NewManager()
	return NewRunner(RunnerOpts{
		Config:  shared.DefaultConfig(),
		Catalog: catalog,
		Engine:  tasks.NewHitsEngine(catalog, tasks.WithMetrics(m)),
		Metrics: m,
		Logger:  shared.NewLogger(&bytes.Buffer{}),
		Output:  output,
	})
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "tophits", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"tophits"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			catalog := &tu.MockCatalog{}
			engine := tasks.NewHitsEngine(catalog)
			m := metrics.NewManager()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Catalog:    catalog,
				Engine:     engine,
				Metrics:    m,
				HTTPClient: httpClient,
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.engine != engine {
				t.Error("expected engine to be set")
			}
			if runner.metrics != m {
				t.Error("expected metrics to be set")
			}
		})

		t.Run("with nil dependencies uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.metrics != metrics.Default() {
				t.Error("expected default metrics manager")
			}
			if runner.config != nil || runner.catalog != nil || runner.engine != nil {
				t.Error("expected config, catalog and engine to be built lazily")
			}
		})
	})

	t.Run("prepare", func(t *testing.T) {
		t.Run("loads the config file and builds the catalog", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := shared.CreateConfigFile(path); err != nil {
				t.Fatalf("failed to create config: %v", err)
			}

			runner := NewRunner(RunnerOpts{ConfigPath: path, Logger: shared.NewLogger(&bytes.Buffer{}), Metrics: metrics.NewManager()})
			if err := runner.prepare(nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if runner.config == nil {
				t.Fatal("expected config to be loaded")
			}
			if _, ok := runner.catalog.(*services.SpotifyCatalog); !ok {
				t.Errorf("expected a spotify catalog, got %T", runner.catalog)
			}
			if _, ok := runner.engine.(*tasks.HitsEngine); !ok {
				t.Errorf("expected a hits engine, got %T", runner.engine)
			}
		})

		t.Run("explicit missing config is an error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")})

			if err := runner.prepare(nil); !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("keeps injected dependencies", func(t *testing.T) {
			catalog := &tu.MockCatalog{}
			runner := newTestRunner(catalog, &bytes.Buffer{})
			engine := runner.engine

			if err := runner.prepare(nil); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.catalog != catalog || runner.engine != engine {
				t.Error("expected injected catalog and engine to be kept")
			}
		})

		t.Run("invalid log level", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Log.Level = "loud"
			runner := NewRunner(RunnerOpts{Config: config, Catalog: &tu.MockCatalog{}})

			if err := runner.prepare(nil); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}

		failing := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := failing.writePlain("test"); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := map[string]bool{}
		for i, cmd := range runner.register() {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, name := range []string{"serve", "random", "search", "top", "tui", "config"} {
			if !names[name] {
				t.Errorf("expected %s command to be registered", name)
			}
		}
	})
}

func TestRandomCommand(t *testing.T) {
	page := tu.TracksWithPopularity(90, 85, 80, 75, 72, 71, 10)

	t.Run("json", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newTestRunner(&tu.MockCatalog{Page: page}, output)

		if err := run(runner, "random", "--format", "json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var resp server.RandomHitsResponse
		if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if len(resp.Tracks) != 5 || resp.Threshold != 70 || resp.Candidates != 7 {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("csv", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newTestRunner(&tu.MockCatalog{Page: page}, output)

		if err := run(runner, "random", "-f", "csv"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 6 || !strings.HasPrefix(lines[0], "Rank,Title") {
			t.Errorf("expected header plus 5 rows, got %q", output.String())
		}
	})

	t.Run("text with progress", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newTestRunner(&tu.MockCatalog{Page: page}, output)

		if err := run(runner, "random"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		for _, want := range []string{"Picked", "5 Random Popular Songs:", "1. Artist - Track"} {
			if !strings.Contains(result, want) {
				t.Errorf("expected %q in output, got %q", want, result)
			}
		}
	})

	t.Run("markdown fallback notice", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newTestRunner(&tu.MockCatalog{Page: tu.TracksWithPopularity(5, 6)}, output)

		if err := run(runner, "random", "--format", "markdown"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), noticeFallback) {
			t.Errorf("expected fallback notice, got %q", output.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		catalog := &tu.MockCatalog{}
		runner := newTestRunner(catalog, &bytes.Buffer{})

		if err := run(runner, "random", "--format", "yaml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if len(catalog.Queries) != 0 {
			t.Error("expected no catalog calls")
		}
	})

	t.Run("catalog error", func(t *testing.T) {
		runner := newTestRunner(&tu.MockCatalog{SearchTracksErr: shared.NewUpstreamError("search", 500, nil)}, &bytes.Buffer{})

		if err := run(runner, "random"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestSearchCommand(t *testing.T) {
	artists := []models.Artist{
		{ID: "ar1", Name: "Daft Punk", Genres: []string{"french house"}},
		{ID: "ar2", Name: "Daft Punk Tribute"},
	}

	t.Run("exact match prints top tracks", func(t *testing.T) {
		output := &bytes.Buffer{}
		catalog := &tu.MockCatalog{
			Artists:   artists,
			TopTracks: map[string][]models.Track{"ar1": tu.TracksWithPopularity(20, 80)},
		}
		runner := newTestRunner(catalog, output)

		if err := run(runner, "search", "daft punk"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "Top 5 Tracks: Daft Punk") {
			t.Errorf("expected top tracks header, got %q", result)
		}
		if !strings.Contains(result, "1. Artist - Track 1") {
			t.Errorf("expected most popular track first, got %q", result)
		}
	})

	t.Run("no exact match lists artists", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newTestRunner(&tu.MockCatalog{Artists: artists}, output)

		if err := run(runner, "search", "daft"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "Search Results:") || !strings.Contains(result, "Daft Punk Tribute (ar2)") {
			t.Errorf("expected artist list, got %q", result)
		}
	})

	t.Run("json", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newTestRunner(&tu.MockCatalog{Artists: artists}, output)

		if err := run(runner, "search", "--json", "daft"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var lookup tasks.ArtistLookup
		if err := json.Unmarshal(output.Bytes(), &lookup); err != nil {
			t.Fatalf("expected JSON output: %v", err)
		}
		if lookup.Query != "daft" || len(lookup.Artists) != 2 || lookup.Match != nil {
			t.Errorf("unexpected lookup %+v", lookup)
		}
	})

	t.Run("missing artist", func(t *testing.T) {
		runner := newTestRunner(&tu.MockCatalog{}, &bytes.Buffer{})

		if err := run(runner, "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestTopCommand(t *testing.T) {
	t.Run("prints ranked tracks", func(t *testing.T) {
		output := &bytes.Buffer{}
		catalog := &tu.MockCatalog{TopTracks: map[string][]models.Track{"ar1": tu.TracksWithPopularity(1, 2, 3, 4, 5, 6)}}
		runner := newTestRunner(catalog, output)

		if err := run(runner, "top", "ar1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "1. Artist - Track 5") || strings.Contains(result, "Track 0") {
			t.Errorf("expected 5 ranked tracks, got %q", result)
		}
	})

	t.Run("json", func(t *testing.T) {
		output := &bytes.Buffer{}
		catalog := &tu.MockCatalog{TopTracks: map[string][]models.Track{"ar1": tu.TracksWithPopularity(1, 2)}}
		runner := newTestRunner(catalog, output)

		if err := run(runner, "top", "--json", "ar1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var tracks []models.Track
		if err := json.Unmarshal(output.Bytes(), &tracks); err != nil {
			t.Fatalf("expected JSON output: %v", err)
		}
		if len(tracks) != 2 || tracks[0].Popularity != 2 {
			t.Errorf("unexpected tracks %+v", tracks)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		runner := newTestRunner(&tu.MockCatalog{}, &bytes.Buffer{})

		if err := run(runner, "top"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestConfigCommand(t *testing.T) {
	t.Run("init writes the example config once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := newTestRunner(&tu.MockCatalog{}, output)

		if err := run(runner, "config", "init", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "[credentials.spotify]") {
			t.Error("expected example config contents")
		}
		if !strings.Contains(output.String(), path) {
			t.Errorf("expected path in output, got %q", output.String())
		}

		if err := run(runner, "config", "init", "--config", path); err == nil {
			t.Error("expected error when the file already exists")
		}
	})

	t.Run("show masks secrets", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := newTestRunner(&tu.MockCatalog{}, output)
		runner.config.Credentials.Spotify.ClientID = "client-id"
		runner.config.Credentials.Spotify.ClientSecret = "super-secret"

		if err := run(runner, "config", "show"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		result := output.String()
		if strings.Contains(result, "super-secret") {
			t.Error("expected secret to be masked")
		}
		if !strings.Contains(result, "client-id") || !strings.Contains(result, "********") {
			t.Errorf("unexpected config output %q", result)
		}
	})
}

func TestServeHelpers(t *testing.T) {
	t.Run("splitAddr", func(t *testing.T) {
		host, port, err := splitAddr("127.0.0.1:8080")
		if err != nil || host != "127.0.0.1" || port != 8080 {
			t.Errorf("unexpected result %q %d %v", host, port, err)
		}

		for _, addr := range []string{"8080", "host:port", ":70000"} {
			if _, _, err := splitAddr(addr); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("%q: expected ErrInvalidArgument, got %v", addr, err)
			}
		}
	})

	t.Run("browserURL", func(t *testing.T) {
		tests := []struct {
			addr net.Addr
			want string
		}{
			{&net.TCPAddr{IP: net.IPv4zero, Port: 3000}, "http://localhost:3000/"},
			{&net.TCPAddr{IP: net.IPv6unspecified, Port: 3000}, "http://localhost:3000/"},
			{&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}, "http://127.0.0.1:8080/"},
		}

		for _, tt := range tests {
			if got := browserURL(tt.addr); got != tt.want {
				t.Errorf("browserURL(%v) = %q, want %q", tt.addr, got, tt.want)
			}
		}
	})
}

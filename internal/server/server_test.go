package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tophits/internal/metrics"
	"github.com/desertthunder/tophits/internal/models"
	"github.com/desertthunder/tophits/internal/server"
	"github.com/desertthunder/tophits/internal/shared"
	"github.com/desertthunder/tophits/internal/tasks"
	tu "github.com/desertthunder/tophits/internal/testing"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestServer(catalog *tu.MockCatalog) *server.Server {
	logger := log.New(io.Discard)
	m := metrics.NewManager()
	engine := tasks.NewHitsEngine(catalog,
		tasks.WithClock(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }),
		tasks.WithRand(rand.New(rand.NewPCG(3, 5))),
		tasks.WithMetrics(m),
		tasks.WithLogger(logger),
	)

	return server.New(server.Opts{
		Config: shared.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			AllowedOrigins: []string{"https://j-taggart.github.io", "http://localhost:3000"},
		},
		Catalog: catalog,
		Engine:  engine,
		Metrics: m,
		Logger:  logger,
	})
}

func get(h http.Handler, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) server.ErrorResponse {
	var body server.ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestRoutes(t *testing.T) {
	Convey("Given a server backed by a mock catalog", t, func() {
		catalog := &tu.MockCatalog{}
		srv := newTestServer(catalog)
		h := srv.Handler()

		Convey("GET /health reports ok without touching the catalog", func() {
			w := get(h, "/health")

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, "{\"status\":\"ok\"}\n")
			So(catalog.Queries, ShouldBeEmpty)
			So(catalog.SearchRequests, ShouldBeEmpty)
		})

		Convey("GET /api/search", func() {
			Convey("without q is a 400 validation error", func() {
				w := get(h, "/api/search?type=artist")

				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(w)
				So(body.Code, ShouldEqual, shared.KindValidation)
				So(body.Error, ShouldContainSubstring, "q (query)")
				So(catalog.SearchRequests, ShouldBeEmpty)
			})

			Convey("without type is a 400 validation error", func() {
				w := get(h, "/api/search?q=daft")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("with an unknown type is a 400 validation error", func() {
				w := get(h, "/api/search?q=daft&type=podcast")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("with an out of range limit is a 400 validation error", func() {
				w := get(h, "/api/search?q=daft&type=artist&limit=500")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("proxies a valid request", func() {
				catalog.Result = &models.SearchResult{Artists: &models.ArtistPage{Items: []models.Artist{{ID: "ar1", Name: "Daft Punk"}}}}

				w := get(h, "/api/search?q=daft+punk&type=artist")

				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"artists":{"items":[{"id":"ar1","name":"Daft Punk"}]}`)
				So(catalog.SearchRequests, ShouldHaveLength, 1)
				So(catalog.SearchRequests[0].Query, ShouldEqual, "daft punk")
				So(catalog.SearchRequests[0].Limit, ShouldEqual, 10)
			})

			Convey("maps rejected credentials to a generic 500", func() {
				catalog.SearchErr = fmt.Errorf("%w: token endpoint returned 401", shared.ErrAuthFailed)

				w := get(h, "/api/search?q=daft&type=artist")

				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeError(w)
				So(body.Code, ShouldEqual, shared.KindAuth)
				So(body.Error, ShouldEqual, "server misconfiguration")
			})
		})

		Convey("GET /api/artist-top-tracks/{id}", func() {
			Convey("returns at most five tracks sorted by popularity", func() {
				catalog.TopTracks = map[string][]models.Track{"ar1": tu.TracksWithPopularity(10, 90, 50, 70, 30, 95, 20)}

				w := get(h, "/api/artist-top-tracks/ar1")

				So(w.Code, ShouldEqual, http.StatusOK)
				var tracks []models.Track
				So(json.Unmarshal(w.Body.Bytes(), &tracks), ShouldBeNil)
				So(tracks, ShouldHaveLength, 5)
				So(tracks[0].Popularity, ShouldEqual, 95)
				So(tracks[4].Popularity, ShouldEqual, 30)
			})

			Convey("maps an upstream 404 to 502", func() {
				catalog.TopTracksErr = shared.NewUpstreamError("top_tracks", http.StatusNotFound, nil)

				w := get(h, "/api/artist-top-tracks/unknown")

				So(w.Code, ShouldEqual, http.StatusBadGateway)
				body := decodeError(w)
				So(body.Code, ShouldEqual, shared.KindUpstream)
				So(body.Error, ShouldContainSubstring, "404")
			})

			Convey("without an id is a 400", func() {
				So(get(h, "/api/artist-top-tracks/").Code, ShouldEqual, http.StatusBadRequest)
				So(get(h, "/api/artist-top-tracks").Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("renders an HTML fragment on request", func() {
				catalog.TopTracks = map[string][]models.Track{"ar1": tu.TracksWithPopularity(60)}

				w := get(h, "/api/artist-top-tracks/ar1?format=html")

				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldStartWith, "text/html")
				So(w.Body.String(), ShouldContainSubstring, "Top 5 Tracks:")
				So(w.Body.String(), ShouldContainSubstring, "Track 0")
			})
		})

		Convey("GET /api/random-hits", func() {
			Convey("samples the era page", func() {
				catalog.Page = tu.TracksWithPopularity(95, 90, 85, 80, 75, 70, 30, 20)

				w := get(h, "/api/random-hits")

				So(w.Code, ShouldEqual, http.StatusOK)
				var body server.RandomHitsResponse
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Year, ShouldBeBetweenOrEqual, 1980, 2015)
				So(body.Offset, ShouldBeBetweenOrEqual, 0, 1000)
				So(body.Threshold, ShouldEqual, 70)
				So(body.Fallback, ShouldBeFalse)
				So(body.Candidates, ShouldEqual, 8)
				So(body.Tracks, ShouldHaveLength, 5)
				for _, tr := range body.Tracks {
					So(tr.Popularity, ShouldBeGreaterThanOrEqualTo, 70)
				}
			})

			Convey("flags the unfiltered fallback", func() {
				catalog.Page = tu.TracksWithPopularity(10, 20)

				w := get(h, "/api/random-hits?format=html")

				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "5 Random Popular Songs:")
				So(w.Body.String(), ShouldContainSubstring, `class="notice"`)
			})

			Convey("returns an empty list for an empty page", func() {
				w := get(h, "/api/random-hits")

				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"tracks":[]`)
			})

			Convey("maps upstream failures to 502", func() {
				catalog.SearchTracksErr = shared.NewUpstreamError("search", http.StatusServiceUnavailable, nil)
				So(get(h, "/api/random-hits").Code, ShouldEqual, http.StatusBadGateway)
			})
		})

		Convey("GET /api/artist", func() {
			catalog.Artists = []models.Artist{{ID: "ar1", Name: "Daft Punk"}, {ID: "ar2", Name: "Daft Punk Tribute"}}
			catalog.TopTracks = map[string][]models.Track{"ar1": tu.TracksWithPopularity(80, 60)}

			Convey("resolves an exact match to top tracks", func() {
				w := get(h, "/api/artist?name=daft+punk")

				So(w.Code, ShouldEqual, http.StatusOK)
				var lookup tasks.ArtistLookup
				So(json.Unmarshal(w.Body.Bytes(), &lookup), ShouldBeNil)
				So(lookup.Match, ShouldNotBeNil)
				So(lookup.Match.ID, ShouldEqual, "ar1")
				So(lookup.TopTracks, ShouldHaveLength, 2)
			})

			Convey("lists candidates as buttons when nothing matches exactly", func() {
				w := get(h, "/api/artist?name=daft&format=html")

				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `data-artist-id="ar2"`)
			})

			Convey("without a name is a 400", func() {
				So(get(h, "/api/artist").Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("unknown API paths are JSON 404s", func() {
			w := get(h, "/api/nope")

			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
		})

		Convey("other methods are rejected", func() {
			req := httptest.NewRequest(http.MethodPost, "/health", nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodGet)
		})

		Convey("GET / serves the embedded frontend", func() {
			w := get(h, "/")

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `id="result-container"`)
			So(w.Body.String(), ShouldContainSubstring, "app.js")

			So(get(h, "/app.js").Code, ShouldEqual, http.StatusOK)
			So(get(h, "/style.css").Code, ShouldEqual, http.StatusOK)
		})

		Convey("GET /metrics exposes request counters", func() {
			get(h, "/health")

			w := get(h, "/metrics")

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "tophits_http_requests_total")
			So(w.Body.String(), ShouldContainSubstring, `endpoint="/health"`)
		})

		Convey("every response carries a request id", func() {
			w := get(h, "/health")
			So(w.Header().Get(server.RequestIDHeader), ShouldNotBeBlank)

			w = get(h, "/health", server.RequestIDHeader, "abc-123")
			So(w.Header().Get(server.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("CORS", func() {
			Convey("allows listed origins", func() {
				w := get(h, "/health", "Origin", "https://j-taggart.github.io")
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://j-taggart.github.io")
			})

			Convey("ignores other origins", func() {
				w := get(h, "/health", "Origin", "https://evil.example")
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldBeEmpty)
			})

			Convey("answers preflight requests", func() {
				req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
				req.Header.Set("Origin", "http://localhost:3000")
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)

				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(w.Header().Get("Access-Control-Allow-Methods"), ShouldContainSubstring, "GET")
			})
		})
	})
}

func TestServe(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv := newTestServer(&tu.MockCatalog{})
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx, ln) }()

		Convey("it answers requests until the context is cancelled", func() {
			resp, err := http.Get("http://" + ln.Addr().String() + "/health")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			cancel()
			select {
			case err := <-done:
				So(err, ShouldBeNil)
			case <-time.After(server.ShutdownTimeout):
				t.Fatal("server did not shut down")
			}
		})

		Reset(cancel)
	})
}

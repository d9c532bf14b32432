package server

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tophits/internal/formatter"
	"github.com/desertthunder/tophits/internal/models"
	"github.com/desertthunder/tophits/internal/services"
	"github.com/desertthunder/tophits/internal/shared"
	"github.com/desertthunder/tophits/internal/tasks"
)

// Fragment headings, matching the browser frontend.
const (
	headingRandom    = "5 Random Popular Songs:"
	headingTopTracks = "Top 5 Tracks:"
	headingResults   = "Search Results:"
	noticeFallback   = "Nothing in this era reached the popularity floor, so these picks are unfiltered."
)

// RandomHitsResponse is the JSON body of GET /api/random-hits.
type RandomHitsResponse struct {
	Year       int            `json:"year"`
	Offset     int            `json:"offset"`
	Threshold  int            `json:"threshold"`
	Fallback   bool           `json:"fallback"`
	Candidates int            `json:"candidates"`
	Tracks     []models.Track `json:"tracks"`
}

// API serves the JSON (and optional HTML fragment) endpoints under /api.
type API struct {
	catalog services.Catalog
	engine  tasks.Engine
	logger  *log.Logger
}

// NewAPI creates the API handlers.
func NewAPI(catalog services.Catalog, engine tasks.Engine, logger *log.Logger) *API {
	if logger == nil {
		logger = log.Default()
	}
	return &API{catalog: catalog, engine: engine, logger: logger}
}

// Register adds every API route to router.
func (a *API) Register(router Router) {
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(a.Health))
	router.Handle(http.MethodGet, "/api/search", http.HandlerFunc(a.Search))
	router.Handle(http.MethodGet, "/api/artist", http.HandlerFunc(a.Artist))
	router.Handle(http.MethodGet, "/api/artist-top-tracks/{id}", http.HandlerFunc(a.TopTracks))
	router.Handle(http.MethodGet, "/api/artist-top-tracks", http.HandlerFunc(a.MissingArtistID))
	router.Handle(http.MethodGet, "/api/artist-top-tracks/", http.HandlerFunc(a.MissingArtistID))
	router.Handle(http.MethodGet, "/api/random-hits", http.HandlerFunc(a.RandomHits))
	router.Handle(http.MethodGet, "/api/", http.HandlerFunc(a.NotFound))
}

// Health reports liveness without touching the catalog.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Search proxies a catalog search: GET /api/search?q=&type=artist,track&limit=
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req, err := services.NewSearchRequest(query.Get("q"), query.Get("type"), query.Get("limit"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	result, err := a.catalog.Search(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if !wantsHTML(r) {
		writeJSON(w, http.StatusOK, result)
		return
	}

	var body []byte
	if result.Artists != nil {
		frag, err := formatter.ArtistsToHTML(headingResults, result.Artists.Items)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		body = append(body, frag...)
	}
	if result.Tracks != nil {
		frag, err := formatter.TracksToHTML(headingResults, "", result.Tracks.Items)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		body = append(body, frag...)
	}
	writeHTML(w, http.StatusOK, body)
}

// Artist looks up an artist by name: GET /api/artist?name=
//
// An exact match carries its top tracks, otherwise the candidate list is returned.
func (a *API) Artist(w http.ResponseWriter, r *http.Request) {
	lookup, err := a.engine.FindArtist(r.Context(), r.URL.Query().Get("name"), nil)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if !wantsHTML(r) {
		writeJSON(w, http.StatusOK, lookup)
		return
	}

	var body []byte
	if lookup.Match != nil {
		body, err = formatter.TracksToHTML(headingTopTracks+" "+lookup.Match.Name, "", lookup.TopTracks)
	} else {
		body, err = formatter.ArtistsToHTML(headingResults, lookup.Artists)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, body)
}

// TopTracks returns up to five tracks for an artist, most popular first: GET /api/artist-top-tracks/{id}
func (a *API) TopTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := a.engine.TopTracks(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.tracks(w, r, headingTopTracks, "", tracks)
}

// MissingArtistID answers top-track requests without a usable artist id.
func (a *API) MissingArtistID(w http.ResponseWriter, r *http.Request) {
	a.fail(w, r, fmt.Errorf("%w: artist id is required", shared.ErrMissingArgument))
}

// RandomHits samples popular tracks from a random era: GET /api/random-hits
func (a *API) RandomHits(w http.ResponseWriter, r *http.Request) {
	hits, err := a.engine.RandomHits(r.Context(), nil)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if wantsHTML(r) {
		notice := ""
		if hits.Result.Fallback {
			notice = noticeFallback
		}
		title := fmt.Sprintf("%s %d", headingRandom, hits.Era.Year)
		a.tracks(w, r, title, notice, hits.Result.Tracks)
		return
	}

	writeJSON(w, http.StatusOK, RandomHitsResponse{
		Year:       hits.Era.Year,
		Offset:     hits.Era.Offset,
		Threshold:  hits.Result.Threshold,
		Fallback:   hits.Result.Fallback,
		Candidates: hits.Candidates,
		Tracks:     hits.Result.Tracks,
	})
}

// NotFound answers unknown /api paths with a JSON 404.
func (a *API) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, a.logger, fmt.Errorf("%w: no route for %s", shared.ErrInvalidInput, r.URL.Path), http.StatusNotFound)
}

func (a *API) tracks(w http.ResponseWriter, r *http.Request, title, notice string, tracks []models.Track) {
	if tracks == nil {
		tracks = []models.Track{}
	}

	if !wantsHTML(r) {
		writeJSON(w, http.StatusOK, tracks)
		return
	}

	body, err := formatter.TracksToHTML(title, notice, tracks)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, body)
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, a.logger.With("request_id", RequestIDFrom(r.Context()), "path", r.URL.Path), err, 0)
}

func wantsHTML(r *http.Request) bool {
	return r.URL.Query().Get("format") == "html"
}

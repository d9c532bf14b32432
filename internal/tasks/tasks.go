package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tophits/internal/metrics"
	"github.com/desertthunder/tophits/internal/models"
	"github.com/desertthunder/tophits/internal/sampler"
	"github.com/desertthunder/tophits/internal/services"
	"github.com/desertthunder/tophits/internal/shared"
)

const (
	// PageSize is the number of candidates requested for one era.
	PageSize = 50
	// ArtistSearchLimit is the number of candidates returned by an artist lookup.
	ArtistSearchLimit = 10
)

// Hits is the outcome of one random-hits run.
type Hits struct {
	Era        sampler.Era    // Year and page offset that were searched
	Query      string         // Catalog query built from the era
	Candidates int            // Size of the candidate page
	Result     sampler.Result // Sampled tracks
}

// ArtistLookup is the outcome of [Engine.FindArtist].
//
// Match is set when an artist name equals the query (ignoring case); TopTracks then holds that artist's top tracks.
// Otherwise Artists holds the candidates to pick from.
type ArtistLookup struct {
	Query     string          `json:"query"`
	Artists   []models.Artist `json:"artists"`
	Match     *models.Artist  `json:"match,omitempty"`
	TopTracks []models.Track  `json:"top_tracks,omitempty"`
}

// Engine defines the operations exposed by the CLI, TUI and web server.
type Engine interface {
	// RandomHits picks a random era, searches one page of candidates and samples popular tracks from it.
	RandomHits(ctx context.Context, progress chan<- ProgressUpdate) (*Hits, error)

	// FindArtist searches artists by name and resolves an exact match to its top tracks.
	FindArtist(ctx context.Context, name string, progress chan<- ProgressUpdate) (*ArtistLookup, error)

	// TopTracks returns at most five of an artist's tracks, most popular first.
	TopTracks(ctx context.Context, artistID string) ([]models.Track, error)
}

// HitsEngine implements Engine on top of a [services.Catalog].
type HitsEngine struct {
	catalog   services.Catalog
	sampler   *sampler.Sampler
	rng       sampler.Rand
	now       func() time.Time
	genres    []string
	startYear int
	metrics   *metrics.Manager
	logger    *log.Logger
}

// EngineOption configures a [HitsEngine].
type EngineOption func(*HitsEngine)

// WithSampler replaces the default sampler.
func WithSampler(s *sampler.Sampler) EngineOption {
	return func(e *HitsEngine) {
		if s != nil {
			e.sampler = s
		}
	}
}

// WithRand sets the random source used for era selection.
func WithRand(r sampler.Rand) EngineOption {
	return func(e *HitsEngine) { e.rng = r }
}

// WithClock sets the clock used to bound era selection.
func WithClock(now func() time.Time) EngineOption {
	return func(e *HitsEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithGenres sets the genre filters added to era queries.
func WithGenres(genres []string) EngineOption {
	return func(e *HitsEngine) { e.genres = genres }
}

// WithStartYear sets the earliest year an era can start at.
func WithStartYear(year int) EngineOption {
	return func(e *HitsEngine) { e.startYear = year }
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) EngineOption {
	return func(e *HitsEngine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *HitsEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewHitsEngine creates a HitsEngine for the given catalog.
func NewHitsEngine(catalog services.Catalog, opts ...EngineOption) *HitsEngine {
	e := &HitsEngine{
		catalog:   catalog,
		sampler:   sampler.New(),
		now:       time.Now,
		genres:    sampler.DefaultGenres,
		startYear: sampler.MinYear,
		metrics:   metrics.Default(),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RandomHits runs one era search and samples it.
//
// An empty candidate page is not an error: the result then holds no tracks.
func (e *HitsEngine) RandomHits(ctx context.Context, progress chan<- ProgressUpdate) (*Hits, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	era := sampler.PickEraFrom(e.now(), e.startYear, e.rng)
	send(progress, pickEraUpdate(era))

	query := era.Query(e.genres)
	send(progress, searchCandidatesUpdate(query))

	candidates, err := e.catalog.SearchTracks(ctx, query, PageSize, era.Offset)
	if err != nil {
		return nil, err
	}

	result := e.sampler.Sample(candidates)
	e.metrics.RecordSample(len(candidates), result.Threshold, result.Fallback)
	e.logger.Debug("sampled era",
		"year", era.Year, "offset", era.Offset, "candidates", len(candidates),
		"threshold", result.Threshold, "fallback", result.Fallback, "selected", len(result.Tracks))
	send(progress, sampleTracksUpdate(len(candidates), result))

	return &Hits{Era: era, Query: query, Candidates: len(candidates), Result: result}, nil
}

// FindArtist searches up to [ArtistSearchLimit] artists named like name.
func (e *HitsEngine) FindArtist(ctx context.Context, name string, progress chan<- ProgressUpdate) (*ArtistLookup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: artist name", shared.ErrMissingArgument)
	}
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	send(progress, searchArtistsUpdate(name))
	artists, err := e.catalog.SearchArtists(ctx, name, ArtistSearchLimit)
	if err != nil {
		return nil, err
	}

	lookup := &ArtistLookup{Query: name, Artists: artists}
	if lookup.Artists == nil {
		lookup.Artists = []models.Artist{}
	}

	match := ExactMatch(artists, name)
	if match == nil {
		e.logger.Debug("no exact artist match", "query", name, "candidates", len(artists))
		return lookup, nil
	}

	send(progress, fetchTopTracksUpdate(2, 2, match.Name))
	tracks, err := e.TopTracks(ctx, match.ID)
	if err != nil {
		return nil, err
	}

	lookup.Match = match
	lookup.TopTracks = tracks
	return lookup, nil
}

// TopTracks returns the artist's top tracks ranked by popularity.
func (e *HitsEngine) TopTracks(ctx context.Context, artistID string) ([]models.Track, error) {
	artistID = strings.TrimSpace(artistID)
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	tracks, err := e.catalog.TopTracksForArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}
	return services.RankTopTracks(tracks), nil
}

// ExactMatch returns the first artist whose name equals name, ignoring case and surrounding space.
func ExactMatch(artists []models.Artist, name string) *models.Artist {
	name = strings.TrimSpace(name)
	for i := range artists {
		if strings.EqualFold(strings.TrimSpace(artists[i].Name), name) {
			match := artists[i]
			return &match
		}
	}
	return nil
}

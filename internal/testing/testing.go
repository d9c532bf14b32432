// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/tophits/internal/models"
	"github.com/desertthunder/tophits/internal/services"
	"golang.org/x/oauth2"
)

// MockCatalog is a test double for [services.Catalog].
//
// Canned responses are set through the exported fields; calls are recorded for assertions.
type MockCatalog struct {
	mu sync.Mutex

	TokenErr         error
	Page             []models.Track
	SearchTracksErr  error
	Artists          []models.Artist
	SearchArtistsErr error
	TopTracks        map[string][]models.Track
	TopTracksErr     error
	Result           *models.SearchResult
	SearchErr        error

	Queries        []string
	Offsets        []int
	ArtistQueries  []string
	TopTrackIDs    []string
	SearchRequests []services.SearchRequest
}

func (m *MockCatalog) Name() string { return "mock" }

func (m *MockCatalog) FetchToken(ctx context.Context) (*oauth2.Token, error) {
	if m.TokenErr != nil {
		return nil, m.TokenErr
	}
	return &oauth2.Token{AccessToken: "mock-token", TokenType: "Bearer"}, nil
}

func (m *MockCatalog) SearchTracks(ctx context.Context, query string, limit, offset int) ([]models.Track, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.Offsets = append(m.Offsets, offset)
	m.mu.Unlock()

	if m.SearchTracksErr != nil {
		return nil, m.SearchTracksErr
	}
	if len(m.Page) > limit {
		return m.Page[:limit], nil
	}
	return m.Page, nil
}

func (m *MockCatalog) SearchArtists(ctx context.Context, name string, limit int) ([]models.Artist, error) {
	m.mu.Lock()
	m.ArtistQueries = append(m.ArtistQueries, name)
	m.mu.Unlock()

	if m.SearchArtistsErr != nil {
		return nil, m.SearchArtistsErr
	}
	if len(m.Artists) > limit {
		return m.Artists[:limit], nil
	}
	return m.Artists, nil
}

func (m *MockCatalog) TopTracksForArtist(ctx context.Context, artistID string) ([]models.Track, error) {
	m.mu.Lock()
	m.TopTrackIDs = append(m.TopTrackIDs, artistID)
	m.mu.Unlock()

	if m.TopTracksErr != nil {
		return nil, m.TopTracksErr
	}
	return m.TopTracks[artistID], nil
}

func (m *MockCatalog) Search(ctx context.Context, req services.SearchRequest) (*models.SearchResult, error) {
	m.mu.Lock()
	m.SearchRequests = append(m.SearchRequests, req)
	m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if m.Result == nil {
		return &models.SearchResult{}, nil
	}
	return m.Result, nil
}

// TracksWithPopularity builds one track per popularity score, named "Track <i>" with ids "t<i>".
func TracksWithPopularity(pops ...int) []models.Track {
	tracks := make([]models.Track, 0, len(pops))
	for i, p := range pops {
		tracks = append(tracks, models.Track{
			ID:         fmt.Sprintf("t%d", i),
			Name:       fmt.Sprintf("Track %d", i),
			Popularity: p,
			Album:      models.Album{ID: fmt.Sprintf("a%d", i), Name: "Album", ReleaseDate: "1994-05-01"},
			Artists:    []models.Artist{{ID: "ar1", Name: "Artist"}},
			URI:        fmt.Sprintf("spotify:track:t%d", i),
		})
	}
	return tracks
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

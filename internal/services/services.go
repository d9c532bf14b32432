// package services defines interface Catalog for interacting with the upstream music catalog
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/tophits/internal/models"
	"github.com/desertthunder/tophits/internal/shared"
	"golang.org/x/oauth2"
)

const (
	// DefaultSearchLimit is used when a search request does not set a limit.
	DefaultSearchLimit = 10
	// MaxSearchLimit is the largest page the catalog returns.
	MaxSearchLimit = 50
	// TopTracksLimit caps the number of top tracks returned for an artist.
	TopTracksLimit = 5
)

// Search types accepted by [Catalog.Search].
const (
	SearchTypeArtist = "artist"
	SearchTypeTrack  = "track"
)

// Catalog defines the operations the application needs from the upstream music catalog.
type Catalog interface {
	// FetchToken acquires an access token with the configured client credentials.
	FetchToken(ctx context.Context) (*oauth2.Token, error)

	// SearchTracks returns one page of tracks matching query.
	SearchTracks(ctx context.Context, query string, limit, offset int) ([]models.Track, error)

	// SearchArtists returns up to limit artists matching name.
	SearchArtists(ctx context.Context, name string, limit int) ([]models.Artist, error)

	// TopTracksForArtist returns at most [TopTracksLimit] tracks, most popular first.
	TopTracksForArtist(ctx context.Context, artistID string) ([]models.Track, error)

	// Search runs a combined artist/track search for the HTTP proxy.
	Search(ctx context.Context, req SearchRequest) (*models.SearchResult, error)

	// Name returns the name of the catalog (e.g., "Spotify")
	Name() string
}

// SearchRequest is a validated search for [Catalog.Search].
type SearchRequest struct {
	Query string
	Types []string
	Limit int
}

// Has reports whether the request includes the given search type.
func (r SearchRequest) Has(searchType string) bool {
	for _, t := range r.Types {
		if t == searchType {
			return true
		}
	}
	return false
}

// NewSearchRequest validates raw query parameters.
//
// types is a comma separated list of "artist" and "track". An empty limit means [DefaultSearchLimit].
func NewSearchRequest(query, types, limit string) (SearchRequest, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchRequest{}, fmt.Errorf("%w: q (query)", shared.ErrMissingArgument)
	}

	types = strings.TrimSpace(types)
	if types == "" {
		return SearchRequest{}, fmt.Errorf("%w: type", shared.ErrMissingArgument)
	}

	req := SearchRequest{Query: query, Limit: DefaultSearchLimit}
	for _, t := range strings.Split(types, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		switch t {
		case SearchTypeArtist, SearchTypeTrack:
			if !req.Has(t) {
				req.Types = append(req.Types, t)
			}
		default:
			return SearchRequest{}, fmt.Errorf("%w: unsupported type %q (want artist or track)", shared.ErrInvalidArgument, t)
		}
	}

	if limit = strings.TrimSpace(limit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > MaxSearchLimit {
			return SearchRequest{}, fmt.Errorf("%w: limit must be between 1 and %d", shared.ErrInvalidArgument, MaxSearchLimit)
		}
		req.Limit = n
	}

	return req, nil
}

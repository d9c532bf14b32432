// Spotify Web API implementation of [Catalog]
//
// Spotify API reference: https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tophits/internal/metrics"
	"github.com/desertthunder/tophits/internal/models"
	"github.com/desertthunder/tophits/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1/"

	defaultMarket  = "US"
	defaultTimeout = 5 * time.Second
)

// Upstream operation names, used in errors, logs and metrics.
const (
	opToken     = "token"
	opSearch    = "search"
	opTopTracks = "top_tracks"
)

// SpotifyCatalog implements [Catalog] against the Spotify Web API using the client-credentials flow.
type SpotifyCatalog struct {
	credentials shared.SpotifyConfig
	market      string
	timeout     time.Duration
	httpClient  *http.Client
	limiter     *rate.Limiter
	metrics     *metrics.Manager
	logger      *log.Logger
}

// CatalogOpts configures a [SpotifyCatalog]. Zero values fall back to package defaults.
type CatalogOpts struct {
	Credentials shared.SpotifyConfig
	Catalog     shared.CatalogConfig
	HTTPClient  *http.Client
	Metrics     *metrics.Manager
	Logger      *log.Logger
}

// NewSpotifyCatalog creates a catalog client. Missing credentials are reported by the first call, not here.
func NewSpotifyCatalog(opts CatalogOpts) *SpotifyCatalog {
	credentials := opts.Credentials
	if credentials.TokenURL == "" {
		credentials.TokenURL = spotifyTokenURL
	}
	if credentials.APIURL == "" {
		credentials.APIURL = spotifyBaseURL
	}
	if !strings.HasSuffix(credentials.APIURL, "/") {
		credentials.APIURL += "/"
	}

	market := opts.Catalog.Market
	if market == "" {
		market = defaultMarket
	}

	timeout := opts.Catalog.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if opts.Catalog.RateLimit > 0 {
		limit = rate.Limit(opts.Catalog.RateLimit)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.Default()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &SpotifyCatalog{
		credentials: credentials,
		market:      market,
		timeout:     timeout,
		httpClient:  httpClient,
		limiter:     rate.NewLimiter(limit, 1),
		metrics:     m,
		logger:      logger,
	}
}

// Name returns the service name
func (s *SpotifyCatalog) Name() string {
	return "Spotify"
}

// Market returns the market code sent with every request.
func (s *SpotifyCatalog) Market() string {
	return s.market
}

// FetchToken requests a new access token from the token endpoint.
//
// Rejected credentials are reported as [shared.ErrAuthFailed]; transport failures and other statuses as
// [shared.UpstreamError].
func (s *SpotifyCatalog) FetchToken(ctx context.Context) (*oauth2.Token, error) {
	if !s.credentials.HasCredentials() {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret must be set", shared.ErrMissingCredentials)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, shared.NewUpstreamError(opToken, 0, err)
	}

	config := &clientcredentials.Config{
		ClientID:     s.credentials.ClientID,
		ClientSecret: s.credentials.ClientSecret,
		TokenURL:     s.credentials.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	start := time.Now()
	token, err := config.Token(ctx)
	s.metrics.RecordUpstream(opToken, err, time.Since(start))
	if err != nil {
		return nil, s.tokenError(err)
	}

	s.logger.Debug("fetched access token", "expiry", token.Expiry)
	return token, nil
}

func (s *SpotifyCatalog) tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		status := retrieveErr.Response.StatusCode
		switch status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: token endpoint returned %d", shared.ErrAuthFailed, status)
		default:
			return shared.NewUpstreamError(opToken, status, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return shared.NewUpstreamError(opToken, 0, fmt.Errorf("%w: %v", shared.ErrTimeout, err))
	}
	return shared.NewUpstreamError(opToken, 0, err)
}

// SearchTracks returns one page of tracks matching query, e.g. "year:1994 genre:pop".
func (s *SpotifyCatalog) SearchTracks(ctx context.Context, query string, limit, offset int) ([]models.Track, error) {
	var result *spotify.SearchResult
	err := s.call(ctx, opSearch, func(ctx context.Context, client *spotify.Client) error {
		var err error
		result, err = client.Search(ctx, query, spotify.SearchTypeTrack,
			spotify.Limit(limit), spotify.Offset(offset), spotify.Market(s.market))
		return err
	})
	if err != nil {
		return nil, err
	}

	if result == nil || result.Tracks == nil {
		return nil, shared.NewUpstreamError(opSearch, 0, errors.New("malformed payload: missing tracks"))
	}
	return fromFullTracks(result.Tracks.Tracks), nil
}

// SearchArtists returns up to limit artists matching name.
func (s *SpotifyCatalog) SearchArtists(ctx context.Context, name string, limit int) ([]models.Artist, error) {
	var result *spotify.SearchResult
	err := s.call(ctx, opSearch, func(ctx context.Context, client *spotify.Client) error {
		var err error
		result, err = client.Search(ctx, name, spotify.SearchTypeArtist, spotify.Limit(limit))
		return err
	})
	if err != nil {
		return nil, err
	}

	if result == nil || result.Artists == nil {
		return nil, shared.NewUpstreamError(opSearch, 0, errors.New("malformed payload: missing artists"))
	}
	return fromFullArtists(result.Artists.Artists), nil
}

// TopTracksForArtist returns the artist's top tracks in the configured market, most popular first.
func (s *SpotifyCatalog) TopTracksForArtist(ctx context.Context, artistID string) ([]models.Track, error) {
	artistID = strings.TrimSpace(artistID)
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	var tracks []spotify.FullTrack
	err := s.call(ctx, opTopTracks, func(ctx context.Context, client *spotify.Client) error {
		var err error
		tracks, err = client.GetArtistsTopTracks(ctx, spotify.ID(artistID), s.market)
		return err
	})
	if err != nil {
		return nil, err
	}

	return RankTopTracks(fromFullTracks(tracks)), nil
}

// Search runs a combined artist/track search. Only the requested sections are set on the result.
func (s *SpotifyCatalog) Search(ctx context.Context, req SearchRequest) (*models.SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: q (query)", shared.ErrMissingArgument)
	}
	if req.Limit < 1 || req.Limit > MaxSearchLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", shared.ErrInvalidArgument, MaxSearchLimit)
	}

	var searchType spotify.SearchType
	if req.Has(SearchTypeArtist) {
		searchType |= spotify.SearchTypeArtist
	}
	if req.Has(SearchTypeTrack) {
		searchType |= spotify.SearchTypeTrack
	}
	if searchType == 0 {
		return nil, fmt.Errorf("%w: type", shared.ErrMissingArgument)
	}

	var result *spotify.SearchResult
	err := s.call(ctx, opSearch, func(ctx context.Context, client *spotify.Client) error {
		var err error
		result, err = client.Search(ctx, req.Query, searchType, spotify.Limit(req.Limit))
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, shared.NewUpstreamError(opSearch, 0, errors.New("malformed payload: empty result"))
	}

	out := &models.SearchResult{}
	if req.Has(SearchTypeArtist) {
		out.Artists = &models.ArtistPage{Items: []models.Artist{}}
		if result.Artists != nil {
			out.Artists.Items = fromFullArtists(result.Artists.Artists)
		}
	}
	if req.Has(SearchTypeTrack) {
		out.Tracks = &models.TrackPage{Items: []models.Track{}}
		if result.Tracks != nil {
			out.Tracks.Items = fromFullTracks(result.Tracks.Tracks)
		}
	}
	return out, nil
}

// call acquires a fresh token and runs fn with an authorized client under the per-call timeout.
func (s *SpotifyCatalog) call(ctx context.Context, op string, fn func(context.Context, *spotify.Client) error) error {
	token, err := s.FetchToken(ctx)
	if err != nil {
		return err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return shared.NewUpstreamError(op, 0, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	recorder := &statusRecorder{base: s.httpClient.Transport}
	client := spotify.New(&http.Client{
		Transport: &oauth2.Transport{Source: oauth2.StaticTokenSource(token), Base: recorder},
	}, spotify.WithBaseURL(s.credentials.APIURL))

	start := time.Now()
	err = fn(ctx, client)
	s.metrics.RecordUpstream(op, err, time.Since(start))
	if err != nil {
		s.logger.Debug("upstream call failed", "op", op, "status", recorder.status, "err", err)
		return s.upstreamError(op, recorder.status, err)
	}
	return nil
}

func (s *SpotifyCatalog) upstreamError(op string, status int, err error) error {
	if status < http.StatusMultipleChoices {
		status = 0
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status >= http.StatusMultipleChoices {
		status = apiErr.Status
	}

	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return shared.NewUpstreamError(op, status, err)
}

// statusRecorder remembers the status of the last response it carried.
type statusRecorder struct {
	base   http.RoundTripper
	status int
}

func (r *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	base := r.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if resp != nil {
		r.status = resp.StatusCode
	}
	return resp, err
}

// RankTopTracks orders tracks by popularity, highest first, and keeps at most [TopTracksLimit].
func RankTopTracks(tracks []models.Track) []models.Track {
	ranked := make([]models.Track, len(tracks))
	copy(ranked, tracks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Popularity > ranked[j].Popularity
	})

	if len(ranked) > TopTracksLimit {
		ranked = ranked[:TopTracksLimit]
	}
	return ranked
}

func fromFullTracks(tracks []spotify.FullTrack) []models.Track {
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		artists := make([]models.Artist, 0, len(t.Artists))
		for _, a := range t.Artists {
			artists = append(artists, models.Artist{ID: string(a.ID), Name: a.Name})
		}

		out = append(out, models.Track{
			ID:         string(t.ID),
			Name:       t.Name,
			Popularity: int(t.Popularity),
			Album: models.Album{
				ID:          string(t.Album.ID),
				Name:        t.Album.Name,
				ReleaseDate: t.Album.ReleaseDate,
			},
			Artists: artists,
			URI:     string(t.URI),
		})
	}
	return out
}

func fromFullArtists(artists []spotify.FullArtist) []models.Artist {
	out := make([]models.Artist, 0, len(artists))
	for _, a := range artists {
		out = append(out, models.Artist{
			ID:         string(a.ID),
			Name:       a.Name,
			Genres:     a.Genres,
			Popularity: int(a.Popularity),
		})
	}
	return out
}

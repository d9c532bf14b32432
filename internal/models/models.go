// package models defines the data model for the tophits web service
package models

import "strings"

// Artist represents a catalog artist.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres,omitempty"`
	Popularity int      `json:"popularity,omitempty"`
}

// Album represents the album containing a track.
type Album struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"` // YYYY, YYYY-MM or YYYY-MM-DD
}

// Track represents a catalog track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Popularity int      `json:"popularity"` // 0-100
	Album      Album    `json:"album"`
	Artists    []Artist `json:"artists"`
	URI        string   `json:"uri,omitempty"`
}

// ReleaseYear returns the year portion of the album release date.
func (t Track) ReleaseYear() string {
	year, _, _ := strings.Cut(t.Album.ReleaseDate, "-")
	return year
}

// ArtistNames joins the contributing artist names with ", ".
func (t Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// ArtistPage is a single page of artist search results.
type ArtistPage struct {
	Items []Artist `json:"items"`
}

// TrackPage is a single page of track search results.
type TrackPage struct {
	Items []Track `json:"items"`
}

// SearchResult holds one search response. Pages for types that were not requested are nil.
type SearchResult struct {
	Artists *ArtistPage `json:"artists,omitempty"`
	Tracks  *TrackPage  `json:"tracks,omitempty"`
}

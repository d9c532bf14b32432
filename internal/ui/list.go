package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tophits/internal/models"
)

var (
	_ list.Item = artistItem{}
	_ list.Item = trackItem{}
)

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist models.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return i.artist.Name }
func (i artistItem) Description() string {
	if len(i.artist.Genres) > 0 {
		return strings.Join(i.artist.Genres, ", ")
	}
	return i.artist.ID
}

// trackItem wraps [models.Track] with its rank to implement [list.Item].
type trackItem struct {
	rank  int
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return fmt.Sprintf("#%d %s", i.rank, i.track.Name) }
func (i trackItem) Description() string {
	desc := i.track.ArtistNames()
	if i.track.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Name)
	}
	if year := i.track.ReleaseYear(); year != "" {
		desc = fmt.Sprintf("%s (%s)", desc, year)
	}
	return fmt.Sprintf("%s • popularity %d", desc, i.track.Popularity)
}

func artistItems(artists []models.Artist) []list.Item {
	items := make([]list.Item, len(artists))
	for i, a := range artists {
		items[i] = artistItem{artist: a}
	}
	return items
}

func trackItems(tracks []models.Track) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{rank: i + 1, track: t}
	}
	return items
}

package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tophits/internal/models"
	"github.com/desertthunder/tophits/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgArtistLookup MsgKind = iota
	MsgTopTracks
	MsgProgressUpdate
	MsgRandomHits
)

type artistLookupData struct {
	lookup *tasks.ArtistLookup
	err    error
}

type topTracksData struct {
	artist models.Artist
	tracks []models.Track
	err    error
}

type randomHitsData struct {
	hits *tasks.Hits
	err  error
}

// artistLookupMsg is the constructor for [MsgArtistLookup]
func artistLookupMsg(lookup *tasks.ArtistLookup, err error) Msg {
	return Msg{kind: MsgArtistLookup, data: artistLookupData{lookup, err}}
}

// topTracksMsg is the constructor for [MsgTopTracks]
func topTracksMsg(artist models.Artist, tracks []models.Track, err error) Msg {
	return Msg{kind: MsgTopTracks, data: topTracksData{artist, tracks, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// randomHitsMsg is the constructor for [MsgRandomHits]
func randomHitsMsg(hits *tasks.Hits, err error) Msg {
	return Msg{kind: MsgRandomHits, data: randomHitsData{hits, err}}
}

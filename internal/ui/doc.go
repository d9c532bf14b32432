// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI mirrors the browser frontend:
//  1. [SearchView] : type an artist name, or press ctrl+r for random hits
//  2. [ArtistListView] : pick an artist when the name had no exact match
//  3. [TracksView] : an artist's top tracks, or the sampled random hits
//  4. [LoadingView] : spinner plus engine progress while a request runs
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the tasks engine, providing non-blocking status reporting.
//
// In the search view q is typed into the input, so only ctrl+c quits there; every other view also quits on q.
package ui

package tasks

import (
	"fmt"

	"github.com/desertthunder/tophits/internal/sampler"
)

// ProgressUpdate represents a progress event during an engine operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number
	Total   int    // Total steps in this operation
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PickEra Phase = iota
	SearchCandidates
	SampleTracks
	SearchArtists
	FetchTopTracks
)

func (p Phase) String() string {
	switch p {
	case PickEra:
		return "pick_era"
	case SearchCandidates:
		return "search_candidates"
	case SampleTracks:
		return "sample_tracks"
	case SearchArtists:
		return "search_artists"
	case FetchTopTracks:
		return "fetch_top_tracks"
	default:
		return ""
	}
}

// send delivers an update without blocking; it is dropped when the reader is not keeping up.
func send(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func pickEraUpdate(era sampler.Era) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PickEra,
		Step:    1,
		Total:   3,
		Message: fmt.Sprintf("Picked %d (offset %d)", era.Year, era.Offset),
		Data:    era,
	}
}

func searchCandidatesUpdate(query string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchCandidates,
		Step:    2,
		Total:   3,
		Message: fmt.Sprintf("Searching %q...", query),
	}
}

func sampleTracksUpdate(candidates int, result sampler.Result) ProgressUpdate {
	msg := fmt.Sprintf("Sampled %d of %d candidates at popularity >= %d", len(result.Tracks), candidates, result.Threshold)
	if result.Fallback {
		msg = fmt.Sprintf("No candidate reached the floor; sampled %d of %d unfiltered", len(result.Tracks), candidates)
	}
	return ProgressUpdate{
		Phase:   SampleTracks,
		Step:    3,
		Total:   3,
		Message: msg,
		Data:    result,
	}
}

func searchArtistsUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchArtists,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Searching artists matching %q...", name),
	}
}

func fetchTopTracksUpdate(step, total int, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTopTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching top tracks for %s...", artist),
	}
}

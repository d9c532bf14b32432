package sampler

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MinYear is the earliest year an era can start at.
	MinYear = 1980
	// MaxOffset is the largest search offset the catalog accepts.
	MaxOffset = 1000
	// recentYears keeps eras at least this far in the past.
	recentYears = 10
)

// DefaultGenres are the genre filters added to every era query.
var DefaultGenres = []string{"pop", "rock", "hip-hop", "r-b", "dance"}

// Era selects one page of catalog search results.
type Era struct {
	Year   int `json:"year"`
	Offset int `json:"offset"`
}

// EraBounds returns the inclusive year range eras are drawn from.
//
// The upper bound never drops below minYear.
func EraBounds(now time.Time, minYear int) (int, int) {
	if minYear <= 0 {
		minYear = MinYear
	}
	end := now.Year() - recentYears
	if end < minYear {
		end = minYear
	}
	return minYear, end
}

// PickEra draws a year uniformly from [EraBounds] and an offset uniformly from [0, MaxOffset].
func PickEra(now time.Time, r Rand) Era {
	return PickEraFrom(now, MinYear, r)
}

// PickEraFrom is [PickEra] with a configurable first year.
func PickEraFrom(now time.Time, minYear int, r Rand) Era {
	if r == nil {
		r = globalRand{}
	}
	start, end := EraBounds(now, minYear)
	return Era{
		Year:   start + r.IntN(end-start+1),
		Offset: r.IntN(MaxOffset + 1),
	}
}

// Query builds the catalog search query for the era, e.g. "year:1994 genre:pop genre:rock".
func (e Era) Query(genres []string) string {
	if len(genres) == 0 {
		genres = DefaultGenres
	}

	parts := make([]string, 0, len(genres)+1)
	parts = append(parts, fmt.Sprintf("year:%d", e.Year))
	for _, g := range genres {
		if g = strings.TrimSpace(g); g != "" {
			parts = append(parts, "genre:"+g)
		}
	}
	return strings.Join(parts, " ")
}

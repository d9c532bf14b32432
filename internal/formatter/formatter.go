// package formatter renders tracks and artists as plain text, Markdown, CSV and HTML fragments.
//
// Every function is pure: no network access, no randomness. An empty list renders the "no results" state.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/desertthunder/tophits/internal/models"
)

// NoResults is shown in place of an empty list.
const NoResults = "No results found."

var funcs = template.FuncMap{
	"rank": func(i int) int { return i + 1 },
}

var tracksTemplate = template.Must(template.New("tracks").Funcs(funcs).Parse(`<section class="results">
{{- if .Title}}
  <h2>{{.Title}}</h2>
{{- end}}
{{- if .Notice}}
  <p class="notice">{{.Notice}}</p>
{{- end}}
{{- if .Tracks}}
  <ol class="tracks">
{{- range $i, $t := .Tracks}}
    <li class="track">
      <span class="rank">{{rank $i}}</span>
      <span class="name">{{$t.Name}}</span>
      <span class="artists">{{$t.ArtistNames}}</span>
      <span class="album">{{$t.Album.Name}}</span>
      <span class="year">{{$t.ReleaseYear}}</span>
      <span class="popularity">{{$t.Popularity}}</span>
    </li>
{{- end}}
  </ol>
{{- else}}
  <p class="empty">{{.Empty}}</p>
{{- end}}
</section>
`))

var artistsTemplate = template.Must(template.New("artists").Parse(`<section class="results">
{{- if .Title}}
  <h2>{{.Title}}</h2>
{{- end}}
{{- if .Artists}}
  <ul class="artists">
{{- range .Artists}}
    <li><button type="button" class="artist" data-artist-id="{{.ID}}">{{.Name}}</button></li>
{{- end}}
  </ul>
{{- else}}
  <p class="empty">{{.Empty}}</p>
{{- end}}
</section>
`))

// TracksToHTML renders an escaped HTML fragment with a numbered track list.
//
// notice is shown above the list when set, e.g. to flag an unfiltered fallback.
func TracksToHTML(title, notice string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Title, Notice, Empty string
		Tracks               []models.Track
	}{title, notice, NoResults, tracks}

	if err := tracksTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render tracks: %w", err)
	}
	return buf.Bytes(), nil
}

// ArtistsToHTML renders an escaped HTML fragment listing artists as buttons carrying their ids.
func ArtistsToHTML(title string, artists []models.Artist) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Title, Empty string
		Artists      []models.Artist
	}{title, NoResults, artists}

	if err := artistsTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render artists: %w", err)
	}
	return buf.Bytes(), nil
}

// TracksToCSV converts tracks to CSV with columns: Rank, Title, Artists, Album, Year, Popularity, ID
func TracksToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "Title", "Artists", "Album", "Year", "Popularity", "ID"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.Name,
			track.ArtistNames(),
			track.Album.Name,
			track.ReleaseYear(),
			strconv.Itoa(track.Popularity),
			track.ID,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// TracksToMarkdown converts tracks to a Markdown section with a numbered list
func TracksToMarkdown(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	if title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", title)
	}

	if len(tracks) == 0 {
		fmt.Fprintf(&buf, "_%s_\n", NoResults)
		return buf.Bytes(), nil
	}

	for i, track := range tracks {
		fmt.Fprintf(&buf, "%d. **%s** - %s%s (popularity %d)\n",
			i+1, track.Name, track.ArtistNames(), albumSuffix(track), track.Popularity)
	}

	return buf.Bytes(), nil
}

// TracksToText converts tracks to plain text
func TracksToText(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	if title != "" {
		fmt.Fprintf(&buf, "%s\n\n", title)
	}

	if len(tracks) == 0 {
		fmt.Fprintf(&buf, "%s\n", NoResults)
		return buf.Bytes(), nil
	}

	for i, track := range tracks {
		fmt.Fprintf(&buf, "%d. %s - %s%s [%d]\n", i+1, track.ArtistNames(), track.Name, albumSuffix(track), track.Popularity)
	}

	return buf.Bytes(), nil
}

// ArtistsToText converts artists to plain text, one per line with id and genres.
func ArtistsToText(artists []models.Artist) ([]byte, error) {
	var buf bytes.Buffer

	if len(artists) == 0 {
		fmt.Fprintf(&buf, "%s\n", NoResults)
		return buf.Bytes(), nil
	}

	for i, artist := range artists {
		fmt.Fprintf(&buf, "%d. %s (%s)", i+1, artist.Name, artist.ID)
		if len(artist.Genres) > 0 {
			fmt.Fprintf(&buf, " - %s", strings.Join(artist.Genres, ", "))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// albumSuffix returns " (Album, 1994)", " (Album)" or "" depending on what the track carries.
func albumSuffix(track models.Track) string {
	year := track.ReleaseYear()
	switch {
	case track.Album.Name != "" && year != "":
		return fmt.Sprintf(" (%s, %s)", track.Album.Name, year)
	case track.Album.Name != "":
		return fmt.Sprintf(" (%s)", track.Album.Name)
	case year != "":
		return fmt.Sprintf(" (%s)", year)
	default:
		return ""
	}
}

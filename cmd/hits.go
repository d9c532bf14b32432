package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/tophits/internal/formatter"
	"github.com/desertthunder/tophits/internal/server"
	"github.com/desertthunder/tophits/internal/shared"
	"github.com/desertthunder/tophits/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Output formats for the random command.
const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatCSV      = "csv"
	formatJSON     = "json"
)

const noticeFallback = "Nothing in this era reached the popularity floor, so these picks are unfiltered."

// Random samples 5 popular tracks from a random era and prints them in the requested format.
func (r *Runner) Random(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(strings.TrimSpace(cmd.String("format")))
	switch format {
	case formatText, formatMarkdown, formatCSV, formatJSON:
	default:
		return fmt.Errorf("%w: format %q (must be text, markdown, csv or json)", shared.ErrInvalidArgument, format)
	}

	if err := r.prepare(cmd); err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if format == formatText {
				r.writePlain("%s\n", update.Message)
			} else {
				r.logger.Debug(update.Message, "phase", update.Phase)
			}
		}
	}()

	hits, err := r.engine.RandomHits(ctx, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.logger.Info("random hits", "year", hits.Era.Year, "offset", hits.Era.Offset,
		"candidates", hits.Candidates, "fallback", hits.Result.Fallback)

	title := fmt.Sprintf("5 Random Popular Songs: %d", hits.Era.Year)

	switch format {
	case formatJSON:
		return r.writeJSON(server.RandomHitsResponse{
			Year:       hits.Era.Year,
			Offset:     hits.Era.Offset,
			Threshold:  hits.Result.Threshold,
			Fallback:   hits.Result.Fallback,
			Candidates: hits.Candidates,
			Tracks:     hits.Result.Tracks,
		}, true)
	case formatCSV:
		out, err := formatter.TracksToCSV(hits.Result.Tracks)
		if err != nil {
			return err
		}
		return r.writeBytes(out)
	case formatMarkdown:
		out, err := formatter.TracksToMarkdown(title, hits.Result.Tracks)
		if err != nil {
			return err
		}
		if hits.Result.Fallback {
			out = append(out, fmt.Sprintf("\n> %s\n", noticeFallback)...)
		}
		return r.writeBytes(out)
	default:
		r.writePlain("\n")
		r.writePlainHeader(title)
		if hits.Result.Fallback {
			r.writePlain("%s\n\n", noticeFallback)
		}
		out, err := formatter.TracksToText("", hits.Result.Tracks)
		if err != nil {
			return err
		}
		return r.writeBytes(out)
	}
}

// Search looks up an artist by name. An exact match prints its top tracks, otherwise the candidates.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("artist"))
	if name == "" {
		return fmt.Errorf("%w: artist name", shared.ErrMissingArgument)
	}

	if err := r.prepare(cmd); err != nil {
		return err
	}

	lookup, err := r.engine.FindArtist(ctx, name, nil)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(lookup, true)
	}

	if lookup.Match != nil {
		r.writePlainHeader(fmt.Sprintf("Top 5 Tracks: %s", lookup.Match.Name))
		out, err := formatter.TracksToText("", lookup.TopTracks)
		if err != nil {
			return err
		}
		return r.writeBytes(out)
	}

	r.writePlainHeader("Search Results:")
	out, err := formatter.ArtistsToText(lookup.Artists)
	if err != nil {
		return err
	}
	if err := r.writeBytes(out); err != nil {
		return err
	}
	if len(lookup.Artists) > 0 {
		return r.writePlainln("No exact match for %q. Run 'tophits top <artist-id>' for one of the artists above.", name)
	}
	return nil
}

// Top prints the top 5 tracks of an artist.
func (r *Runner) Top(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("artist-id"))
	if id == "" {
		return fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}

	if err := r.prepare(cmd); err != nil {
		return err
	}

	tracks, err := r.engine.TopTracks(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	r.writePlainHeader("Top 5 Tracks:")
	out, err := formatter.TracksToText("", tracks)
	if err != nil {
		return err
	}
	return r.writeBytes(out)
}

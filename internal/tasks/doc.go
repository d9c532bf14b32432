// Package tasks orchestrates catalog operations into the results served by the CLI, TUI and web server.
//
// # Core Operations
//
// The [Engine] interface defines three operations:
//
//  1. [Engine.RandomHits] : popular tracks from a random era
//     - Picks an era (release year and page offset)
//     - Searches one page of 50 tracks for that year across the configured genres
//     - Samples up to five popular tracks with threshold relaxation
//
//  2. [Engine.FindArtist] : artist lookup by name
//     - Searches up to 10 artists
//     - On a case-insensitive exact name match, fetches that artist's top tracks
//     - Otherwise returns the candidates so the caller can pick one
//
//  3. [Engine.TopTracks] : an artist's top five tracks, most popular first
//
// # Progress Reporting
//
// Operations accept an optional progress channel (nil is fine). Updates are sent with select/default
// so a slow reader never blocks an operation.
//
// # Implementation
//
// [HitsEngine] implements [Engine] with dependencies on:
//   - [services.Catalog] : the upstream music catalog
//   - [sampler.Sampler] : popularity filtering and shuffling
//   - [metrics.Manager] : sampler metrics
package tasks

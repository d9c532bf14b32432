// Package sampler picks a handful of popular tracks from one page of catalog search results.
//
// # Threshold Relaxation
//
// [Sampler.Sample] filters the candidate page with a popularity bar that starts at [Policy.Start] and drops by
// [Policy.Step] until at least [Policy.Target] tracks qualify or the bar would fall below [Policy.Floor].
// The qualifying tracks are shuffled (Fisher-Yates) and the first Target are returned.
//
// When nothing clears even the floor, the whole page is used instead and [Result.Fallback] is set, so callers can
// tell a relaxed-but-filtered result from an unfiltered one.
//
// # Era Selection
//
// [PickEra] chooses which page to fetch: a year between [MinYear] and ten years before now, and a page offset up to
// [MaxOffset]. It is kept apart from sampling so the sampler can be exercised with a fixed candidate list.
package sampler

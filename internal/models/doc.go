// Package models defines the catalog entities shared by the sampler, the catalog client, the router and the renderers.
//
// All types are request-scoped data transfer objects:
//   - [Track] : A catalog track with its popularity score, album and contributing artists
//   - [Artist] : A catalog artist (id + name, with genres and popularity when the catalog supplies them)
//   - [Album] : The album containing a track, with its raw release date
//   - [SearchResult] : One page of artist and/or track search results, shaped like the upstream payload
//
// Nothing here is persisted; a value lives for the duration of one request/response cycle.
package models

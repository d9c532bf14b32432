// Package services defines the [Catalog] interface for the upstream music catalog and implements it for Spotify.
//
// # Catalog Interface
//
// The rest of the application only sees [Catalog]: token acquisition, track and artist search, and an artist's
// top tracks, all returning [models] types.
//
// # Spotify Implementation
//
// [SpotifyCatalog] uses the OAuth2 client-credentials flow (golang.org/x/oauth2/clientcredentials) and the
// zmb3/spotify/v2 Web API client. Every catalog call first acquires its own token, then issues the request;
// nothing is cached between calls. Outbound calls share a client-side rate limiter and each runs under the
// configured per-call timeout. Failed calls are not retried.
//
// # Error Handling
//
// Services use the error taxonomy from the shared package:
//   - [shared.ErrMissingCredentials] : client id or secret not configured, returned before any network call
//   - [shared.ErrAuthFailed] : the token endpoint rejected the credentials
//   - [shared.UpstreamError] : non-success status, timeout or malformed payload (matches [shared.ErrAPIRequest])
//   - [shared.ErrInvalidArgument] / [shared.ErrMissingArgument] : bad search parameters
package services

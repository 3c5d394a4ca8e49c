// Package auth verifies bearer tokens for the status API.
//
// Tokens are JWTs signed with HS256 (shared secret) or RS256 (PEM public
// key) and must carry a subject and at least one known scope. The API is
// read-only, so the scopes are read and telemetry.
package auth

// Package api serves a read-only HTTP view of a clip store.
//
// # Routes
//
// GET /health reports liveness, the store backend and uptime.
//
// GET /clips/count counts clips matching the query filter.
//
// GET /clips lists clip metadata (never the input stream) matching the query
// filter, capped by limit.
//
// # Filters
//
// Query parameters character, game_id, name, code and partition become
// equality conditions; character and game_id accept comma-separated sets.
// Each repeated where parameter is parsed as "field<op>value", for example
// where=clip_id>=100.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Characters are exposed by canonical name.
// Every response carries an X-Request-ID header that also appears in the
// request log line.
package api

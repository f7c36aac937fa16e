// Package queue persists publish requests in SQLite and exposes helpers for
// draining them one axis at a time.
//
// Each axis (regatta, season, school, conference, sailor, file) owns its own
// request table. Requests are never deduplicated on insert; the publish engine
// coalesces them when a batch is processed. FetchPending stamps an attempt on
// every row it returns, and only MarkComplete makes a row invisible to later
// fetches. The retry ceiling compares against a separate failure count that
// MarkFailed raises when a request's own entity fails to publish, so backend
// outages never strand work. The store also keeps a ledger of published pages so the engine can
// tell which outputs exist and retire the ones that disappear.
//
// The database is treated as the hand-off point between the scoring
// application (which enqueues) and the daemons (which drain). Schema changes
// bump the version in schema.go.
package queue

// Package sweeper reclaims conversations past their retention window.
//
// The sweeper is started once at process init and runs independently of
// request handling: one immediate pass at startup, then a pass every
// interval (30 minutes by default). Each pass asks the store for every
// conversation whose expiry has elapsed and deletes it together with its
// messages as one cleanup unit, so the store never holds orphaned messages
// or half-deleted conversations.
//
// A send racing a sweep of the same conversation either completes and gets
// swept, or fails with not-found; both are acceptable. A failed pass is
// logged and retried implicitly by the next tick's query.
package sweeper

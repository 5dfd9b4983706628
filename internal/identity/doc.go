// Package identity resolves user IDs to profile summaries for conversation
// enrichment.
//
// Identity is an external collaborator: user existence and validity are
// assumed upstream, and this package performs no checks of its own. The
// Directory interface has two implementations — HTTPDirectory for a real
// identity service, and StaticDirectory as a fallback that echoes bare IDs
// so listings still render when no service is configured. Callers degrade
// gracefully when lookups fail; a missing profile never fails an operation.
package identity

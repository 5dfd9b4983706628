// ABOUTME: External identity collaborator boundary for profile enrichment
// ABOUTME: Defines UserSummary and the Directory interface consumed by the messaging service

package identity

import "context"

// UserSummary is the profile projection used to enrich conversation
// listings. Identity existence is assumed valid upstream; this package
// performs no validity checks.
type UserSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profileImageUrl"`
	Role            string `json:"role"`
}

// Directory resolves user IDs to profile summaries. Implementations are
// external collaborators; lookups may fail and callers degrade gracefully.
type Directory interface {
	GetUserSummary(ctx context.Context, userID string) (*UserSummary, error)
}

// StaticDirectory is the fallback used when no identity service is
// configured. It echoes the ID back as a bare summary so listings still
// render.
type StaticDirectory struct{}

// GetUserSummary returns a summary containing only the user ID.
func (StaticDirectory) GetUserSummary(_ context.Context, userID string) (*UserSummary, error) {
	return &UserSummary{ID: userID}, nil
}

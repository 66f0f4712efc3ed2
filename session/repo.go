package session

import "context"

// Persisted key names. Every key is suffixed with the active language code
// before it reaches the repo, so concurrent language contexts under the same
// origin never collide.
const (
	KeyIsLogged  = "isLogged"
	KeyIsExisted = "isExisted"
	KeyUserID    = "userId"
	KeyEmail     = "email"
	KeyUsername  = "username"
	KeyFirstName = "userFirstName"
	KeyLastName  = "userLastName"
)

// Repo is the persisted key-value store behind the credential store. SetAll
// must be atomic: a reader never observes a partially applied batch.
type Repo interface {
	SetAll(ctx context.Context, values map[string]string) error
	Get(ctx context.Context, key string) (string, bool, error)
	// DeleteSuffix removes every key ending in suffix and reports how many
	// were removed. Keys with a different suffix are untouched.
	DeleteSuffix(ctx context.Context, suffix string) (int, error)
	Keys(ctx context.Context) ([]string, error)
}

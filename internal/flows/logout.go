package flows

import "context"

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Store CredentialDeleter
}

// RunLogout deletes the credential unconditionally.
func RunLogout(ctx context.Context, userID string, deps LogoutDeps) error {
	return deps.Store.DeleteByUserID(ctx, userID)
}

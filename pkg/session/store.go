// Package session maps platform user IDs to Engine session IDs so that a
// stream of independent webhook events becomes one conversation per user.
package session

import "context"

// Store is the two-operation session contract. Get of an unknown user
// returns "" with a nil error; the empty session id tells the Engine to
// start a new conversation. Set overwrites unconditionally, last write wins.
// Errors are reserved for storage failures.
type Store interface {
	Get(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID, sessionID string) error
}

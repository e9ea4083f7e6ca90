package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: record does not exist at the requested path
//   - ErrAlreadyUsed: a unique attribute (account email) is taken
//   - ErrInvalidState: a write would break a store constraint, such as a
//     partner holding two deliveries In Progress
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
)

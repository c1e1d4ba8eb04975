package randomness

import (
	"errors"
)

var (
	// ErrUnsupportedFeature is returned when the beacon is created while the feature flag is off.
	ErrUnsupportedFeature = errors.New("randomness: random beacon feature is not enabled")
	// ErrAlreadyCreated is returned when the beacon object exists already.
	ErrAlreadyCreated = errors.New("randomness: beacon object already created")
	// ErrNotInitialized is returned when an update arrives before the beacon object exists.
	ErrNotInitialized = errors.New("randomness: beacon object does not exist")
	// ErrStaleRound is returned when the update doesn't advance the randomness round.
	ErrStaleRound = errors.New("randomness: randomness round is not newer than the current one")
	// ErrEpochMismatch is returned when the update is for an epoch other than the active one.
	ErrEpochMismatch = errors.New("randomness: update epoch is not the active epoch")
	// ErrMalformedUpdate is returned for updates with empty random bytes or a wrong beacon object.
	ErrMalformedUpdate = errors.New("randomness: malformed update")
)

func reason(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFeature):
		return "unsupported"
	case errors.Is(err, ErrAlreadyCreated):
		return "already_created"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrStaleRound):
		return "stale_round"
	case errors.Is(err, ErrEpochMismatch):
		return "epoch_mismatch"
	case errors.Is(err, ErrMalformedUpdate):
		return "malformed"
	default:
		return "internal"
	}
}

// IsRejection is true for errors that reject a transition without touching the store.
func IsRejection(err error) bool {
	return err != nil && reason(err) != "internal"
}

package ledger

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/go-randomness/common/types"
)

var (
	// ErrNoGenesis is returned by every mutating call before genesis was applied.
	ErrNoGenesis = errors.New("ledger: genesis is not applied")
	// ErrGenesisApplied is returned when genesis is applied twice.
	ErrGenesisApplied = errors.New("ledger: genesis is already applied")
	// ErrRoundRegression is returned for an update whose consensus round is below the committed one.
	ErrRoundRegression = errors.New("ledger: round is below the last committed round")
)

// ValidationError is returned when a submitted transaction is rejected. Nothing was written.
type ValidationError struct {
	Digest types.Hash32
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transaction %s rejected: %v", e.Digest.ShortString(), e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

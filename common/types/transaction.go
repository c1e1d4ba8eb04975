package types

import (
	"fmt"
	"strconv"
)

// TransactionKind tags the payload of a transaction record.
type TransactionKind uint8

const (
	TransactionGenesis TransactionKind = iota + 1
	TransactionChangeEpoch
	TransactionRandomnessStateCreate
	TransactionRandomnessStateUpdate
)

var kindNames = map[TransactionKind]string{
	TransactionGenesis:               "Genesis",
	TransactionChangeEpoch:           "ChangeEpoch",
	TransactionRandomnessStateCreate: "RandomnessStateCreate",
	TransactionRandomnessStateUpdate: "RandomnessStateUpdate",
}

// String implements fmt.Stringer.
func (k TransactionKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

// ParseTransactionKind is the inverse of TransactionKind.String.
func ParseTransactionKind(s string) (TransactionKind, error) {
	for kind, name := range kindNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k TransactionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *TransactionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// TransactionRecord is an entry of the transaction history. Records are immutable once committed
// except for the checkpoint they are sealed into.
type TransactionRecord struct {
	// Sequence is the commit position of the record, starting at 1.
	Sequence uint64
	Digest   Hash32
	Kind     TransactionKind
	Epoch    EpochID
	Round    RoundID
	// Checkpoint is nil until the record is sealed.
	Checkpoint *CheckpointSequence
	// Version is the Lamport version the transaction wrote objects at.
	Version ObjectVersion
	// Payload is the scale encoding of the kind specific transaction.
	Payload []byte
}

// TransactionDigest derives the digest of a transaction from its kind and encoded payload.
func TransactionDigest(kind TransactionKind, payload []byte) Hash32 {
	return CalcHash32([]byte{byte(kind)}, payload)
}

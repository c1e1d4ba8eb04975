package types

import (
	"strconv"
)

// StartVersion is the version assigned to objects written by the genesis transaction.
const StartVersion = ObjectVersion(1)

// ObjectVersion is the Lamport version of an object. A transaction writes every object at
// max(input versions) + 1.
type ObjectVersion uint64

// Uint64 returns the version as uint64.
func (v ObjectVersion) Uint64() uint64 { return uint64(v) }

// String implements fmt.Stringer.
func (v ObjectVersion) String() string { return strconv.FormatUint(uint64(v), 10) }

// Next returns the following version.
func (v ObjectVersion) Next() ObjectVersion { return v + 1 }

// OwnerKind says how an object can be accessed by transactions.
type OwnerKind uint8

const (
	// OwnerImmutable objects are written once.
	OwnerImmutable OwnerKind = iota + 1
	// OwnerShared objects may be mutated by any transaction ordered by consensus.
	OwnerShared
	// OwnerSystem objects are mutated only by ledger generated transactions.
	OwnerSystem
)

// String implements fmt.Stringer.
func (k OwnerKind) String() string {
	switch k {
	case OwnerImmutable:
		return "immutable"
	case OwnerShared:
		return "shared"
	case OwnerSystem:
		return "system"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Object is one version of an object in the object store.
type Object struct {
	Address Address
	Version ObjectVersion
	Owner   OwnerKind
	// InitialSharedVersion is set only for shared objects. It never changes after creation.
	InitialSharedVersion ObjectVersion
	Type                 string
	// Contents is the scale encoding of the typed value.
	Contents []byte
	// PreviousTransaction is the digest of the transaction that wrote this version.
	PreviousTransaction Hash32
}

// IsShared is true for shared objects.
func (o *Object) IsShared() bool {
	return o.Owner == OwnerShared
}

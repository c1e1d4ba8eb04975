package types

import (
	"encoding/binary"
)

// Checkpoint seals a contiguous range of transaction records.
type Checkpoint struct {
	Sequence CheckpointSequence
	Epoch    EpochID
	Digest   Hash32
	// FirstTx and LastTx are inclusive record sequences. Both are zero for an empty checkpoint.
	FirstTx     uint64
	LastTx      uint64
	TimestampMs uint64
}

// CheckpointDigest chains the previous checkpoint digest with the digests of the sealed records.
func CheckpointDigest(seq CheckpointSequence, prev Hash32, txs []Hash32) Hash32 {
	chunks := make([][]byte, 0, len(txs)+2)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seq))
	chunks = append(chunks, buf[:], prev[:])
	for i := range txs {
		chunks = append(chunks, txs[i][:])
	}
	return CalcHash32(chunks...)
}

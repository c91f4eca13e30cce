package aesnirng

import (
	"crypto/cipher"
	"encoding/binary"
)

const (
	// BlockSize is the AES block size in bytes.
	BlockSize = 16

	// batchBlocks is the pipelining width: the number of independent counter
	// blocks encrypted under one key schedule per batch. One batch is also
	// one erasure interval, so no key ever produces more than batchBlocks
	// blocks of keystream.
	batchBlocks = 8
	batchBytes  = batchBlocks * BlockSize

	keyBytes = 16

	// outPerBatch is what each batch yields to the caller after the leading
	// block has been withheld for rekeying.
	outPerBatch = batchBytes - keyBytes
)

// counter128 is the 128-bit block counter. Arithmetic is modulo 2^128 with
// the low word carrying into the high word.
type counter128 struct {
	lo, hi uint64
}

func (c counter128) add(n uint64) counter128 {
	lo := c.lo + n
	hi := c.hi
	if lo < c.lo {
		hi++
	}
	return counter128{lo: lo, hi: hi}
}

// wrapsWithin reports whether the counters c .. c+n-1 cross 2^128. Within a
// single erasure interval that is a generator-lifetime violation, not a
// recoverable condition.
func (c counter128) wrapsWithin(n uint64) bool {
	return c.hi == ^uint64(0) && c.lo+n-1 < c.lo
}

func (c counter128) putBlock(dst []byte) {
	binary.LittleEndian.PutUint64(dst[0:8], c.lo)
	binary.LittleEndian.PutUint64(dst[8:16], c.hi)
}

// encryptBlocks fills dst with consecutive keystream blocks, encrypting the
// counters ctr, ctr+1, ... under b. len(dst) must be a multiple of
// BlockSize. It returns the advanced counter for the caller to store. Pure:
// fixed (key, counter, length) always produces identical output.
func encryptBlocks(b cipher.Block, ctr counter128, dst []byte) counter128 {
	var in [BlockSize]byte
	for off := 0; off < len(dst); off += BlockSize {
		ctr.putBlock(in[:])
		b.Encrypt(dst[off:off+BlockSize], in[:])
		ctr = ctr.add(1)
	}
	return ctr
}

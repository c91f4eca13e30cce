package aesnirng

import (
	"crypto/aes"
	"crypto/cipher"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/awnumar/memguard/core"

	"github.com/vks/aesrng/seed"
)

// SeedSize is the number of seed bytes a Generator consumes: 16 bytes of
// initial key followed by 16 bytes of initial counter.
const SeedSize = 32

var (
	// ErrUnsupportedHardware is returned by the constructors when the CPU
	// lacks the AES instruction extension. The check is not retried; callers
	// wanting a software fallback must provide their own.
	ErrUnsupportedHardware = errors.New("aesnirng: CPU lacks AES instructions")

	// ErrSeedingFailed is returned when the entropy source cannot supply the
	// initial seed material.
	ErrSeedingFailed = errors.New("aesnirng: entropy source unavailable")
)

// Generator produces pseudorandom bytes from AES-128 in counter mode with
// fast key erasure. It owns exactly one (key, counter) state; the state is
// replaced from fresh keystream every erasure interval and the retired key
// bytes are wiped with a non-elidable overwrite.
//
// The zero Generator is not usable; obtain one from New, NewFromSource or
// FromSeed.
type Generator struct {
	block cipher.Block
	key   [keyBytes]byte
	ctr   counter128

	// batch is the fixed per-interval scratch buffer. It is wiped at the end
	// of every Fill so discarded tail bytes never survive into a later call.
	batch [batchBytes]byte
}

// New creates a Generator seeded once from the operating system entropy
// source. It fails with ErrUnsupportedHardware if the CPU lacks the AES
// extension and with ErrSeedingFailed if the entropy draw fails; no
// partially constructed generator is ever returned.
func New() (*Generator, error) {
	return newGenerator(drawOS, aesSupported)
}

// NewFromSource is New with the seed drawn from an external entropy device
// instead of the operating system, e.g. seed.TrueRNG().
func NewFromSource(src seed.Source) (*Generator, error) {
	return newGenerator(func() ([SeedSize]byte, error) {
		s, err := src.Bytes()
		if err != nil {
			return s, fmt.Errorf("%s: %w", src.Name(), err)
		}
		return s, nil
	}, aesSupported)
}

func newGenerator(draw func() ([SeedSize]byte, error), supported func() bool) (*Generator, error) {
	if !supported() {
		return nil, ErrUnsupportedHardware
	}
	s, err := draw()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedingFailed, err)
	}
	g := FromSeed(s)
	core.Wipe(s[:])
	return g, nil
}

func drawOS() (s [SeedSize]byte, err error) {
	_, err = io.ReadFull(crand.Reader, s[:])
	return s, err
}

// FromSeed creates a Generator from caller-supplied seed material: key in
// seed[0:16], initial counter in seed[16:32] (little-endian words, low half
// first). Output is a pure function of the seed, which makes this the
// constructor for reproducible tests and forfeits every unpredictability
// guarantee. Not for production use.
func FromSeed(s [SeedSize]byte) *Generator {
	g := &Generator{}
	g.rekey(s[:keyBytes])
	g.ctr = counter128{
		lo: binary.LittleEndian.Uint64(s[16:24]),
		hi: binary.LittleEndian.Uint64(s[24:32]),
	}
	return g
}

// rekey replaces the (key, counter) state. The old key bytes are overwritten
// before the new schedule is installed so they are unreachable the moment
// this returns. The counter restarts at zero under the new key.
func (g *Generator) rekey(key []byte) {
	if len(key) < keyBytes {
		panic("aesnirng: rekey material shorter than one key")
	}
	b, err := aes.NewCipher(key[:keyBytes])
	if err != nil {
		panic("aesnirng: " + err.Error())
	}
	core.Wipe(g.key[:])
	copy(g.key[:], key[:keyBytes])
	g.block = b
	g.ctr = counter128{}
}

// Fill populates buf with pseudorandom bytes. Any length is allowed; a zero
// length performs no cipher calls. The routine streams through the fixed
// batch buffer, so memory use is constant regardless of len(buf).
//
// Each batch of batchBlocks keystream blocks is one erasure interval: the
// leading block is withheld, installed as the next key and never returned;
// the remainder is copied out, truncated at the final partial block. An
// invariant violation (counter wrap inside an interval) panics rather than
// returning, since continuing would silently void the forward-secrecy
// guarantee. On every non-panicking path buf comes back fully populated.
func (g *Generator) Fill(buf []byte) {
	if g == nil || g.block == nil {
		panic("aesnirng: Fill on an unseeded Generator")
	}
	for len(buf) > 0 {
		if g.ctr.wrapsWithin(batchBlocks) {
			panic("aesnirng: counter wrapped within one erasure interval")
		}
		encryptBlocks(g.block, g.ctr, g.batch[:])
		// Fast key erasure: the state is replaced before any byte of this
		// batch becomes visible to the caller.
		g.rekey(g.batch[:keyBytes])
		core.Wipe(g.batch[:keyBytes])
		n := copy(buf, g.batch[keyBytes:])
		buf = buf[n:]
	}
	core.Wipe(g.batch[:])
}

// Read implements io.Reader. It always fills p completely and never fails,
// in the manner of math/rand/v2's ChaCha8.
func (g *Generator) Read(p []byte) (int, error) {
	g.Fill(p)
	return len(p), nil
}

// Close wipes the generator's key material and scratch buffer. The expanded
// schedule held by the underlying cipher cannot be addressed directly; it is
// released for collection. A closed Generator must not be used again.
func (g *Generator) Close() {
	if g == nil {
		return
	}
	core.Wipe(g.key[:])
	core.Wipe(g.batch[:])
	g.block = nil
	g.ctr = counter128{}
}

// Package seed acquires one-shot 256-bit seed material for the generator
// from an entropy source: the operating system by default, or a hardware
// TRNG device (TrueRNG over serial, BitBabbler over USB).
package seed

import (
	crand "crypto/rand"
	"fmt"
	"io"
)

// Size is the number of seed bytes every source delivers: 16 bytes of key
// material plus 16 bytes of counter material.
const Size = 32

// Source supplies seed material. A source is consulted exactly once per
// generator construction; it may block briefly on the underlying device.
type Source interface {
	// Name identifies the source in errors and file names ("os", "trng", ...).
	Name() string
	// Bytes draws Size bytes of fresh entropy.
	Bytes() ([Size]byte, error)
}

// OS returns the default source, backed by crypto/rand.
func OS() Source { return osSource{} }

type osSource struct{}

func (osSource) Name() string { return "os" }

func (osSource) Bytes() (s [Size]byte, err error) {
	if _, err = io.ReadFull(crand.Reader, s[:]); err != nil {
		err = fmt.Errorf("reading OS entropy: %w", err)
	}
	return s, err
}

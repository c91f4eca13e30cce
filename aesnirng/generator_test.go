package aesnirng

import (
	"bytes"
	"crypto/aes"
	"encoding/binary"
	"errors"
	"math"
	"math/bits"
	"testing"
)

func testSeed() (s [SeedSize]byte) {
	for i := range s {
		s[i] = byte(i)
	}
	return s
}

// refFill recomputes the expected output stream for a seed by driving
// crypto/aes directly, batch by batch: encrypt 8 counters, withhold block 0
// as the next key, reset the counter, emit blocks 1..7. It returns the first
// n output bytes and the withheld key of every interval crossed.
func refFill(t *testing.T, s [SeedSize]byte, n int) (out []byte, withheld [][]byte) {
	t.Helper()
	key := append([]byte(nil), s[:keyBytes]...)
	lo := binary.LittleEndian.Uint64(s[16:24])
	hi := binary.LittleEndian.Uint64(s[24:32])
	for len(out) < n {
		b, err := aes.NewCipher(key)
		if err != nil {
			t.Fatal(err)
		}
		var batch [batchBytes]byte
		var in [BlockSize]byte
		for i := 0; i < batchBlocks; i++ {
			binary.LittleEndian.PutUint64(in[0:8], lo)
			binary.LittleEndian.PutUint64(in[8:16], hi)
			b.Encrypt(batch[i*BlockSize:(i+1)*BlockSize], in[:])
			lo++
			if lo == 0 {
				hi++
			}
		}
		key = append(key[:0], batch[:keyBytes]...)
		withheld = append(withheld, append([]byte(nil), batch[:keyBytes]...))
		lo, hi = 0, 0
		out = append(out, batch[keyBytes:]...)
	}
	return out[:n], withheld
}

var fillLengths = []int{0, 1, 15, 16, 17, 111, 112, 113, 1000, 1 << 20}

func TestFillMatchesReference(t *testing.T) {
	seed := testSeed()
	for _, n := range fillLengths {
		want, _ := refFill(t, seed, n)
		g := FromSeed(seed)
		got := make([]byte, n)
		g.Fill(got)
		if !bytes.Equal(got, want) {
			t.Errorf("length %d: output diverges from reference model", n)
		}
	}
}

func TestDeterminism(t *testing.T) {
	seed := testSeed()
	a := make([]byte, 4096)
	b := make([]byte, 4096)
	FromSeed(seed).Fill(a)
	FromSeed(seed).Fill(b)
	if !bytes.Equal(a, b) {
		t.Fatal("two generators from the same seed disagree")
	}
}

func TestPrefixConsistency(t *testing.T) {
	// Requesting more bytes must never change earlier bytes, across freshly
	// seeded generators.
	seed := testSeed()
	for i := 0; i < len(fillLengths)-1; i++ {
		short, long := fillLengths[i], fillLengths[i+1]
		a := make([]byte, short)
		b := make([]byte, long)
		FromSeed(seed).Fill(a)
		FromSeed(seed).Fill(b)
		if !bytes.Equal(a, b[:short]) {
			t.Errorf("prefix mismatch between lengths %d and %d", short, long)
		}
	}
}

func TestZeroLengthFill(t *testing.T) {
	seed := testSeed()
	g := FromSeed(seed)
	before := g.ctr
	g.Fill(nil)
	g.Fill([]byte{})
	if g.ctr != before || !bytes.Equal(g.key[:], seed[:keyBytes]) {
		t.Fatal("zero-length fill touched the generator state")
	}
}

func TestForwardSecrecy(t *testing.T) {
	// Structural check: after emitting k intervals, the live (key, counter)
	// must equal the withheld key of the last interval and differ from every
	// pair used to produce earlier output.
	seed := testSeed()
	const n = 1000 // crosses 9 interval boundaries
	_, withheld := refFill(t, seed, n)

	g := FromSeed(seed)
	g.Fill(make([]byte, n))

	last := withheld[len(withheld)-1]
	if !bytes.Equal(g.key[:], last) {
		t.Fatal("live key is not the withheld block of the last interval")
	}
	if g.ctr != (counter128{}) {
		t.Fatalf("counter not reset after rekey: %+v", g.ctr)
	}
	if bytes.Equal(g.key[:], seed[:keyBytes]) {
		t.Fatal("live key still equals the seed key")
	}
	for i, w := range withheld[:len(withheld)-1] {
		if bytes.Equal(g.key[:], w) {
			t.Fatalf("live key equals the key used for interval %d", i+1)
		}
	}
}

func TestWithheldKeysNeverOutput(t *testing.T) {
	seed := testSeed()
	const n = 10 * outPerBatch
	out, withheld := refFill(t, seed, n)

	g := FromSeed(seed)
	got := make([]byte, n)
	g.Fill(got)
	if !bytes.Equal(got, out) {
		t.Fatal("output diverges from reference model")
	}
	for i, w := range withheld {
		if bytes.Contains(got, w) {
			t.Errorf("withheld key of interval %d appears in the output", i+1)
		}
	}
}

func TestCounterWrapPanics(t *testing.T) {
	seed := testSeed()
	for i := 16; i < 32; i++ {
		seed[i] = 0xFF // counter = 2^128 - 1: wraps inside the first interval
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on counter wrap within an erasure interval")
		}
	}()
	FromSeed(seed).Fill(make([]byte, 1))
}

func TestCounterAtIntervalBoundaryDoesNotPanic(t *testing.T) {
	seed := testSeed()
	// counter = 2^128 - 8: the first interval ends exactly at the top of the
	// counter space without crossing it.
	binary.LittleEndian.PutUint64(seed[16:24], ^uint64(0)-uint64(batchBlocks)+1)
	binary.LittleEndian.PutUint64(seed[24:32], ^uint64(0))
	g := FromSeed(seed)
	g.Fill(make([]byte, 2*outPerBatch))
}

func TestUnsupportedHardware(t *testing.T) {
	g, err := newGenerator(drawOS, func() bool { return false })
	if !errors.Is(err, ErrUnsupportedHardware) {
		t.Fatalf("err = %v, want ErrUnsupportedHardware", err)
	}
	if g != nil {
		t.Fatal("partially constructed generator returned")
	}
}

func TestSeedingFailed(t *testing.T) {
	draw := func() ([SeedSize]byte, error) {
		return [SeedSize]byte{}, errors.New("entropy device gone")
	}
	g, err := newGenerator(draw, func() bool { return true })
	if !errors.Is(err, ErrSeedingFailed) {
		t.Fatalf("err = %v, want ErrSeedingFailed", err)
	}
	if g != nil {
		t.Fatal("partially constructed generator returned")
	}
}

func TestReadBits(t *testing.T) {
	tests := []struct {
		bitCount  int
		byteCount int
		lastMask  byte
	}{
		{1, 1, 0x80},
		{7, 1, 0xFE},
		{8, 1, 0xFF},
		{9, 2, 0x80},
		{2048, 256, 0xFF},
	}
	for _, tt := range tests {
		g := FromSeed(testSeed())
		buf, err := g.ReadBits(tt.bitCount)
		if err != nil {
			t.Fatalf("ReadBits(%d): %v", tt.bitCount, err)
		}
		if len(buf) != tt.byteCount {
			t.Errorf("ReadBits(%d): got %d bytes, want %d", tt.bitCount, len(buf), tt.byteCount)
		}
		if last := buf[len(buf)-1]; last&^tt.lastMask != 0 {
			t.Errorf("ReadBits(%d): unused trailing bits set in %02x", tt.bitCount, last)
		}
	}

	if _, err := FromSeed(testSeed()).ReadBits(0); err == nil {
		t.Error("ReadBits(0) succeeded, want error")
	}
	if _, err := FromSeed(testSeed()).ReadBits(-8); err == nil {
		t.Error("ReadBits(-8) succeeded, want error")
	}
}

func TestReadIsFullAndNeverFails(t *testing.T) {
	g := FromSeed(testSeed())
	p := make([]byte, 333)
	n, err := g.Read(p)
	if n != len(p) || err != nil {
		t.Fatalf("Read = (%d, %v), want (%d, nil)", n, err, len(p))
	}
}

func TestCloseWipesState(t *testing.T) {
	g := FromSeed(testSeed())
	g.Fill(make([]byte, 64))
	g.Close()
	if !bytes.Equal(g.key[:], make([]byte, keyBytes)) {
		t.Fatal("key bytes survive Close")
	}
	if g.block != nil {
		t.Fatal("cipher survives Close")
	}
}

func TestBitBalance(t *testing.T) {
	// Regression guard, not a statistical suite: over 10 MiB the monobit
	// z-score should sit well inside six sigma and every byte value should
	// occur.
	if testing.Short() {
		t.Skip("10 MiB sample in -short mode")
	}
	const n = 10 << 20
	buf := make([]byte, n)
	FromSeed(testSeed()).Fill(buf)

	ones := 0
	var seen [256]int
	for _, b := range buf {
		ones += bits.OnesCount8(b)
		seen[b]++
	}
	totalBits := float64(n * 8)
	z := (float64(ones) - totalBits/2) / (math.Sqrt(totalBits) / 2)
	if math.Abs(z) > 6 {
		t.Errorf("monobit z-score %.2f out of range", z)
	}
	for v, c := range seen {
		if c == 0 {
			t.Errorf("byte value %#02x never occurs in 10 MiB", v)
		}
	}
}

package aesnirng

import (
	"bytes"
	"context"
	"crypto/aes"
	"errors"
	"testing"
	"time"
)

func TestCounterArithmetic(t *testing.T) {
	max := ^uint64(0)
	tests := []struct {
		c    counter128
		n    uint64
		want counter128
	}{
		{counter128{0, 0}, 1, counter128{1, 0}},
		{counter128{max, 0}, 1, counter128{0, 1}},
		{counter128{max - 3, 7}, 8, counter128{4, 8}},
		{counter128{max, max}, 1, counter128{0, 0}}, // modulo 2^128
	}
	for _, tt := range tests {
		if got := tt.c.add(tt.n); got != tt.want {
			t.Errorf("%+v.add(%d) = %+v, want %+v", tt.c, tt.n, got, tt.want)
		}
	}
}

func TestCounterWrapDetection(t *testing.T) {
	max := ^uint64(0)
	tests := []struct {
		c    counter128
		n    uint64
		want bool
	}{
		{counter128{0, 0}, 8, false},
		{counter128{max - 7, max}, 8, false}, // ends exactly at the top
		{counter128{max - 6, max}, 8, true},
		{counter128{max, max}, 2, true},
		{counter128{max, max - 1}, 8, false}, // high word still has room
	}
	for _, tt := range tests {
		if got := tt.c.wrapsWithin(tt.n); got != tt.want {
			t.Errorf("%+v.wrapsWithin(%d) = %v, want %v", tt.c, tt.n, got, tt.want)
		}
	}
}

func TestEncryptBlocksIsPure(t *testing.T) {
	s := testSeed()
	b, err := aes.NewCipher(s[:keyBytes])
	if err != nil {
		t.Fatal(err)
	}
	ctr := counter128{lo: 41, hi: 3}

	one := make([]byte, batchBytes)
	two := make([]byte, batchBytes)
	after1 := encryptBlocks(b, ctr, one)
	after2 := encryptBlocks(b, ctr, two)
	if !bytes.Equal(one, two) {
		t.Fatal("same (key, counter, n) produced different keystream")
	}
	if want := (counter128{lo: 41 + batchBlocks, hi: 3}); after1 != want || after2 != want {
		t.Fatalf("advanced counter = %+v, want %+v", after1, want)
	}

	// Encrypting block by block must match the batch.
	single := make([]byte, BlockSize)
	for i := 0; i < batchBlocks; i++ {
		ctr = encryptBlocks(b, ctr, single)
		if !bytes.Equal(single, one[i*BlockSize:(i+1)*BlockSize]) {
			t.Fatalf("block %d differs between batch and single-block encryption", i)
		}
	}
}

func TestCollectBitsAtInterval(t *testing.T) {
	g := FromSeed(testSeed())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var batches [][]byte
	err := g.CollectBitsAtInterval(ctx, 64, time.Millisecond, func(b []byte) {
		batches = append(batches, b)
		if len(batches) == 3 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(batches) < 3 {
		t.Fatalf("collected %d batches, want at least 3", len(batches))
	}
	for _, b := range batches {
		if len(b) != 8 {
			t.Fatalf("batch of %d bytes, want 8", len(b))
		}
	}
}

func TestCollectBitsAtIntervalValidation(t *testing.T) {
	g := FromSeed(testSeed())
	ctx := context.Background()
	if err := g.CollectBitsAtInterval(ctx, 0, time.Second, func([]byte) {}); err == nil {
		t.Error("bitCount 0 accepted")
	}
	if err := g.CollectBitsAtInterval(ctx, 64, 0, func([]byte) {}); err == nil {
		t.Error("interval 0 accepted")
	}
	if err := g.CollectBitsAtInterval(ctx, 64, time.Second, nil); err == nil {
		t.Error("nil callback accepted")
	}
}

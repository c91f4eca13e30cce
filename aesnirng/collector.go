package aesnirng

import (
	"context"
	"errors"
	"time"
)

// ReadBits returns bitCount pseudorandom bits as bytes, MSB-first per byte.
// The unused trailing bits of the final byte are zeroed.
func (g *Generator) ReadBits(bitCount int) ([]byte, error) {
	if bitCount <= 0 {
		return nil, errors.New("bitCount must be positive")
	}
	buf := make([]byte, (bitCount+7)/8)
	g.Fill(buf)
	if extraBits := (8 - (bitCount % 8)) % 8; extraBits != 0 {
		buf[len(buf)-1] &= 0xFF << extraBits
	}
	return buf, nil
}

// CollectBitsAtInterval generates bitCount bits every interval and calls
// onBatch with each batch. It runs until ctx is cancelled; the context error
// is returned.
func (g *Generator) CollectBitsAtInterval(ctx context.Context, bitCount int, interval time.Duration, onBatch func([]byte)) error {
	if bitCount <= 0 {
		return errors.New("bitCount must be positive")
	}
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	if onBatch == nil {
		return errors.New("onBatch callback must not be nil")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		b, err := g.ReadBits(bitCount)
		if err != nil {
			return err
		}
		onBatch(b)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

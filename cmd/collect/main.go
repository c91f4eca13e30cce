// collect samples batches of random bits at a fixed interval from a chosen
// source and records them as a raw .bin stream plus a timestamped ones-count
// .csv, named per the naming convention.
package main

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/bits"
	"os"
	"os/signal"
	"time"

	"github.com/vks/aesrng/aesnirng"
	"github.com/vks/aesrng/naming"
	"github.com/vks/aesrng/seed"
)

// countOnes counts set bits in buf, considering only bitCount bits total.
func countOnes(buf []byte, bitCount int) int {
	total := 0
	for i, b := range buf {
		if (i+1)*8 > bitCount {
			used := bitCount - i*8
			if used <= 0 {
				break
			}
			b &= 0xFF << (8 - used)
		}
		total += bits.OnesCount8(b)
	}
	return total
}

func main() {
	bitCount := flag.Int("bits", 2048, "number of bits per batch")
	intervalSec := flag.Int("interval", 1, "seconds between batches")
	deviceFlag := flag.String("device", "aesni", "byte source: aesni|os|trng")
	outDir := flag.String("outdir", "data", "output directory")
	flag.Parse()

	if *bitCount <= 0 {
		log.Fatal("-bits must be > 0")
	}
	if *intervalSec <= 0 {
		log.Fatal("-interval must be > 0")
	}
	dev := naming.Device(*deviceFlag)
	if err := dev.Validate(); err != nil {
		log.Fatal(err)
	}
	byteCount := (*bitCount + 7) / 8

	readBatch, err := batchReader(dev, *bitCount, byteCount)
	if err != nil {
		log.Fatalf("%s: %v", dev, err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("creating outdir: %v", err)
	}
	binPath, csvPath, err := naming.BinCSVPaths(*outDir, time.Now(), dev, *bitCount, *intervalSec)
	if err != nil {
		log.Fatal(err)
	}
	binFile, err := os.Create(binPath)
	if err != nil {
		log.Fatalf("creating %s: %v", binPath, err)
	}
	defer binFile.Close()
	csvFile, err := os.Create(csvPath)
	if err != nil {
		log.Fatalf("creating %s: %v", csvPath, err)
	}
	defer csvFile.Close()
	binBuf := bufio.NewWriter(binFile)
	csvBuf := bufio.NewWriter(csvFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	interval := time.Duration(*intervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("collecting %d bits every %s from %s", *bitCount, interval, dev)
	sample := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch, err := readBatch()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("read error: %v", err)
			}
			return
		}

		if _, err := binBuf.Write(batch); err != nil {
			log.Fatalf("write bin: %v", err)
		}
		_ = binBuf.Flush()

		ones := countOnes(batch, *bitCount)
		sample++
		ts := time.Now().Format("20060102T15:04:05")
		if _, err := fmt.Fprintf(csvBuf, "%s,%d\n", ts, ones); err != nil {
			log.Fatalf("write csv: %v", err)
		}
		_ = csvBuf.Flush()

		fmt.Printf("sample %d: ones=%d/%d at %s\n", sample, ones, *bitCount, ts)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// batchReader builds the per-device read function. Device setup errors are
// surfaced here, before any output file is created.
func batchReader(dev naming.Device, bitCount, byteCount int) (func() ([]byte, error), error) {
	switch dev {
	case naming.DeviceAESNI:
		gen, err := aesnirng.New()
		if err != nil {
			return nil, err
		}
		return func() ([]byte, error) { return gen.ReadBits(bitCount) }, nil
	case naming.DeviceOS:
		return func() ([]byte, error) {
			buf := make([]byte, byteCount)
			if _, err := io.ReadFull(crand.Reader, buf); err != nil {
				return nil, err
			}
			maskTrailing(buf, bitCount)
			return buf, nil
		}, nil
	case naming.DeviceTrueRNG:
		src := seed.TrueRNG()
		// A collection batch is larger than one seed draw; pull the device
		// repeatedly until the batch is full.
		return func() ([]byte, error) {
			buf := make([]byte, 0, byteCount)
			for len(buf) < byteCount {
				s, err := src.Bytes()
				if err != nil {
					return nil, err
				}
				buf = append(buf, s[:]...)
			}
			buf = buf[:byteCount]
			maskTrailing(buf, bitCount)
			return buf, nil
		}, nil
	}
	return nil, fmt.Errorf("unsupported device %q", dev)
}

func maskTrailing(buf []byte, bitCount int) {
	if extra := (8 - (bitCount % 8)) % 8; extra != 0 && len(buf) > 0 {
		buf[len(buf)-1] &= 0xFF << extra
	}
}

// aesnicli is a minimal CLI demonstrating the aesnirng generator. It can
// read a specified number of bits once or at a fixed interval.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/vks/aesrng/aesnirng"
)

func main() {
	bits := flag.Int("bits", 1024, "number of bits to read per batch")
	interval := flag.Duration("interval", 0, "interval between reads (e.g. 2s). 0 for one-shot")
	flag.Parse()

	present, err := aesnirng.Detect()
	if err != nil {
		log.Fatalf("detect error: %v", err)
	}
	if !present {
		log.Fatal("CPU does not provide AES instructions")
	}

	gen, err := aesnirng.New()
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer gen.Close()

	if *interval == 0 {
		data, err := gen.ReadBits(*bits)
		if err != nil {
			log.Fatalf("read error: %v", err)
		}
		fmt.Printf("read %d bits (%d bytes)\n", *bits, len(data))
		fmt.Printf("%s\n", hex.EncodeToString(data))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	log.Printf("reading %d bits every %s. press Ctrl+C to stop...", *bits, interval.String())
	err = gen.CollectBitsAtInterval(ctx, *bits, *interval, func(b []byte) {
		fmt.Printf("%s  %d bits  %s\n", time.Now().Format(time.RFC3339), *bits, hex.EncodeToString(b))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("collect error: %v", err)
	}
}

// fill streams pseudorandom bytes from the aesnirng generator to a file or
// stdout. Output is produced through a fixed-size chunk buffer, so any byte
// count works in constant memory.
package main

import (
	"bufio"
	"flag"
	"io"
	"log"
	"os"

	"github.com/vks/aesrng/aesnirng"
	"github.com/vks/aesrng/seed"
)

const chunkSize = 1 << 16

func main() {
	count := flag.Int64("n", 1<<20, "number of bytes to generate")
	outPath := flag.String("o", "-", "output file, or - for stdout")
	seedSrc := flag.String("seed", "os", "seed source: os|trng|bitb")
	flag.Parse()

	if *count < 0 {
		log.Fatal("-n must be >= 0")
	}

	var src seed.Source
	switch *seedSrc {
	case "os":
		src = seed.OS()
	case "trng":
		src = seed.TrueRNG()
	case "bitb":
		src = seed.BitBabbler(0, 0)
	default:
		log.Fatalf("invalid -seed: %s (allowed: os, trng, bitb)", *seedSrc)
	}

	gen, err := aesnirng.NewFromSource(src)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer gen.Close()

	var out io.Writer = os.Stdout
	if *outPath != "-" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("creating %s: %v", *outPath, err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriterSize(out, chunkSize)

	buf := make([]byte, chunkSize)
	for remaining := *count; remaining > 0; {
		n := int64(len(buf))
		if n > remaining {
			n = remaining
		}
		gen.Fill(buf[:n])
		if _, err := w.Write(buf[:n]); err != nil {
			log.Fatalf("write error: %v", err)
		}
		remaining -= n
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("flush error: %v", err)
	}
}

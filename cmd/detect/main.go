// detect reports whether the aesnirng generator can run on this machine and
// prints the CPU details behind the answer.
package main

import (
	"fmt"
	"os"

	"github.com/klauspost/cpuid/v2"

	"github.com/vks/aesrng/aesnirng"
)

func main() {
	ok, err := aesnirng.Detect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("CPU: %s\n", cpuid.CPU.BrandName)
	fmt.Printf("Vendor: %s\n", cpuid.CPU.VendorString)
	fmt.Printf("Cores: %d physical, %d logical\n", cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores)
	for _, f := range []cpuid.FeatureID{cpuid.AESNI, cpuid.SSSE3, cpuid.SSE4, cpuid.AVX2, cpuid.RDRAND, cpuid.RDSEED} {
		fmt.Printf("  %-8s %v\n", f.String(), cpuid.CPU.Supports(f))
	}

	if !ok {
		fmt.Println("aesnirng: unsupported on this CPU")
		os.Exit(1)
	}
	fmt.Println("aesnirng: supported")
}

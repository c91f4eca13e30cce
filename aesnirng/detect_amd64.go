//go:build amd64

package aesnirng

import "golang.org/x/sys/cpu"

// crypto/aes only takes its AES-NI path when the SSSE3/SSE4.1-era SIMD bits
// are also set, so require the same bits here: Detect must agree with what
// Encrypt will actually execute.
func hasHardwareAES() bool {
	return cpu.X86.HasAES && cpu.X86.HasSSSE3 && cpu.X86.HasSSE41
}

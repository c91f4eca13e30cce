//go:build arm64

package aesnirng

import "golang.org/x/sys/cpu"

func hasHardwareAES() bool {
	return cpu.ARM64.HasAES
}

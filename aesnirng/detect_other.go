//go:build !amd64 && !arm64

package aesnirng

func hasHardwareAES() bool { return false }

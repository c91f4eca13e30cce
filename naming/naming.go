// Package naming builds the file names used by the collection tools:
//
//	YYYYMMDDTHHMMSS_{device}_s{bits}_i{interval}
//
// so a collection run's device, sample size and cadence can be recovered
// from the file name alone.
package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Device identifies the byte source of a collection run.
type Device string

const (
	// DeviceAESNI is the AES fast-key-erasure generator.
	DeviceAESNI Device = "aesni"
	// DeviceOS is the operating system entropy source.
	DeviceOS Device = "os"
	// DeviceTrueRNG is a TrueRNG serial device.
	DeviceTrueRNG Device = "trng"
)

// Validate checks whether d is one of the known device identifiers.
func (d Device) Validate() error {
	switch d {
	case DeviceAESNI, DeviceOS, DeviceTrueRNG:
		return nil
	}
	return fmt.Errorf("invalid device: %q (allowed: aesni, os, trng)", string(d))
}

// BaseName builds the base file name for a collection run started at now,
// sampling bits per batch every intervalSeconds.
func BaseName(now time.Time, device Device, bits, intervalSeconds int) (string, error) {
	if err := device.Validate(); err != nil {
		return "", err
	}
	if bits <= 0 {
		return "", errors.New("bits must be > 0")
	}
	if intervalSeconds <= 0 {
		return "", errors.New("intervalSeconds must be > 0")
	}
	return fmt.Sprintf("%s_%s_s%d_i%d", now.Format("20060102T150405"), device, bits, intervalSeconds), nil
}

// WithExt appends an extension to a base name; a leading dot on ext is
// accepted and normalized. An empty ext returns base unchanged.
func WithExt(base, ext string) string {
	if ext == "" {
		return base
	}
	return base + "." + strings.TrimPrefix(ext, ".")
}

// BinCSVPaths builds the .bin and .csv paths for a collection run inside dir
// (dir may be empty for the current directory).
func BinCSVPaths(dir string, now time.Time, device Device, bits, intervalSeconds int) (binPath, csvPath string, err error) {
	base, err := BaseName(now, device, bits, intervalSeconds)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(dir, WithExt(base, "bin")), filepath.Join(dir, WithExt(base, "csv")), nil
}

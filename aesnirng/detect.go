package aesnirng

import "sync"

var (
	detectOnce sync.Once
	detectOK   bool
)

// Detect reports whether this CPU exposes the AES instructions the generator
// requires. The probe runs once per process and the result is cached as an
// immutable fact; the error is always nil and exists to match the Detect
// signature of the other entropy devices in this module.
func Detect() (bool, error) {
	detectOnce.Do(func() { detectOK = hasHardwareAES() })
	return detectOK, nil
}

func aesSupported() bool {
	ok, _ := Detect()
	return ok
}

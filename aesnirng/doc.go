// Package aesnirng implements a fast-key-erasure pseudorandom byte generator
// built on the CPU's AES instructions. It drives AES-128 in counter mode and
// replaces its own key with the leading block of every keystream batch, so
// key material is erased as soon as it has produced output: capturing the
// generator's memory after the fact reveals nothing about bytes already
// emitted.
//
// The package mirrors the device API used elsewhere in this module
// (Detect, ReadBits, CollectBitsAtInterval), so the generator can stand in
// for a hardware RNG in the collection tooling.
//
// A Generator is not safe for concurrent use; give each goroutine its own
// seeded instance or serialize access externally.
package aesnirng

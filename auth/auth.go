// Package auth implements the keyed-hash handshake used to authenticate a
// robot session.
package auth

import "github.com/foundry9/robonav/config"

// UsernameHash computes (sum of byte values of username * 1000) mod 2^16.
func UsernameHash(username string) uint16 {
	var sum uint32
	for i := 0; i < len(username); i++ {
		sum += uint32(username[i])
	}
	return uint16((sum * 1000) % 65536)
}

// ServerConfirm computes the value the server sends after receiving a key id.
func ServerConfirm(hash uint16, key config.Key) uint16 {
	return uint16((uint32(hash) + uint32(key.Server)) % 65536)
}

// ExpectedClientConfirm computes the value the client is expected to send
// back to complete the handshake.
func ExpectedClientConfirm(hash uint16, key config.Key) uint16 {
	return uint16((uint32(hash) + uint32(key.Client)) % 65536)
}

// CheckClientConfirm reports whether the client's reported confirmation c
// matches the expected value for hash and key. c may be negative (the wire
// form allows a leading minus sign); a negative value never matches a
// uint16 expectation.
func CheckClientConfirm(hash uint16, key config.Key, c int) bool {
	if c < 0 {
		return false
	}
	return uint16(c) == ExpectedClientConfirm(hash, key)
}

package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports a payload that does not match the expected form.
type SyntaxError struct {
	Kind    string
	Payload string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("protocol: syntax error decoding %s: %q", e.Kind, e.Payload)
}

// KeyOutOfRangeError reports a numerically well-formed key id outside the
// configured key table.
type KeyOutOfRangeError struct {
	KeyID int
}

func (e *KeyOutOfRangeError) Error() string {
	return fmt.Sprintf("protocol: key id %d out of range", e.KeyID)
}

// Point is a grid coordinate.
type Point struct {
	X, Y int
}

// ValidateUsername accepts any payload that is not RECHARGING or FULL POWER.
// The Framer has already bounded its length; the terminator cannot appear
// in payload by construction.
func ValidateUsername(payload []byte) (string, error) {
	s := string(payload)
	if s == Recharging || s == FullPower {
		return "", &SyntaxError{Kind: "username", Payload: s}
	}
	return s, nil
}

// ValidateKeyID decodes an optionally-signed decimal integer and checks it
// against the key table size. A negative or too-large value yields
// KeyOutOfRangeError, never a SyntaxError, as long as it parses as a number.
func ValidateKeyID(payload []byte, numKeys int) (int, error) {
	s := string(payload)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &SyntaxError{Kind: "key id", Payload: s}
	}
	if n < 0 || n >= numKeys {
		return 0, &KeyOutOfRangeError{KeyID: n}
	}
	return n, nil
}

// ValidateConfirmation decodes an optionally-signed decimal integer.
func ValidateConfirmation(payload []byte) (int, error) {
	s := string(payload)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &SyntaxError{Kind: "confirmation", Payload: s}
	}
	return n, nil
}

// ValidateOK decodes the literal "OK ", a signed integer, a single space,
// and a signed integer, with nothing else.
func ValidateOK(payload []byte) (Point, error) {
	s := string(payload)
	const prefix = "OK "
	if !strings.HasPrefix(s, prefix) {
		return Point{}, &SyntaxError{Kind: "OK", Payload: s}
	}
	fields := strings.Split(s[len(prefix):], " ")
	if len(fields) != 2 {
		return Point{}, &SyntaxError{Kind: "OK", Payload: s}
	}
	x, err := strconv.Atoi(fields[0])
	if err != nil {
		return Point{}, &SyntaxError{Kind: "OK", Payload: s}
	}
	y, err := strconv.Atoi(fields[1])
	if err != nil {
		return Point{}, &SyntaxError{Kind: "OK", Payload: s}
	}
	return Point{X: x, Y: y}, nil
}

// IsRecharging reports whether payload is the exact literal RECHARGING.
func IsRecharging(payload []byte) bool {
	return string(payload) == Recharging
}

// IsFullPower reports whether payload is the exact literal FULL POWER.
func IsFullPower(payload []byte) bool {
	return string(payload) == FullPower
}

// ValidateSecret accepts any non-empty payload that is not RECHARGING or
// FULL POWER.
func ValidateSecret(payload []byte) (string, error) {
	s := string(payload)
	if len(s) == 0 || s == Recharging || s == FullPower {
		return "", &SyntaxError{Kind: "secret", Payload: s}
	}
	return s, nil
}

package service

import (
	"crypto/rand"
	"fmt"
)

// accessCodeAlphabet is the character set of session access codes. Mixed
// case on purpose: codes are case-sensitive.
const accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// generateAccessCode returns a random fixed-length alphanumeric code.
// Ambiguous glyphs (0/O, 1/l/I) are excluded from the alphabet since codes
// are typed by students off a whiteboard.
func generateAccessCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = accessCodeAlphabet[int(b)%len(accessCodeAlphabet)]
	}
	return string(buf), nil
}

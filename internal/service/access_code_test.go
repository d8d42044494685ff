package service

import (
	"strings"
	"testing"
)

func TestGenerateAccessCodeLength(t *testing.T) {
	for _, length := range []int{6, 8, 12} {
		code, err := generateAccessCode(length)
		if err != nil {
			t.Fatalf("generateAccessCode(%d): %v", length, err)
		}
		if len(code) != length {
			t.Errorf("len(code) = %d, want %d", len(code), length)
		}
	}
}

func TestGenerateAccessCodeCharset(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateAccessCode(8)
		if err != nil {
			t.Fatalf("generateAccessCode: %v", err)
		}
		for _, ch := range code {
			if !strings.ContainsRune(accessCodeAlphabet, ch) {
				t.Fatalf("code %q contains %q outside the alphabet", code, ch)
			}
		}
	}
}

func TestGenerateAccessCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateAccessCode(8)
		if err != nil {
			t.Fatalf("generateAccessCode: %v", err)
		}
		seen[code] = true
	}
	// 100 draws from a 58^8 space colliding would mean a broken generator.
	if len(seen) < 100 {
		t.Errorf("got %d distinct codes out of 100", len(seen))
	}
}

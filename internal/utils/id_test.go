package utils

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewIDIsUUID(t *testing.T) {
	id := NewID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid, got %q: %v", id, err)
	}
	if NewID() == id {
		t.Fatalf("expected distinct ids")
	}
}

func TestRandomSuffix(t *testing.T) {
	for range 100 {
		s := RandomSuffix(3)
		if len(s) != 3 {
			t.Fatalf("expected length 3, got %q", s)
		}
		for _, r := range s {
			if !strings.ContainsRune(suffixAlphabet, r) {
				t.Fatalf("unexpected character %q in %q", r, s)
			}
		}
	}
}

package auth

import (
	"strings"
	"testing"
)

func TestGenerateEmergencyCode_LengthAndAlphabet(t *testing.T) {
	code, err := GenerateEmergencyCode(10)
	if err != nil {
		t.Fatalf("GenerateEmergencyCode() = %v, want nil", err)
	}

	if len(code) != 10 {
		t.Errorf("code length = %d, want 10", len(code))
	}

	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Errorf("code contains %q, which is outside the alphabet", r)
		}
	}
}

func TestGenerateEmergencyCode_RejectsShortLength(t *testing.T) {
	if _, err := GenerateEmergencyCode(6); err == nil {
		t.Fatal("expected error for length below minimum")
	}
}

func TestGenerateEmergencyCode_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateEmergencyCode(10)
		if err != nil {
			t.Fatalf("GenerateEmergencyCode() = %v, want nil", err)
		}
		if seen[code] {
			t.Fatalf("duplicate code generated: %s", code)
		}
		seen[code] = true
	}
}

func TestHashAndCompareCode(t *testing.T) {
	code := "A7KQ2MZX9P"

	hash, err := HashCode(code)
	if err != nil {
		t.Fatalf("HashCode() = %v, want nil", err)
	}
	if hash == code {
		t.Fatal("hash must not equal plaintext")
	}

	if err := CompareCode(hash, code); err != nil {
		t.Errorf("CompareCode(correct) = %v, want nil", err)
	}
	if err := CompareCode(hash, "A7KQ2MZX9Q"); err == nil {
		t.Error("CompareCode(wrong) = nil, want mismatch error")
	}
}

func TestHashCode_RejectsEmpty(t *testing.T) {
	if _, err := HashCode(""); err == nil {
		t.Fatal("expected error for empty code")
	}
}

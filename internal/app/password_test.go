package app

import (
	"strings"
	"testing"
)

func TestHashPasswordNeverStoresPlaintext(t *testing.T) {
	const plaintext = "Str0ng!Pass"

	hash, err := HashPassword(plaintext)
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}
	if hash == plaintext {
		t.Fatal("stored hash must not equal the submitted password")
	}
	if strings.Contains(hash, plaintext) {
		t.Fatal("stored hash must not contain the submitted password")
	}

	match, err := CheckPassword(hash, plaintext)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !match {
		t.Fatal("expected the original password to verify against its hash")
	}

	match, err = CheckPassword(hash, "Wr0ng!Pass")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if match {
		t.Fatal("expected a different password to fail verification")
	}
}

func TestHashPasswordSaltsEachHash(t *testing.T) {
	const plaintext = "Str0ng!Pass"

	first, err := HashPassword(plaintext)
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}
	second, err := HashPassword(plaintext)
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}
	if first == second {
		t.Fatal("hashing the same password twice must produce different hashes")
	}

	for _, hash := range []string{first, second} {
		match, err := CheckPassword(hash, plaintext)
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if !match {
			t.Fatalf("expected password to verify against hash %q", hash)
		}
	}
}

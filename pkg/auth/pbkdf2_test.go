package auth

import (
	"bytes"
	"testing"
)

// testProvider keeps the iteration count low so the suite stays fast.
func testProvider() *PBKDF2Provider {
	return NewPBKDF2ProviderWithParams(10, 32, 16)
}

func TestGenerateSalt(t *testing.T) {
	p := testProvider()

	a, err := p.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	if len(a) != 16 {
		t.Errorf("expected 16-byte salt, got %d", len(a))
	}

	b, err := p.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two salts should not be equal")
	}
}

func TestHashAndVerify(t *testing.T) {
	p := testProvider()
	salt, err := p.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}

	hash := p.Hash("1234", salt)
	if hash == "" || hash == "1234" {
		t.Fatalf("unexpected hash %q", hash)
	}
	if again := p.Hash("1234", salt); again != hash {
		t.Error("hashing is deterministic for a fixed salt")
	}

	if !p.Verify("1234", hash, salt) {
		t.Error("correct secret should verify")
	}
	if p.Verify("4321", hash, salt) {
		t.Error("wrong secret should not verify")
	}

	otherSalt, err := p.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	if p.Verify("1234", hash, otherSalt) {
		t.Error("correct secret with wrong salt should not verify")
	}
	if p.Hash("1234", otherSalt) == hash {
		t.Error("different salts should produce different hashes")
	}
}

package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Stronger#Pass123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	ok, err := VerifyPassword(hash, "Stronger#Pass123")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification success")
	}
	ok, err = VerifyPassword(hash, "wrong-pass")
	if err != nil {
		t.Fatalf("verify wrong password errored: %v", err)
	}
	if ok {
		t.Fatal("expected password verification failure")
	}
}

func TestPasswordHasherWritesArgon2(t *testing.T) {
	h := NewPasswordHasher()
	hash, err := h.Hash("pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("expected argon2id hash, got %q", hash)
	}
	if !h.Verify("pass", hash) {
		t.Fatal("expected matching password to verify")
	}
	if h.Verify("pas", hash) {
		t.Fatal("expected mismatched password to fail")
	}
}

func TestPasswordHasherAcceptsBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	h := NewPasswordHasher()
	if !h.Verify("legacy-pass", string(legacy)) {
		t.Fatal("expected bcrypt hash to verify")
	}
	if h.Verify("other", string(legacy)) {
		t.Fatal("expected bcrypt mismatch to fail")
	}
}

func TestPasswordHasherFailsClosedOnMalformedHash(t *testing.T) {
	h := NewPasswordHasher()
	for _, encoded := range []string{"", "plaintext", "$argon2id$v=19$bad", "$2b$broken"} {
		if h.Verify("anything", encoded) {
			t.Fatalf("expected malformed hash %q to fail verification", encoded)
		}
	}
}

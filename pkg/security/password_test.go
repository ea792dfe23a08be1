package security_test

import (
	"errors"
	"testing"

	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/garageworks/garage-backend/pkg/security"
	"golang.org/x/crypto/bcrypt"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("Workshop2024", testPasswordConfig())
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("Workshop2024", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("workshop2024", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	for _, encoded := range []string{"not-a-hash", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA", "$argon2id$v=19$t=1$c2FsdA$aGFzaA"} {
		if _, err := security.VerifyPassword("irrelevant", encoded); !errors.Is(err, security.ErrInvalidHash) {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", encoded, err)
		}
	}
}

func TestVerifyLegacyBcryptHash(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("Frontdesk1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	ok, err := security.VerifyPassword("Frontdesk1", string(legacy))
	if err != nil || !ok {
		t.Fatalf("expected legacy hash to verify: ok=%v err=%v", ok, err)
	}
	ok, err = security.VerifyPassword("frontdesk1", string(legacy))
	if err != nil || ok {
		t.Fatalf("wrong password must not verify: ok=%v err=%v", ok, err)
	}
	if !security.NeedsRehash(string(legacy), testPasswordConfig()) {
		t.Fatal("bcrypt hashes should be upgraded")
	}
	if _, err := security.VerifyPassword("x", "$2b$10$short"); !errors.Is(err, security.ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash for truncated bcrypt hash, got %v", err)
	}
}

func TestNeedsRehashFollowsConfig(t *testing.T) {
	cfg := testPasswordConfig()
	hash, err := security.HashPassword("Workshop2024", cfg)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if security.NeedsRehash(hash, cfg) {
		t.Fatal("hash made with the current settings is up to date")
	}
	stronger := cfg
	stronger.ArgonTime = 2
	if !security.NeedsRehash(hash, stronger) {
		t.Fatal("raising the pass count should trigger a rehash")
	}
	if security.NeedsRehash("garbage", cfg) {
		t.Fatal("unparseable hashes are left to VerifyPassword")
	}
}

func TestValidatePolicy(t *testing.T) {
	cases := map[string]bool{
		"Short1":        false,
		"alllowercase1": false,
		"ALLUPPER123":   false,
		"NoDigitsHere":  false,
		"Mechanic42":    true,
	}
	for pw, valid := range cases {
		err := security.ValidatePolicy(pw)
		if valid && err != nil {
			t.Fatalf("expected %q to pass, got %v", pw, err)
		}
		if !valid && !errors.Is(err, security.ErrWeakPassword) {
			t.Fatalf("expected %q to fail policy, got %v", pw, err)
		}
	}
}

func TestGenerateTempPassword(t *testing.T) {
	pw, err := security.GenerateTempPassword(16)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(pw) != 16 {
		t.Fatalf("expected 16 characters, got %d", len(pw))
	}
	if err := security.ValidatePolicy(pw); err != nil {
		t.Fatalf("generated password fails policy: %v", err)
	}
	if _, err := security.GenerateTempPassword(4); err == nil {
		t.Fatal("expected error for short length")
	}
}

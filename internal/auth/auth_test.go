package auth

import (
	"errors"
	"testing"
	"time"
)

func TestPasswordHashRoundtrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter22" {
		t.Fatalf("hash must not be the plaintext")
	}
	if !CheckPassword(hash, "hunter22") {
		t.Fatalf("correct password rejected")
	}
	if CheckPassword(hash, "hunter23") {
		t.Fatalf("wrong password accepted")
	}
}

func TestJWTRoundtrip(t *testing.T) {
	token, err := SignJWT("user-1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	uid, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if uid != "user-1" {
		t.Fatalf("expected user-1, got %q", uid)
	}

	if _, err := ParseJWT(token, "other-secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for a wrong secret, got %v", err)
	}

	expired, err := SignJWT("user-1", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}
	if _, err := ParseJWT(expired, "secret"); err == nil {
		t.Fatalf("expected an error for an expired token")
	}
}

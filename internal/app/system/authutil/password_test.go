package authutil

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"valid short", "abc123x", nil},
		{"valid with spaces", "my secret password", nil},
		{"valid max length", strings.Repeat("a", 72), nil},
		{"too short", "abcde", ErrPasswordTooShort},
		{"empty", "", ErrPasswordTooShort},
		{"too long for bcrypt", strings.Repeat("a", 73), ErrPasswordTooLong},
		{"common", "password", ErrPasswordCommon},
		{"common uppercase", "QWERTY", ErrPasswordCommon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePassword(tt.password); err != tt.wantErr {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("HashPassword() returned the plain text")
	}
	if !CheckPassword("correct horse", hash) {
		t.Error("CheckPassword() = false for the right password")
	}
	if CheckPassword("battery staple", hash) {
		t.Error("CheckPassword() = true for the wrong password")
	}
	if CheckPassword("correct horse", "not-a-hash") {
		t.Error("CheckPassword() = true for a malformed hash")
	}
}

func TestBurnCompare(t *testing.T) {
	// Must not panic and must be callable repeatedly.
	BurnCompare("anything")
	BurnCompare("")
}

package utils

import (
	"strings"
	"testing"
)

func TestGenerateTokenSecret(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		secret, err := GenerateTokenSecret()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(secret) != 32 {
			t.Fatalf("expected 32-char secret, got %d (%q)", len(secret), secret)
		}
		if strings.ContainsAny(secret, "+/=.") {
			t.Fatalf("secret not URL-safe: %q", secret)
		}
		if seen[secret] {
			t.Fatalf("duplicate secret %q", secret)
		}
		seen[secret] = true
	}
}

func TestTokenSecretRoundTrip(t *testing.T) {
	secret, err := GenerateTokenSecret()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	hash, err := HashTokenSecret(secret)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == secret {
		t.Fatal("hash must not equal the plaintext secret")
	}
	if !CompareTokenSecret(secret, hash) {
		t.Fatal("expected secret to match its own hash")
	}

	// a single-character change must be rejected
	altered := []byte(secret)
	last := len(altered) - 1
	if altered[last] == 'A' {
		altered[last] = 'B'
	} else {
		altered[last] = 'A'
	}
	if CompareTokenSecret(string(altered), hash) {
		t.Fatal("altered secret must not match the hash")
	}
}

func TestSplitManageToken(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		id     string
		secret string
		ok     bool
	}{
		{"valid", "abc.def", "abc", "def", true},
		{"secret containing dots", "abc.def.ghi", "abc", "def.ghi", true},
		{"no delimiter", "abcdef", "", "", false},
		{"empty id", ".secret", "", "", false},
		{"empty secret", "id.", "", "", false},
		{"empty input", "", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, secret, ok := SplitManageToken(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if id != tc.id || secret != tc.secret {
				t.Fatalf("got (%q, %q), want (%q, %q)", id, secret, tc.id, tc.secret)
			}
		})
	}
}

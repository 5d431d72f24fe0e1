package secrets

import (
	"errors"
	"testing"
)

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher("test-secret")
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	encrypted, errEncrypt := c.Encrypt("sk-live-abcdef123456")
	if errEncrypt != nil {
		t.Fatalf("Encrypt: %v", errEncrypt)
	}
	if encrypted == "sk-live-abcdef123456" {
		t.Fatalf("ciphertext equals plaintext")
	}

	decrypted, errDecrypt := c.Decrypt(encrypted)
	if errDecrypt != nil {
		t.Fatalf("Decrypt: %v", errDecrypt)
	}
	if decrypted != "sk-live-abcdef123456" {
		t.Fatalf("decrypted = %q", decrypted)
	}
}

func TestCipher_NonceVariesPerCall(t *testing.T) {
	c, err := NewCipher("test-secret")
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	first, _ := c.Encrypt("same-value")
	second, _ := c.Encrypt("same-value")
	if first == second {
		t.Fatalf("expected distinct ciphertexts for repeated plaintext")
	}
}

func TestCipher_WrongKeyFails(t *testing.T) {
	c1, _ := NewCipher("secret-one")
	c2, _ := NewCipher("secret-two")

	encrypted, _ := c1.Encrypt("payload")
	if _, errDecrypt := c2.Decrypt(encrypted); !errors.Is(errDecrypt, ErrCiphertextInvalid) {
		t.Fatalf("expected ErrCiphertextInvalid, got %v", errDecrypt)
	}
}

func TestCipher_GarbageInput(t *testing.T) {
	c, _ := NewCipher("test-secret")

	for _, input := range []string{"", "not-base64!!!", "YWJj"} {
		if _, errDecrypt := c.Decrypt(input); !errors.Is(errDecrypt, ErrCiphertextInvalid) {
			t.Fatalf("input %q: expected ErrCiphertextInvalid, got %v", input, errDecrypt)
		}
	}
}

func TestHint(t *testing.T) {
	if got := Hint("sk-live-abcdef123456"); got != "sk-l...3456" {
		t.Fatalf("Hint = %q", got)
	}
	if got := Hint("short"); got != "****" {
		t.Fatalf("Hint short = %q", got)
	}
}

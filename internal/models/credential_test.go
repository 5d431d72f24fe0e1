package models

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestMarkFailure_TruncatesMessageOnRuneBoundary(t *testing.T) {
	credential := Credential{Status: CredentialStatusActive}
	message := strings.Repeat("تجاوز حد الطلبات ", 80)

	credential.MarkFailure(time.Now().UTC(), message, false)

	if got := len([]rune(credential.LastError)); got > 500 {
		t.Fatalf("stored message has %d runes, want at most 500", got)
	}
	if !utf8.ValidString(credential.LastError) {
		t.Fatalf("stored message is not valid UTF-8")
	}
}

func TestMarkFailure_RateLimitSetsCooldown(t *testing.T) {
	credential := Credential{Status: CredentialStatusActive}
	now := time.Now().UTC()

	credential.MarkFailure(now, "429", true)

	if credential.Status != CredentialStatusCooldown {
		t.Fatalf("status = %q, want cooldown", credential.Status)
	}
	if credential.CooldownUntil == nil || !credential.CooldownUntil.Equal(now.Add(CredentialCooldown)) {
		t.Fatalf("cooldown until = %v, want %v", credential.CooldownUntil, now.Add(CredentialCooldown))
	}
	if !credential.Available(now.Add(CredentialCooldown + time.Second)) {
		t.Fatalf("credential should be available after cooldown expiry")
	}
}

package ratelimit

import "fmt"

// KeyForCredential builds the limiter key for a pool credential.
func KeyForCredential(credentialID uint64) string {
	if credentialID == 0 {
		return ""
	}
	return fmt.Sprintf("cred:%d", credentialID)
}

// KeyForEnv is the limiter key for the single environment credential.
const KeyForEnv = "cred:env"

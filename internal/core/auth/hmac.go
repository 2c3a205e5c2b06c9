package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// API keys look like cf-v1-<secret id>-<random>, where the secret id is the
// 32 hex digit id of the HMAC secret that signs the key and random is 64 hex
// digits. Only the signature is stored.
const (
	KeyPrefix  = "cf"
	KeyVersion = "v1"

	secretIDLen = 32
	randomLen   = 64
)

// APIKey is a parsed API key.
type APIKey struct {
	SecretID string
	Random   string
}

// NewAPIKey returns a key for secretID with random bytes encoded as hex.
func NewAPIKey(secretID string, random []byte) APIKey {
	return APIKey{SecretID: secretID, Random: hex.EncodeToString(random)}
}

// String formats the key for handing to a client.
func (k APIKey) String() string {
	return strings.Join([]string{KeyPrefix, KeyVersion, k.SecretID, k.Random}, "-")
}

// Sign returns the HMAC-SHA256 of the formatted key under secret.
func (k APIKey) Sign(secret []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(k.String()))
	return h.Sum(nil)
}

// ParseAPIKey splits a formatted key. Anything other than lowercase hex of
// the expected lengths is ErrInvalidKeyFormat.
func ParseAPIKey(key string) (APIKey, error) {
	parts := strings.Split(key, "-")
	if len(parts) != 4 || parts[0] != KeyPrefix || parts[1] != KeyVersion {
		return APIKey{}, ErrInvalidKeyFormat
	}
	k := APIKey{SecretID: parts[2], Random: parts[3]}
	if !lowerHex(k.SecretID, secretIDLen) || !lowerHex(k.Random, randomLen) {
		return APIKey{}, ErrInvalidKeyFormat
	}
	return k, nil
}

func lowerHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

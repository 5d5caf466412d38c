package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HMACSHA256Hex returns hex(HMAC-SHA256(key, message))
func HMACSHA256Hex(key, message string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// SHA256Hex returns hex(SHA-256(s))
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SHA512Hex returns hex(SHA-512(s))
func SHA512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

// EqualHex compares two hex digests in constant time, ignoring case. Empty
// values never match.
func EqualHex(expected, got string) bool {
	got = strings.ToLower(strings.TrimSpace(got))
	if expected == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(expected)), []byte(got)) == 1
}

// Package crypt provides the HMAC-based signing primitives used to
// authenticate gossip messages exchanged between cluster peers.
package crypt

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// RandomKey generates a random 8-byte key.
func RandomKey() []byte {
	key := make([]byte, 8)
	rand.Read(key)
	return key
}

// Base64Encode encodes bytes to base64 string
func Base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Base64Decode decodes base64 string to bytes
func Base64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// HexEncode encodes bytes to hex string
func HexEncode(data []byte) string {
	return hex.EncodeToString(data)
}

// HexDecode decodes hex string to bytes
func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// HMAC64 calculates the HMAC-SHA1 of challenge under secret and returns
// the first 8 bytes.
func HMAC64(challenge, secret []byte) []byte {
	h := hmac.New(sha1.New, secret)
	h.Write(challenge)
	sum := h.Sum(nil)
	return sum[:8]
}

// HMACHash returns the first 8 bytes of the HMAC-SHA1 of text under secret.
func HMACHash(secret []byte, text string) []byte {
	return HMAC64([]byte(text), secret)
}

// HashKey returns the first 8 bytes of the MD5 digest of text.
func HashKey(text string) []byte {
	h := md5.New()
	h.Write([]byte(text))
	return h.Sum(nil)[:8]
}

// SignGossipPayload computes an HMAC-SHA256 over a gossip message body
// using the cluster's shared secret, so a receiving node can reject
// payloads from peers it has not been configured to trust.
func SignGossipPayload(secret, payload []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return h.Sum(nil)
}

// VerifyGossipPayload reports whether sig is the correct HMAC-SHA256 of
// payload under secret. Uses hmac.Equal for a constant-time comparison.
func VerifyGossipPayload(secret, payload, sig []byte) bool {
	return hmac.Equal(sig, SignGossipPayload(secret, payload))
}

package utils

import (
	"crypto/rand" // Secure random codes
	"strings"     // String manipulation

	"github.com/google/uuid" // UUID generation
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // No ambiguous 0/O or 1/I

// RandomCode returns n random characters from an unambiguous upper-case alphabet
func RandomCode(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i, v := range buf {
		buf[i] = codeAlphabet[int(v)%len(codeAlphabet)]
	}
	return string(buf)
}

// NewOrderNumber returns a public order number such as PP-1A2B3C4D
func NewOrderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "") // 32 hex characters
	return "PP-" + strings.ToUpper(id[:8])
}

// NewAffiliateCode returns a referral code such as PPK7M2QX
func NewAffiliateCode() string {
	return "PP" + RandomCode(6)
}

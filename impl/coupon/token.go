package coupon

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	tokenBytes    = 16 // 128 bits
	payloadPrefix = "evc:"
)

// Tokens produces opaque redemption tokens.
type Tokens interface {
	NewToken() (string, error)
}

// RandomTokens reads from crypto/rand; tokens carry no customer or time information.
type RandomTokens struct{}

func (RandomTokens) NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Payload is the string encoded into the QR code handed to the attendee.
func Payload(token string) string {
	return payloadPrefix + token
}

// TokenFromPayload accepts a scanned payload or a bare token typed in by hand.
func TokenFromPayload(data string) (string, error) {
	data = strings.TrimSpace(data)
	token := strings.TrimPrefix(data, payloadPrefix)
	if token == "" || strings.ContainsAny(token, " :/") || len(token) > 128 {
		return "", fmt.Errorf("unrecognized coupon payload")
	}
	return token, nil
}

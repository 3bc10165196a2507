package commandless

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/GMOnyx/Commandlessapp-sub000/relay/domain"
	"github.com/google/uuid"
)

// idempotencyNamespace scopes the UUIDv5 keys derived from events.
var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://commandless.app/relay/idempotency"))

// Sign returns the hex HMAC-SHA256 of body under secret, as sent in x-signature.
func Sign(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks a hex signature using constant-time comparison.
func VerifySignature(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	return hmac.Equal(want, got)
}

// IdempotencyKey derives a stable key from the event identity, so every attempt
// to deliver the same event carries the same key.
func IdempotencyKey(ev domain.Event) string {
	name := strings.Join([]string{string(ev.Platform), ev.BotID, string(ev.Kind), ev.ID}, "|")
	return uuid.NewSHA1(idempotencyNamespace, []byte(name)).String()
}

package bot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidSignature(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"events":[]}`)

	t.Run("matching signature", func(t *testing.T) {
		assert.True(t, ValidSignature(secret, body, sign(secret, body)))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, ValidSignature(secret, body, sign("other-secret", body)))
	})

	t.Run("tampered body", func(t *testing.T) {
		sig := sign(secret, body)
		assert.False(t, ValidSignature(secret, []byte(`{"events":[{}]}`), sig))
	})

	t.Run("empty signature", func(t *testing.T) {
		assert.False(t, ValidSignature(secret, body, ""))
	})

	t.Run("garbage signature", func(t *testing.T) {
		assert.False(t, ValidSignature(secret, body, "not base64!!"))
	})
}

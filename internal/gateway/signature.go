package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader — заголовок, в котором шлюз передаёт подпись тела колбэка.
const SignatureHeader = "X-Callback-Signature"

// Sign вычисляет HMAC-SHA256 тела колбэка по общему секрету.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature проверяет подпись колбэка в постоянном времени.
// Колбэки приходят из недоверенной сети, непроверенное тело не исполняется.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := Sign(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

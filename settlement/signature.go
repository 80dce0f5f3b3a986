// settlement/signature.go
package settlement

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Sign computes the hex HMAC-SHA256 over order_id|user_id|amount|timestamp.
// Both sides of the bridge must format the amount identically, so it goes
// through FormatAmount.
func Sign(orderID, userID string, amount float64, timestamp int64, secret string) string {
	raw := orderID + "|" + userID + "|" + FormatAmount(amount) + "|" + strconv.FormatInt(timestamp, 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a received signature in constant time.
func Verify(orderID, userID string, amount float64, timestamp int64, secret, signature string) bool {
	expected := Sign(orderID, userID, amount, timestamp, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// FormatAmount renders an amount the way the platform side does: shortest
// decimal form, no exponent (100 -> "100", 100.5 -> "100.5").
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

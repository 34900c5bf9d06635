package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sign computes the webhook payload signature: HMAC-SHA256 over
// "{unix_timestamp}.{json_body}" with the subscription secret, hex-encoded.
func Sign(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader formats the X-Signature header value: "t=<ts>,v1=<hex>".
func SignatureHeader(timestamp int64, signature string) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}

// VerifySignature checks an X-Signature header against the request body.
// Timestamps older than tolerance are rejected to prevent replay.
// Exported for subscribers that verify deliveries with this package.
func VerifySignature(secret, header string, body []byte, tolerance time.Duration, now time.Time) error {
	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(part, "=")
		if !found {
			return fmt.Errorf("malformed signature header")
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("malformed signature timestamp: %w", err)
			}
			ts = parsed
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return fmt.Errorf("signature header missing t or v1")
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > tolerance || age < -tolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	expected := Sign(secret, ts, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

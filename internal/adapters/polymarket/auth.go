package polymarket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// Credentials son las credenciales L2 del CLOB (api key derivada de la
// wallet). Se cargan desde variables de entorno, nunca desde el yaml.
type Credentials struct {
	Address    string
	APIKey     string
	Secret     string
	Passphrase string
}

// Complete indica si hay credenciales suficientes para firmar requests.
func (c Credentials) Complete() bool {
	return c.Address != "" && c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}

// buildHmacSignature firma un request L2: HMAC-SHA256 sobre
// timestamp + method + path + body, con el secret decodificado de
// base64url. La firma sale también en base64url.
func buildHmacSignature(secret, timestamp, method, path, body string) (string, error) {
	sanitized := strings.ReplaceAll(strings.ReplaceAll(secret, "+", "-"), "/", "_")
	key, err := base64.URLEncoding.DecodeString(sanitized)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}

	message := timestamp + method + path + body
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))

	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

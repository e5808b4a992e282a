package api

import (
	"errors"
	"net/http"
	"unsafe"

	"github.com/labstack/echo/v4"
)

// authCookieName is the cookie carrying the signed credential token.
const authCookieName = "jwt"

var (
	errMissingCredential = errors.New("missing credential")
	errBadCredential     = errors.New("bad credential")
)

var bearerPrefix = [...]byte{'B', 'e', 'a', 'r', 'e', 'r', ' '}

// tokenFromRequest extracts the raw JWT from the auth cookie, falling back to
// an Authorization bearer header for non-browser clients.
func tokenFromRequest(r *http.Request) ([]byte, error) {
	if cookie, err := r.Cookie(authCookieName); err == nil && cookie.Value != "" {
		token := readOnlyBytes(cookie.Value)
		if countByte(token, '.') != 2 {
			return nil, errBadCredential
		}
		return token, nil
	}
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		return bearerTokenFromString(h)
	}
	return nil, errMissingCredential
}

func bearerTokenFromString(raw string) ([]byte, error) {
	start := 0
	end := len(raw)
	for start < end && raw[start] == ' ' {
		start++
	}
	for end > start && raw[end-1] == ' ' {
		end--
	}
	if start >= end {
		return nil, errMissingCredential
	}
	token := readOnlyBytes(raw[start:end])
	if len(token) <= len(bearerPrefix) || !hasBearerPrefix(token) {
		return nil, errBadCredential
	}
	token = token[len(bearerPrefix):]
	if countByte(token, '.') != 2 {
		return nil, errBadCredential
	}
	return token, nil
}

func hasBearerPrefix(value []byte) bool {
	if len(value) < len(bearerPrefix) {
		return false
	}
	for i := range bearerPrefix {
		if value[i] != bearerPrefix[i] {
			return false
		}
	}
	return true
}

func countByte(buf []byte, target byte) int {
	count := 0
	for _, b := range buf {
		if b == target {
			count++
		}
	}
	return count
}

func readOnlyBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func readOnlyString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

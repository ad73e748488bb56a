package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeError reports a token that could not be read as a claims payload.
// Callers can use errors.As to distinguish it from other failures.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	if e == nil || e.Err == nil {
		return "jwt: malformed token"
	}
	return "jwt: malformed token: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrEmptyToken is wrapped by a DecodeError when Decode receives "".
var ErrEmptyToken = errors.New("empty token")

// ErrNotObject is wrapped by a DecodeError when the payload is valid JSON but
// not an object (null, an array, a number).
var ErrNotObject = errors.New("payload is not a JSON object")

// Claims are the application claims carried by an access token.
//
// Missing fields decode to their zero values; a Claims value is only produced
// when the payload itself was readable.
type Claims struct {
	EmployeeNumber string `json:"employeeNumber"`
	Department     string `json:"department"`
	Level          Level  `json:"level"`
}

// Level is the employee grade. The backend has emitted it both as a JSON
// number and as a numeric string, so both are accepted.
type Level int

// UnmarshalJSON accepts 5, "5", and null.
func (l *Level) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*l = 0
		return nil
	}
	raw = strings.Trim(raw, `"`)
	n, err := strconv.Atoi(raw)
	if err != nil {
		if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil && f == float64(int(f)) {
			*l = Level(int(f))
			return nil
		}
		return fmt.Errorf("level %q is not an integer", raw)
	}
	*l = Level(n)
	return nil
}

// payload is the full claim set read from the token. Registered claims are
// kept so their shapes (exp, iat) are checked the same way the backend does.
type payload struct {
	Claims
	jwt.RegisteredClaims
}

// Codec decodes access tokens into Claims. The zero value is ready to use and
// safe for concurrent use.
type Codec struct{}

// NewCodec returns a Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Decode reads the payload segment of token without verifying its signature.
// The header and signature segments are not decoded; only the segment count
// is checked. Any structural problem (wrong segment count, bad base64, a
// payload that is not a JSON object, mistyped claim) is returned as a
// *DecodeError.
func (c *Codec) Decode(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, &DecodeError{Err: ErrEmptyToken}
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, &DecodeError{Err: jwt.ErrTokenMalformed}
	}
	raw, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, &DecodeError{Err: err}
	}
	if body := bytes.TrimSpace(raw); len(body) == 0 || body[0] != '{' {
		return Claims{}, &DecodeError{Err: ErrNotObject}
	}

	// Registered claims are decoded too so a mistyped exp or iat is rejected.
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Claims{}, &DecodeError{Err: err}
	}
	return p.Claims, nil
}

// Decode is a convenience wrapper around a zero Codec.
func Decode(token string) (Claims, error) {
	var c Codec
	return c.Decode(token)
}

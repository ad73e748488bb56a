package jwt

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims gjwt.MapClaims) string {
	t.Helper()
	tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestDecodeReadsApplicationClaims(t *testing.T) {
	tok := signToken(t, gjwt.MapClaims{
		"employeeNumber": "E1",
		"department":     "HR1",
		"level":          5,
		"exp":            time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := Claims{EmployeeNumber: "E1", Department: "HR1", Level: 5}
	if claims != want {
		t.Fatalf("claims = %+v, want %+v", claims, want)
	}
}

func TestDecodeIgnoresSignatureAndExpiry(t *testing.T) {
	tok := signToken(t, gjwt.MapClaims{
		"employeeNumber": "E2",
		"exp":            time.Now().Add(-time.Hour).Unix(),
	})
	// Corrupt the signature segment; the codec must not care.
	tampered := tok[:len(tok)-4] + "AAAA"

	claims, err := NewCodec().Decode(tampered)
	if err != nil {
		t.Fatalf("Decode expired/tampered token: %v", err)
	}
	if claims.EmployeeNumber != "E2" {
		t.Fatalf("EmployeeNumber = %q, want E2", claims.EmployeeNumber)
	}
}

func TestDecodeToleratesMissingFields(t *testing.T) {
	tok := signToken(t, gjwt.MapClaims{"employeeNumber": "E3"})

	claims, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Department != "" || claims.Level != 0 {
		t.Fatalf("expected zero department and level, got %+v", claims)
	}
}

func TestDecodeAcceptsStringLevel(t *testing.T) {
	tok := signToken(t, gjwt.MapClaims{"employeeNumber": "E4", "level": "4"})

	claims, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Level != 4 {
		t.Fatalf("Level = %d, want 4", claims.Level)
	}
}

func TestDecodeAcceptsUnregisteredAlgorithm(t *testing.T) {
	enc := base64.RawURLEncoding
	tok := enc.EncodeToString([]byte(`{"alg":"XX999","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(`{"employeeNumber":"E5","department":"DEV","level":2}`)) + ".sig"

	claims, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.EmployeeNumber != "E5" || claims.Level != 2 {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestDecodeReadsOnlyThePayload(t *testing.T) {
	enc := base64.RawURLEncoding
	tok := "%%header%%." + enc.EncodeToString([]byte(`{"employeeNumber":"E6","level":1}`)) + ".not base64!"

	claims, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.EmployeeNumber != "E6" || claims.Level != 1 {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestDecodeRejectsNonObjectPayload(t *testing.T) {
	enc := base64.RawURLEncoding
	tok := enc.EncodeToString([]byte(`{"alg":"HS256"}`)) + "." + enc.EncodeToString([]byte(`null`)) + ".sig"

	_, err := Decode(tok)
	if !errors.Is(err, ErrNotObject) {
		t.Fatalf("Decode(null payload) = %v, want ErrNotObject", err)
	}
}

func TestDecodeRejectsMalformedTokens(t *testing.T) {
	enc := base64.RawURLEncoding
	header := enc.EncodeToString([]byte(`{"alg":"HS256"}`))

	cases := map[string]string{
		"empty":          "",
		"one segment":    "abc",
		"two segments":   "abc.def",
		"bad base64":     header + ".!!!.sig",
		"non-json body":  header + "." + enc.EncodeToString([]byte("not json")) + ".sig",
		"mistyped level": header + "." + enc.EncodeToString([]byte(`{"level":"high"}`)) + ".sig",
		"mistyped exp":   header + "." + enc.EncodeToString([]byte(`{"exp":"soon"}`)) + ".sig",
		"null payload":   header + "." + enc.EncodeToString([]byte(`null`)) + ".sig",
		"array payload":  header + "." + enc.EncodeToString([]byte(`[]`)) + ".sig",
		"number payload": header + "." + enc.EncodeToString([]byte(` 42`)) + ".sig",
		"four segments":  header + "." + enc.EncodeToString([]byte(`{}`)) + ".sig.extra",
	}

	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tok)
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
		})
	}
}

func FuzzDecode(f *testing.F) {
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJIUzI1NiJ9.eyJlbXBsb3llZU51bWJlciI6IkUxIn0.sig")
	f.Add("eyJhbGciOiJub25lIn0.eyJsZXZlbCI6bnVsbH0.")

	f.Fuzz(func(t *testing.T, input string) {
		// Must not panic; errors must always be DecodeErrors.
		_, err := Decode(input)
		if err == nil {
			return
		}
		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			t.Fatalf("unexpected error type %T: %v", err, err)
		}
	})
}

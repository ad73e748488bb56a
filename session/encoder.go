package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/MrEthical07/hrdesk/jwt"
)

const mirrorFormatVersion = 1

var (
	// ErrMirrorVersion is returned when a mirror record has an unknown format version.
	ErrMirrorVersion = errors.New("session: unsupported mirror version")
	// ErrMirrorCorrupt is returned when a mirror record violates session invariants.
	ErrMirrorCorrupt = errors.New("session: corrupt mirror record")
)

// mirrorRecord is the on-disk shape of a Snapshot. Integer keys keep the
// encoding compact and independent of Go field names.
type mirrorRecord struct {
	Version        uint8  `cbor:"1,keyasint"`
	LoggedIn       bool   `cbor:"2,keyasint"`
	AccessToken    string `cbor:"3,keyasint,omitempty"`
	HasClaims      bool   `cbor:"4,keyasint"`
	EmployeeNumber string `cbor:"5,keyasint,omitempty"`
	Department     string `cbor:"6,keyasint,omitempty"`
	Level          int    `cbor:"7,keyasint,omitempty"`
	Initialized    bool   `cbor:"8,keyasint"`
	SavedAt        int64  `cbor:"9,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("session: cbor encoder: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		MaxMapPairs: 64,
	}.DecMode()
	if err != nil {
		panic("session: cbor decoder: " + err.Error())
	}
}

// EncodeSnapshot serializes s with deterministic CBOR.
func EncodeSnapshot(s Snapshot, savedAt time.Time) ([]byte, error) {
	rec := mirrorRecord{
		Version:     mirrorFormatVersion,
		LoggedIn:    s.LoggedIn,
		AccessToken: s.AccessToken,
		Initialized: s.Initialized,
		SavedAt:     savedAt.Unix(),
	}
	if s.Claims != nil {
		rec.HasClaims = true
		rec.EmployeeNumber = s.Claims.EmployeeNumber
		rec.Department = s.Claims.Department
		rec.Level = int(s.Claims.Level)
	}
	out, err := encMode.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("session: encode mirror: %w", err)
	}
	return out, nil
}

// DecodeSnapshot parses a record produced by EncodeSnapshot and checks it
// against the Snapshot invariants.
func DecodeSnapshot(data []byte) (Snapshot, time.Time, error) {
	var rec mirrorRecord
	if err := decMode.Unmarshal(data, &rec); err != nil {
		return Snapshot{}, time.Time{}, fmt.Errorf("%w: %v", ErrMirrorCorrupt, err)
	}
	if rec.Version != mirrorFormatVersion {
		return Snapshot{}, time.Time{}, fmt.Errorf("%w: %d", ErrMirrorVersion, rec.Version)
	}
	if rec.LoggedIn && rec.AccessToken == "" {
		return Snapshot{}, time.Time{}, fmt.Errorf("%w: logged in without token", ErrMirrorCorrupt)
	}
	if rec.HasClaims != (rec.AccessToken != "") {
		return Snapshot{}, time.Time{}, fmt.Errorf("%w: claims without token", ErrMirrorCorrupt)
	}

	s := Snapshot{
		LoggedIn:    rec.LoggedIn,
		AccessToken: rec.AccessToken,
		Initialized: rec.Initialized,
	}
	if rec.HasClaims {
		s.Claims = &jwt.Claims{
			EmployeeNumber: rec.EmployeeNumber,
			Department:     rec.Department,
			Level:          jwt.Level(rec.Level),
		}
	}
	return s, time.Unix(rec.SavedAt, 0).UTC(), nil
}

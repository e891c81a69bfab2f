package models

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

// JsonNullString wraps sql.NullString with JSON null support.
type JsonNullString struct {
	sql.NullString
}

// NewNullString returns a valid JsonNullString, or an invalid one for the empty string.
func NewNullString(s string) JsonNullString {
	return JsonNullString{NullString: sql.NullString{String: s, Valid: s != ""}}
}

// MarshalJSON implements json.Marshaler.
func (jns JsonNullString) MarshalJSON() ([]byte, error) {
	if !jns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(jns.String)
}

// UnmarshalJSON implements json.Unmarshaler.
func (jns *JsonNullString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		jns.String, jns.Valid = "", false
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		jns.String, jns.Valid = "", false
		return fmt.Errorf("JsonNullString: expected JSON string or null, got '%s': %w", string(data), err)
	}
	jns.String, jns.Valid = s, true
	return nil
}

// JsonNullTime wraps sql.NullTime with JSON null support.
type JsonNullTime struct {
	sql.NullTime
}

// NullTimeOf returns a valid JsonNullTime holding t.
func NullTimeOf(t time.Time) JsonNullTime {
	return JsonNullTime{NullTime: sql.NullTime{Time: t, Valid: true}}
}

// MarshalJSON implements json.Marshaler.
func (jnt JsonNullTime) MarshalJSON() ([]byte, error) {
	if !jnt.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(jnt.Time)
}

// UnmarshalJSON implements json.Unmarshaler.
func (jnt *JsonNullTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		jnt.Time, jnt.Valid = time.Time{}, false
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		jnt.Time, jnt.Valid = time.Time{}, false
		return fmt.Errorf("JsonNullTime: expected RFC3339 time or null, got '%s': %w", string(data), err)
	}
	jnt.Time, jnt.Valid = t, true
	return nil
}

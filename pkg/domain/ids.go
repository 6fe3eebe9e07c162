// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "bankguard/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a UserID where an AccountID is expected.
type (
	UserID    uuid.UUID
	AccountID uuid.UUID
	DeviceID  uuid.UUID
	CodeID    uuid.UUID
	EventID   uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseAccountID(s string) (AccountID, error) {
	id, err := parseUUID(s, "account ID")
	return AccountID(id), err
}

func ParseDeviceID(s string) (DeviceID, error) {
	id, err := parseUUID(s, "device ID")
	return DeviceID(id), err
}

func ParseCodeID(s string) (CodeID, error) {
	id, err := parseUUID(s, "code ID")
	return CodeID(id), err
}

func ParseEventID(s string) (EventID, error) {
	id, err := parseUUID(s, "event ID")
	return EventID(id), err
}

// New functions - generate fresh identifiers.

func NewUserID() UserID       { return UserID(uuid.New()) }
func NewAccountID() AccountID { return AccountID(uuid.New()) }
func NewDeviceID() DeviceID   { return DeviceID(uuid.New()) }
func NewCodeID() CodeID       { return CodeID(uuid.New()) }
func NewEventID() EventID     { return EventID(uuid.New()) }

// String methods - for logging and debugging.

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id DeviceID) String() string  { return uuid.UUID(id).String() }
func (id CodeID) String() string    { return uuid.UUID(id).String() }
func (id EventID) String() string   { return uuid.UUID(id).String() }

// IsNil reports whether the identifier is the zero UUID.

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DeviceID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CodeID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// Text marshalling - IDs travel as canonical UUID strings in JSON and logs.

func (id UserID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id AccountID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id DeviceID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id CodeID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id EventID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *AccountID) UnmarshalText(b []byte) error {
	parsed, err := ParseAccountID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DeviceID) UnmarshalText(b []byte) error {
	parsed, err := ParseDeviceID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CodeID) UnmarshalText(b []byte) error {
	parsed, err := ParseCodeID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *EventID) UnmarshalText(b []byte) error {
	parsed, err := ParseEventID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	return id, nil
}

package vcs

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies commit and staging timestamps.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator supplies commit IDs.
type IDGenerator interface {
	New() string
}

// UUIDGenerator issues version 7 UUIDs, which sort by creation time.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.Must(uuid.NewV7()).String() }

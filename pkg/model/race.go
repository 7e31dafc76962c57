package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

type RaceStatus string

const (
	RaceStatusProcessing RaceStatus = "PROCESSING"
	RaceStatusReady      RaceStatus = "READY"
	RaceStatusFailed     RaceStatus = "FAILED"
)

// Race is one uploaded capture with its processing state.
type Race struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Status      RaceStatus `json:"status"`
	RawDataKey  string     `json:"-"`
	LapCount    int        `json:"lap_count"`
	RecordStamp time.Time  `json:"record_stamp"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Lap is the stored metadata of one processed lap of a race.
type Lap struct {
	ID        int       `json:"id"`
	RaceID    uuid.UUID `json:"race_id"`
	LapNumber int       `json:"lap_number"`
	LapTime   float64   `json:"lap_time"`
	DataKey   string    `json:"-"`
}

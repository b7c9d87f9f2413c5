package models

import "time"

type ClockInStatus string

const (
	ClockInStatusActive    ClockInStatus = "active"
	ClockInStatusCompleted ClockInStatus = "completed"
)

type GeoLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

type ClockIn struct {
	ID           string        `json:"_id"`
	Technician   string        `json:"technician,omitempty"`
	Location     GeoLocation   `json:"location"`
	Notes        string        `json:"notes,omitempty"`
	Image        string        `json:"image,omitempty"`
	Status       ClockInStatus `json:"status"`
	ClockInTime  time.Time     `json:"clockInTime"`
	ClockOutTime *time.Time    `json:"clockOutTime,omitempty"`
}

// Duration is the shift length, measured up to now for active shifts.
func (c ClockIn) Duration(now time.Time) time.Duration {
	end := now
	if c.ClockOutTime != nil {
		end = *c.ClockOutTime
	}
	if end.Before(c.ClockInTime) {
		return 0
	}
	return end.Sub(c.ClockInTime)
}

type Elevator struct {
	ID              string     `json:"_id"`
	Name            string     `json:"name,omitempty"`
	SerialNumber    string     `json:"serialNumber,omitempty"`
	Model           string     `json:"model,omitempty"`
	Building        string     `json:"building,omitempty"`
	Location        string     `json:"location,omitempty"`
	Status          string     `json:"status,omitempty"`
	LastMaintenance *time.Time `json:"lastMaintenance,omitempty"`
	NextMaintenance *time.Time `json:"nextMaintenance,omitempty"`
}

package domain

import (
	"errors"
	"time"
)

var ErrMachineNotFound = errors.New("machine not found")

// Machine is a reverse-vending machine deployed at a physical location.
// Deposits may only reference machines that are active at submission time;
// deactivating a machine leaves its historical deposits untouched.
type Machine struct {
	ID              string     `json:"id"`
	MachineID       string     `json:"machine_id"`
	Location        string     `json:"location"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	Active          bool       `json:"is_active"`
	LastMaintenance *time.Time `json:"last_maintenance,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

package dto

import "time"

// CreateDCARequest payload.
type CreateDCARequest struct {
	Name   string  `json:"name"`
	Region *string `json:"region"`
}

// DCAResponse is the public agency profile.
type DCAResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Region    *string   `json:"region"`
	CreatedAt time.Time `json:"created_at"`
}

// DCALoadResponse reports an agency's active workload.
type DCALoadResponse struct {
	DCAResponse
	ActiveCases int `json:"active_cases"`
}

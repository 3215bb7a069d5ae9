package model

import "time"

// Project is a grouping container for related tasks.
type Project struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	OwnerID     int64     `json:"owner_id" db:"owner_id"`
	Budget      float64   `json:"budget" db:"budget"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

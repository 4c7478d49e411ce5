package models

import "time"

// Person is a single immutable row in the analytical store. The engine only
// ever reads these; ingestion owns the writes.
type Person struct {
	ID        string    `json:"id" ch:"id"`
	MasterID  string    `json:"master_id" ch:"master_id"`
	Mobile    string    `json:"mobile" ch:"mobile"`
	Name      string    `json:"name" ch:"name"`
	FName     string    `json:"fname" ch:"fname"`
	Address   string    `json:"address" ch:"address"`
	Alt       string    `json:"alt" ch:"alt"`
	Circle    string    `json:"circle" ch:"circle"`
	Email     string    `json:"email" ch:"email"`
	CreatedAt time.Time `json:"created_at" ch:"created_at"`
	UpdatedAt time.Time `json:"updated_at" ch:"updated_at"`
}

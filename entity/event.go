package entity

import "time"

// Event is owned by the external event CRUD; the coupon engine only needs to know it exists.
type Event struct {
	ID       string    `json:"id" bson:"id"`
	Title    string    `json:"title" bson:"title"`
	StartsAt time.Time `json:"starts_at" bson:"starts_at"`
}

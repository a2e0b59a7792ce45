package entity

import "time"

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationActive    RegistrationStatus = "active"
	RegistrationCompleted RegistrationStatus = "completed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationActive, RegistrationCompleted, RegistrationCancelled:
		return true
	}
	return false
}

// Registration links a customer to an event; unique per (CustomerID, EventID).
type Registration struct {
	ID           string             `json:"id" bson:"id"`
	CustomerID   string             `json:"customer_id" bson:"customer_id"`
	CustomerName string             `json:"customer_name,omitempty" bson:"customer_name"`
	EventID      string             `json:"event_id" bson:"event_id"`
	ClaimData    string             `json:"claim_data" bson:"claim_data"`
	Status       RegistrationStatus `json:"status" bson:"status"`
	Answers      []Answer           `json:"answers,omitempty" bson:"answers"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// Answer is one questionnaire answer attached to a registration.
type Answer struct {
	QuestionID int64  `json:"question_id" bson:"question_id" validate:"required,min=1"`
	Value      string `json:"answer_value" bson:"answer_value"`
}

package tables

import "time"

type Status string

const (
	StatusAvailable Status = "available"
	StatusOccupied  Status = "occupied"
	StatusReserved  Status = "reserved"
	StatusCleaning  Status = "cleaning"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusReserved, StatusCleaning:
		return true
	}
	return false
}

type Section string

const (
	SectionIndoor  Section = "Indoor"
	SectionOutdoor Section = "Outdoor"
	SectionBar     Section = "Bar"
)

func (s Section) Valid() bool {
	return s == SectionIndoor || s == SectionOutdoor || s == SectionBar
}

// Table is the persisted shape of a dining table.
type Table struct {
	ID             string    `json:"id" dynamodbav:"table_id"` // PK
	TableNumber    string    `json:"tableNumber" dynamodbav:"table_number"`
	Capacity       int       `json:"capacity" dynamodbav:"capacity"`
	Section        Section   `json:"section" dynamodbav:"section"`
	Status         Status    `json:"status" dynamodbav:"status"`
	CurrentOrderID string    `json:"currentOrderId,omitempty" dynamodbav:"current_order_id,omitempty"`
	CreatedAt      time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

type CreateInput struct {
	TableNumber string
	Capacity    int
	Section     Section
	Status      Status
}

// UpdateInput changes descriptive fields; nil fields are kept.
type UpdateInput struct {
	TableNumber *string
	Capacity    *int
	Section     *Section
}

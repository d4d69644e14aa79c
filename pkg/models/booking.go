package models

import "time"

// BookingStatus is the lifecycle state of a booking request.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingRejected  BookingStatus = "rejected"
	BookingCompleted BookingStatus = "completed"
)

// BookingRange is the rental period of a booking.
type BookingRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BookingRequest is a renter's request to book an item for a range of days.
type BookingRequest struct {
	ID          string        `json:"id"`
	ItemID      string        `json:"item_id"`
	ItemTitle   string        `json:"item_title"`
	RenterID    string        `json:"renter_id"`
	Start       time.Time     `json:"start"`
	End         time.Time     `json:"end"`
	Days        int           `json:"days"`
	DailyRate   float64       `json:"daily_rate"`
	TotalAmount float64       `json:"total_amount"`
	Status      BookingStatus `json:"status"`
	Paid        bool          `json:"paid"`
	AmountPaid  float64       `json:"amount_paid"`
	Message     string        `json:"message,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

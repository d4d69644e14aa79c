package models

import "time"

// Favorite is an item saved by a user.
type Favorite struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Price   float64   `json:"price"`
	Image   string    `json:"image"`
	AddedAt time.Time `json:"added_at"`
}

// Conversation is a chat between a user and an item's owner.
type Conversation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	OtherName   string    `json:"other_name"`
	ItemID      string    `json:"item_id"`
	ItemTitle   string    `json:"item_title"`
	LastMessage *Message  `json:"last_message,omitempty"`
	UnreadCount int       `json:"unread_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is a single chat line.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"message"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"timestamp"`
}

// Notification is an entry in a user's notification bell.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the persisted account profile of a user.
type Profile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	City        string    `json:"city,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"review_count"`
	ItemsListed int       `json:"items_listed"`
	ItemsRented int       `json:"items_rented"`
	JoinedDate  time.Time `json:"joined_date"`
}

// Coordinates is a position reported by the client platform.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
	BidStatusCanceled BidStatus = "canceled"
)

// Bid is an employee's offer to perform a task for a price. At most one bid
// per task may be accepted; accepting one rejects the rest, and canceling the
// accepted one puts the rejected siblings back to pending.
type Bid struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID uuid.UUID `gorm:"type:uuid;index;not null" json:"task_id"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	UserName     string  `json:"user_name"`
	Amount       float64 `gorm:"not null" json:"amount"`
	Message      string  `gorm:"type:text;not null" json:"message"`
	DeliveryTime string  `gorm:"default:'Not specified'" json:"delivery_time"`
	PhoneNumber  string  `gorm:"type:varchar(30)" json:"phone_number"`

	Status BidStatus `gorm:"type:varchar(20);default:pending;index" json:"status"`

	CanceledAt         *time.Time `json:"canceled_at"`
	CancellationReason string     `json:"cancellation_reason"`
	RejectedAt         *time.Time `json:"rejected_at"`
	RejectionReason    string     `json:"rejection_reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Task *Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}

func (b *Bid) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

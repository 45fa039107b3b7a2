package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCanceled   TaskStatus = "canceled"
)

// Task is a unit of work posted by an employer. Status is the governing
// field: open -> in-progress -> completed, with canceled reachable from any
// non-completed state. The only way back from in-progress to open is the
// accepted bid being canceled by its bidder.
type Task struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`

	Title       string  `gorm:"not null" json:"title"`
	Description string  `gorm:"type:text;not null" json:"description"`
	Category    string  `gorm:"not null" json:"category"`
	Location    string  `gorm:"not null" json:"location"`
	Budget      float64 `gorm:"not null" json:"budget"`

	Status TaskStatus `gorm:"type:varchar(20);default:open;index" json:"status"`

	AssignedTo  *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to"`
	AssignedAt  *time.Time `json:"assigned_at"`
	CanceledAt  *time.Time `json:"canceled_at"`
	CompletedAt *time.Time `json:"completed_at"`

	EmployerConfirmed bool `gorm:"default:false" json:"employer_confirmed"`
	EmployeeConfirmed bool `gorm:"default:false" json:"employee_confirmed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Bids  []Bid `gorm:"foreignKey:TaskID" json:"bids,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return
}

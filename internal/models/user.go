package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleEmployer Role = "employer"
	RoleEmployee Role = "employee"
)

// ValidRole reports whether r is one of the publicly selectable roles.
func ValidRole(r string) bool {
	return r == string(RoleEmployer) || r == string(RoleEmployee)
}

// User holds an account plus its accumulated rating state. Role stays empty
// until the user picks one after signup.
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone string    `gorm:"type:varchar(30)" json:"phone"`

	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"type:varchar(20);index" json:"role"`

	TotalRatingPoints int64   `gorm:"default:0" json:"total_rating_points"`
	TotalRatingsCount int64   `gorm:"default:0" json:"total_ratings_count"`
	AverageRating     float64 `gorm:"default:0" json:"average_rating"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Ratings []Rating `gorm:"foreignKey:UserID;references:ID" json:"ratings,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

// Rating is one review left for a user (UserID) by the counterparty of a task.
type Rating struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	TaskID  uuid.UUID `gorm:"type:uuid;index" json:"task_id"`
	RaterID uuid.UUID `gorm:"type:uuid" json:"rater_id"`

	RaterRole Role   `gorm:"type:varchar(20)" json:"rater_role"`
	Rating    int    `gorm:"not null" json:"rating"` // 1-5
	Review    string `gorm:"type:text" json:"review"`

	CreatedAt time.Time `json:"created_at"`
}

func (r *Rating) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

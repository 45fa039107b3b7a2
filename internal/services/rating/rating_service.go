package rating

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/worklyhq/workly-backend/internal/models"
)

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// RateUser appends a rating record to the rated user, bumps their running
// totals and recomputes the stored average. It must be called within a DB
// transaction so the rating lands (or not) together with the rest of the
// completion write.
func (s *Service) RateUser(tx *gorm.DB, ratedUserID, taskID, raterID uuid.UUID, raterRole models.Role, score int, review string) error {
	if score < 1 || score > 5 {
		return errors.New("rating must be between 1 and 5")
	}

	record := models.Rating{
		ID:        uuid.New(),
		UserID:    ratedUserID,
		TaskID:    taskID,
		RaterID:   raterID,
		RaterRole: raterRole,
		Rating:    score,
		Review:    review,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return err
	}

	result := tx.Model(&models.User{}).
		Where("id = ?", ratedUserID).
		Updates(map[string]interface{}{
			"total_rating_points": gorm.Expr("total_rating_points + ?", score),
			"total_ratings_count": gorm.Expr("total_ratings_count + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("rated user not found: %s", ratedUserID)
	}

	// Recompute from the fresh totals rather than trusting in-memory state.
	var u models.User
	if err := tx.First(&u, "id = ?", ratedUserID).Error; err != nil {
		return err
	}
	avg := float64(u.TotalRatingPoints) / float64(u.TotalRatingsCount)

	return tx.Model(&models.User{}).
		Where("id = ?", ratedUserID).
		Update("average_rating", avg).Error
}

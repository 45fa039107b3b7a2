package rating_test

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/worklyhq/workly-backend/internal/models"
	"github.com/worklyhq/workly-backend/internal/services/rating"
)

func setup(t *testing.T) (*gorm.DB, *rating.Service) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.User{}, &models.Rating{}))
	return gdb, rating.NewService(gdb)
}

func newUser(t *testing.T, gdb *gorm.DB) models.User {
	t.Helper()
	u := models.User{Name: "u", Email: uuid.NewString() + "@example.com", Password: "x"}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func TestRateUserRecomputesAverage(t *testing.T) {
	gdb, svc := setup(t)
	ratee := newUser(t, gdb)
	rater := newUser(t, gdb)
	taskID := uuid.New()

	scores := []int{5, 3, 4}
	for _, s := range scores {
		err := gdb.Transaction(func(tx *gorm.DB) error {
			return svc.RateUser(tx, ratee.ID, taskID, rater.ID, models.RoleEmployee, s, "review")
		})
		require.NoError(t, err)
	}

	var fresh models.User
	require.NoError(t, gdb.First(&fresh, "id = ?", ratee.ID).Error)
	assert.EqualValues(t, 12, fresh.TotalRatingPoints)
	assert.EqualValues(t, 3, fresh.TotalRatingsCount)
	assert.InDelta(t, 4.0, fresh.AverageRating, 1e-9)

	var records []models.Rating
	require.NoError(t, gdb.Where("user_id = ?", ratee.ID).Find(&records).Error)
	assert.Len(t, records, 3)
}

func TestRateUserRejectsOutOfRangeScore(t *testing.T) {
	gdb, svc := setup(t)
	ratee := newUser(t, gdb)

	for _, s := range []int{0, 6, -1} {
		err := gdb.Transaction(func(tx *gorm.DB) error {
			return svc.RateUser(tx, ratee.ID, uuid.New(), uuid.New(), models.RoleEmployer, s, "")
		})
		assert.Error(t, err, "score %d should be rejected", s)
	}

	var count int64
	require.NoError(t, gdb.Model(&models.Rating{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestRateUserUnknownRateeRollsBack(t *testing.T) {
	gdb, svc := setup(t)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return svc.RateUser(tx, uuid.New(), uuid.New(), uuid.New(), models.RoleEmployer, 5, "")
	})
	require.Error(t, err)

	// the rating row written before the missing-user check must not survive
	var count int64
	require.NoError(t, gdb.Model(&models.Rating{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

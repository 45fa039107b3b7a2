package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/worklyhq/workly-backend/internal/models"
)

type ProfileHandler struct {
	DB *gorm.DB
}

func NewProfileHandler(gdb *gorm.DB) *ProfileHandler {
	return &ProfileHandler{DB: gdb}
}

// List returns the ids of all registered users.
func (h *ProfileHandler) List(c *fiber.Ctx) error {
	var users []models.User
	if err := h.DB.Select("id").Find(&users).Error; err != nil {
		return fail(c, err)
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID.String())
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"userIds": ids},
	})
}

// Get returns a public profile: the user (password never serialized), their
// received ratings and how many tasks they completed on either side.
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var user models.User
	if err := h.DB.Preload("Ratings").First(&user, "id = ?", userID).Error; err != nil {
		return fail(c, errNotFound("User not found"))
	}

	var completed int64
	if err := h.DB.Model(&models.Task{}).
		Where("status = ? AND (owner_id = ? OR assigned_to = ?)",
			models.TaskStatusCompleted, userID, userID).
		Count(&completed).Error; err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":           user,
			"completedTasks": completed,
		},
	})
}

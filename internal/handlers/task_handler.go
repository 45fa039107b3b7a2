package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/worklyhq/workly-backend/internal/db"
	"github.com/worklyhq/workly-backend/internal/models"
	"github.com/worklyhq/workly-backend/internal/realtime"
	"github.com/worklyhq/workly-backend/internal/services/rating"
)

// TaskHandler owns the task lifecycle: creation, listing, cascading cancel
// and delete, and the mutual-confirmation completion protocol.
type TaskHandler struct {
	DB       *gorm.DB
	Notifier *realtime.Notifier
	Rating   *rating.Service
}

func NewTaskHandler(gdb *gorm.DB, notifier *realtime.Notifier, ratingSvc *rating.Service) *TaskHandler {
	return &TaskHandler{DB: gdb, Notifier: notifier, Rating: ratingSvc}
}

type CreateTaskReq struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Budget      float64 `json:"budget"`
	Location    string  `json:"location"`
}

// Create posts a new task with status open.
func (h *TaskHandler) Create(c *fiber.Ctx) error {
	ownerID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req CreateTaskReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errValidation("invalid body"))
	}

	errs := FieldErrors{}
	if strings.TrimSpace(req.Title) == "" {
		errs.Add("title", "Title is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		errs.Add("description", "Description is required")
	}
	if strings.TrimSpace(req.Category) == "" {
		errs.Add("category", "Category is required")
	}
	if strings.TrimSpace(req.Location) == "" {
		errs.Add("location", "Location is required")
	}
	if req.Budget <= 0 {
		errs.Add("budget", "Budget must be a positive number")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	task := models.Task{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Location:    strings.TrimSpace(req.Location),
		Budget:      req.Budget,
		Status:      models.TaskStatusOpen,
	}
	if err := h.DB.Create(&task).Error; err != nil {
		return fail(c, err)
	}

	h.Notifier.Emit(realtime.EventTasksChanged, task.ID.String())

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Task posted",
		"data":    task,
	})
}

// List returns all open tasks with their bids.
func (h *TaskHandler) List(c *fiber.Ctx) error {
	var tasks []models.Task
	if err := h.DB.
		Preload("Bids").
		Where("status = ?", models.TaskStatusOpen).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"tasks": tasks},
	})
}

// Get returns one task with its poster and bids.
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var task models.Task
	if err := h.DB.
		Preload("Owner").
		Preload("Bids").
		First(&task, "id = ?", taskID).Error; err != nil {
		return fail(c, errNotFound("Task not found"))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

// Dashboard returns the per-role overview: an employer sees their own tasks
// with status counts, an employee sees their bids, the tasks behind them and
// the open tasks still up for bidding.
func (h *TaskHandler) Dashboard(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	role := strings.ToLower(c.Query("role"))
	switch role {
	case string(models.RoleEmployer):
		var tasks []models.Task
		if err := h.DB.Where("owner_id = ?", userID).Order("created_at DESC").Find(&tasks).Error; err != nil {
			return fail(c, err)
		}

		counts := fiber.Map{"total": len(tasks), "open": 0, "inProgress": 0, "completed": 0, "canceled": 0}
		for _, t := range tasks {
			switch t.Status {
			case models.TaskStatusOpen:
				counts["open"] = counts["open"].(int) + 1
			case models.TaskStatusInProgress:
				counts["inProgress"] = counts["inProgress"].(int) + 1
			case models.TaskStatusCompleted:
				counts["completed"] = counts["completed"].(int) + 1
			case models.TaskStatusCanceled:
				counts["canceled"] = counts["canceled"].(int) + 1
			}
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data":    fiber.Map{"counts": counts, "tasks": tasks, "bids": []models.Bid{}},
		})

	case string(models.RoleEmployee):
		var bids []models.Bid
		if err := h.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&bids).Error; err != nil {
			return fail(c, err)
		}

		taskIDs := make([]interface{}, 0, len(bids))
		for _, b := range bids {
			taskIDs = append(taskIDs, b.TaskID)
		}

		var bidTasks []models.Task
		if len(taskIDs) > 0 {
			if err := h.DB.Where("id IN ?", taskIDs).Find(&bidTasks).Error; err != nil {
				return fail(c, err)
			}
		}

		openQuery := h.DB.Where("status = ?", models.TaskStatusOpen)
		if len(taskIDs) > 0 {
			openQuery = openQuery.Where("id NOT IN ?", taskIDs)
		}
		var openTasks []models.Task
		if err := openQuery.Find(&openTasks).Error; err != nil {
			return fail(c, err)
		}

		counts := fiber.Map{"open": len(openTasks), "inProgress": 0, "completed": 0, "canceled": 0}
		for _, t := range bidTasks {
			switch t.Status {
			case models.TaskStatusInProgress:
				counts["inProgress"] = counts["inProgress"].(int) + 1
			case models.TaskStatusCompleted:
				counts["completed"] = counts["completed"].(int) + 1
			case models.TaskStatusCanceled:
				counts["canceled"] = counts["canceled"].(int) + 1
			}
		}
		counts["total"] = len(bidTasks) + len(openTasks)

		return c.JSON(fiber.Map{
			"success": true,
			"data":    fiber.Map{"counts": counts, "tasks": bidTasks, "bids": bids},
		})

	default:
		return fail(c, errValidation("Invalid role"))
	}
}

// Cancel terminally cancels a task and rejects every bid on it that is not
// already rejected. Completed tasks cannot be canceled.
func (h *TaskHandler) Cancel(c *fiber.Ctx) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return err
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var task models.Task
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := db.LockForUpdate(tx).First(&task, "id = ?", taskID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errNotFound("Task does not exist")
			}
			return err
		}

		if task.OwnerID != actorID {
			return errForbidden("Only task owner can cancel")
		}
		if task.Status == models.TaskStatusCompleted {
			return errConflict("Completed tasks cannot be canceled")
		}

		now := time.Now()
		if err := tx.Model(&task).Updates(map[string]interface{}{
			"status":      models.TaskStatusCanceled,
			"canceled_at": now,
		}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Bid{}).
			Where("task_id = ? AND status <> ?", taskID, models.BidStatusRejected).
			Updates(map[string]interface{}{
				"status":           models.BidStatusRejected,
				"rejected_at":      now,
				"rejection_reason": "Task canceled by owner",
			}).Error; err != nil {
			return err
		}

		return tx.First(&task, "id = ?", taskID).Error
	})
	if txErr != nil {
		return fail(c, txErr)
	}

	h.Notifier.Emit(realtime.EventTasksChanged, taskID.String())

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Task canceled and bids rejected",
		"data":    task,
	})
}

// Delete hard-deletes an open or canceled task together with all its bids.
func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return err
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := db.LockForUpdate(tx).First(&task, "id = ?", taskID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errNotFound("Task not found")
			}
			return err
		}

		if task.OwnerID != actorID {
			return errForbidden("Only task owner can delete")
		}
		if task.Status == models.TaskStatusInProgress || task.Status == models.TaskStatusCompleted {
			return errConflict("Cannot delete " + string(task.Status) + " tasks")
		}

		if err := tx.Where("task_id = ?", taskID).Delete(&models.Bid{}).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
	if txErr != nil {
		return fail(c, txErr)
	}

	h.Notifier.Emit(realtime.EventTasksChanged, taskID.String())

	return c.JSON(fiber.Map{
		"success":       true,
		"message":       "Task and all associated bids deleted",
		"deletedTaskId": taskID,
	})
}

type CompleteTaskReq struct {
	Role   string `json:"role"`
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// Complete records one party's completion confirmation on an in-progress
// task, optionally rating the counterparty, and closes the task once both
// confirmations are in. The both-confirmed check runs on a fresh read so
// either party may confirm in either order.
func (h *TaskHandler) Complete(c *fiber.Ctx) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return err
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req CompleteTaskReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errValidation("invalid body"))
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if !models.ValidRole(string(role)) {
		return fail(c, errValidation("Invalid role"))
	}
	if req.Rating != 0 && (req.Rating < 1 || req.Rating > 5) {
		return fail(c, errValidation("Rating must be between 1 and 5"))
	}

	var task models.Task
	ratingSubmitted := false

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := db.LockForUpdate(tx).First(&task, "id = ?", taskID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errNotFound("Task not found or not eligible for completion")
			}
			return err
		}
		if task.Status != models.TaskStatusInProgress {
			return errNotFound("Task not found or not eligible for completion")
		}

		switch role {
		case models.RoleEmployer:
			if task.OwnerID != actorID {
				return errForbidden("Not authorized to confirm completion")
			}
		case models.RoleEmployee:
			if task.AssignedTo == nil || *task.AssignedTo != actorID {
				return errForbidden("Not authorized to confirm completion")
			}
		}

		// Explicit state check keeps the confirm idempotent.
		flagColumn := "employer_confirmed"
		alreadySet := task.EmployerConfirmed
		if role == models.RoleEmployee {
			flagColumn = "employee_confirmed"
			alreadySet = task.EmployeeConfirmed
		}
		if !alreadySet {
			if err := tx.Model(&task).Update(flagColumn, true).Error; err != nil {
				return err
			}
		}

		if req.Rating > 0 {
			// employer rates the employee and vice versa
			ratedUserID := task.OwnerID
			if role == models.RoleEmployer {
				if task.AssignedTo == nil {
					return errConflict("Task has no assignee to rate")
				}
				ratedUserID = *task.AssignedTo
			}
			if err := h.Rating.RateUser(tx, ratedUserID, task.ID, actorID, role, req.Rating, req.Review); err != nil {
				return err
			}
			ratingSubmitted = true
		}

		// Re-read: the other party may already have confirmed.
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return err
		}
		if task.EmployerConfirmed && task.EmployeeConfirmed {
			now := time.Now()
			if err := tx.Model(&task).Updates(map[string]interface{}{
				"status":       models.TaskStatusCompleted,
				"completed_at": now,
			}).Error; err != nil {
				return err
			}
			task.Status = models.TaskStatusCompleted
			task.CompletedAt = &now
		}
		return nil
	})
	if txErr != nil {
		return fail(c, txErr)
	}

	h.Notifier.Emit(realtime.EventTasksChanged, taskID.String())

	return c.JSON(fiber.Map{
		"success":         true,
		"message":         "Confirmation recorded",
		"ratingSubmitted": ratingSubmitted,
		"data": fiber.Map{
			"taskId":            task.ID,
			"status":            task.Status,
			"employerConfirmed": task.EmployerConfirmed,
			"employeeConfirmed": task.EmployeeConfirmed,
			"completed":         task.Status == models.TaskStatusCompleted,
			"completedAt":       task.CompletedAt,
		},
	})
}

package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/worklyhq/workly-backend/internal/db"
	"github.com/worklyhq/workly-backend/internal/models"
	"github.com/worklyhq/workly-backend/internal/realtime"
)

// BidHandler owns the bid lifecycle: submit, accept (with sibling
// rejection), cancel (with the accepted-bid regression) and delete.
type BidHandler struct {
	DB       *gorm.DB
	Notifier *realtime.Notifier
}

func NewBidHandler(gdb *gorm.DB, notifier *realtime.Notifier) *BidHandler {
	return &BidHandler{DB: gdb, Notifier: notifier}
}

type SubmitBidReq struct {
	Amount       float64 `json:"amount"`
	Message      string  `json:"message"`
	DeliveryTime string  `json:"delivery_time"`
	PhoneNumber  string  `json:"phone_number"`
}

// Submit places a pending bid on an open task. A bidder may hold only one
// active (pending or accepted) bid per task.
func (h *BidHandler) Submit(c *fiber.Ctx) error {
	bidderID, err := currentUserID(c)
	if err != nil {
		return err
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var req SubmitBidReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errValidation("invalid body"))
	}

	errs := FieldErrors{}
	if req.Amount <= 0 {
		errs.Add("amount", "Amount must be a positive number")
	}
	if strings.TrimSpace(req.Message) == "" {
		errs.Add("message", "Message is required")
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		errs.Add("phone_number", "Phone number is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	deliveryTime := strings.TrimSpace(req.DeliveryTime)
	if deliveryTime == "" {
		deliveryTime = "Not specified"
	}

	var bid models.Bid
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := db.LockForUpdate(tx).First(&task, "id = ?", taskID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errNotFound("Task not found")
			}
			return err
		}
		if task.Status != models.TaskStatusOpen {
			return errConflict("Bidding is closed for this task")
		}

		var active int64
		if err := tx.Model(&models.Bid{}).
			Where("task_id = ? AND user_id = ? AND status IN ?",
				taskID, bidderID, []models.BidStatus{models.BidStatusPending, models.BidStatusAccepted}).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return errConflict("You already have an active bid on this task")
		}

		var bidder models.User
		if err := tx.First(&bidder, "id = ?", bidderID).Error; err != nil {
			return errNotFound("Bidder not found")
		}

		bid = models.Bid{
			TaskID:       taskID,
			UserID:       bidderID,
			UserName:     bidder.Name,
			Amount:       req.Amount,
			Message:      strings.TrimSpace(req.Message),
			DeliveryTime: deliveryTime,
			PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
			Status:       models.BidStatusPending,
		}
		return tx.Create(&bid).Error
	})
	if txErr != nil {
		return fail(c, txErr)
	}

	h.Notifier.Emit(realtime.EventBidsChanged, taskID.String())

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Bid submitted",
		"data":    bid,
	})
}

// Accept picks the winning bid: the bid goes to accepted, the task to
// in-progress with the bidder assigned, and every pending sibling bid to
// rejected. All of it commits together; the task row lock serializes
// concurrent accepts, and the loser finds the task no longer open.
func (h *BidHandler) Accept(c *fiber.Ctx) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return err
	}
	taskID, err := parseIDParam(c, "taskId")
	if err != nil {
		return fail(c, err)
	}
	bidID, err := parseIDParam(c, "bidId")
	if err != nil {
		return fail(c, err)
	}

	var task models.Task
	var bid models.Bid

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := db.LockForUpdate(tx).First(&task, "id = ?", taskID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errNotFound("Task not found")
			}
			return err
		}
		if task.OwnerID != actorID {
			return errForbidden("Only the task owner can accept bids")
		}
		if task.Status != models.TaskStatusOpen {
			return errConflict("Task is no longer open")
		}

		if err := tx.First(&bid, "id = ? AND task_id = ?", bidID, taskID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errNotFound("Bid not found for this task")
			}
			return err
		}
		if bid.Status != models.BidStatusPending {
			return errConflict("Only pending bids can be accepted")
		}

		now := time.Now()
		if err := tx.Model(&bid).Update("status", models.BidStatusAccepted).Error; err != nil {
			return err
		}
		if err := tx.Model(&task).Updates(map[string]interface{}{
			"status":      models.TaskStatusInProgress,
			"assigned_to": bid.UserID,
			"assigned_at": now,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Bid{}).
			Where("task_id = ? AND id <> ? AND status = ?", taskID, bidID, models.BidStatusPending).
			Updates(map[string]interface{}{
				"status":           models.BidStatusRejected,
				"rejected_at":      now,
				"rejection_reason": "Another bid was accepted",
			}).Error; err != nil {
			return err
		}

		// return the authoritative post-commit state
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return err
		}
		return tx.First(&bid, "id = ?", bidID).Error
	})
	if txErr != nil {
		return fail(c, txErr)
	}

	h.Notifier.Emit(realtime.EventBidsChanged, taskID.String())

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Bid accepted",
		"data": fiber.Map{
			"taskId": taskID,
			"bidId":  bidID,
			"task":   task,
			"bid":    bid,
		},
	})
}

// Cancel lets a bidder withdraw their bid. Canceling the currently accepted
// bid undoes the acceptance for everyone: the task reopens with assignee and
// confirmation flags cleared, and siblings that were rejected by the accept
// go back to pending.
func (h *BidHandler) Cancel(c *fiber.Ctx) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return err
	}
	bidID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var bid models.Bid
	var task models.Task
	wasAccepted := false

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bid, "id = ?", bidID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errNotFound("Bid does not exist")
			}
			return err
		}
		if bid.UserID != actorID {
			return errForbidden("Only bid creator can cancel this bid")
		}

		// Lock the parent task to serialize against a concurrent accept,
		// then re-read the bid under that lock.
		haveTask := true
		if err := db.LockForUpdate(tx).First(&task, "id = ?", bid.TaskID).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			haveTask = false
		}
		if err := tx.First(&bid, "id = ?", bidID).Error; err != nil {
			return err
		}
		wasAccepted = bid.Status == models.BidStatusAccepted

		now := time.Now()
		if err := tx.Model(&bid).Updates(map[string]interface{}{
			"status":              models.BidStatusCanceled,
			"canceled_at":         now,
			"cancellation_reason": "Canceled by bidder",
		}).Error; err != nil {
			return err
		}

		if wasAccepted && haveTask {
			if err := tx.Model(&task).Updates(map[string]interface{}{
				"status":             models.TaskStatusOpen,
				"assigned_to":        nil,
				"assigned_at":        nil,
				"employer_confirmed": false,
				"employee_confirmed": false,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Bid{}).
				Where("task_id = ? AND id <> ? AND status = ?", bid.TaskID, bidID, models.BidStatusRejected).
				Updates(map[string]interface{}{
					"status":           models.BidStatusPending,
					"rejected_at":      nil,
					"rejection_reason": "",
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return fail(c, txErr)
	}

	h.Notifier.Emit(realtime.EventBidsChanged, bid.TaskID.String())

	msg := "Bid canceled"
	if wasAccepted {
		msg = "Bid canceled and task reopened"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": msg,
		"data": fiber.Map{
			"bidId":       bidID,
			"taskId":      bid.TaskID,
			"wasAccepted": wasAccepted,
		},
	})
}

// Delete hard-deletes a bid owned by the caller. Unlike Cancel it has no
// effect on the task, whatever the bid's status was.
func (h *BidHandler) Delete(c *fiber.Ctx) error {
	actorID, err := currentUserID(c)
	if err != nil {
		return err
	}
	bidID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var bid models.Bid
	if err := h.DB.First(&bid, "id = ? AND user_id = ?", bidID, actorID).Error; err != nil {
		return fail(c, errNotFound("Bid not found or not owned by user"))
	}

	if err := h.DB.Delete(&bid).Error; err != nil {
		return fail(c, err)
	}

	h.Notifier.Emit(realtime.EventBidsChanged, bid.TaskID.String())

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "Bid deleted",
		"deletedBidId": bidID,
	})
}

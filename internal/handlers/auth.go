package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/worklyhq/workly-backend/internal/models"
	"github.com/worklyhq/workly-backend/internal/realtime"
	"github.com/worklyhq/workly-backend/internal/utils"
)

type AuthHandler struct {
	DB        *gorm.DB
	Notifier  *realtime.Notifier
	JWTSecret string
	Expires   int
}

type RegisterReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func validationFail(c *fiber.Ctx, errs FieldErrors) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"error":   ErrKindValidation,
		"message": "Validation error",
		"errors":  errs,
	})
}

func (h *AuthHandler) sessionCookie(c *fiber.Ctx, token string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     "wk_token",
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

// Register creates an account with no role yet; the role is chosen once via
// SelectRole.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errValidation("invalid body"))
	}

	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)
	password := strings.TrimSpace(req.Password)

	errs := FieldErrors{}
	if name == "" {
		errs.Add("name", "Name is required")
	}
	if email == "" {
		errs.Add("email", "Email is required")
	} else if !strings.Contains(email, "@") {
		errs.Add("email", "Invalid email format")
	}
	if password == "" {
		errs.Add("password", "Password is required")
	} else if len(password) < 6 {
		errs.Add("password", "Password must be at least 6 characters")
	}
	if phone != "" && len(phone) < 8 {
		errs.Add("phone", "Invalid phone number")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	var existing models.User
	if err := h.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		errs := FieldErrors{}
		errs.Add("email", "Email is already registered")
		return validationFail(c, errs)
	} else if err != gorm.ErrRecordNotFound {
		return fail(c, err)
	}

	pw, err := utils.HashPassword(password)
	if err != nil {
		return fail(c, err)
	}

	u := models.User{
		Name:     name,
		Email:    email,
		Password: pw,
		Phone:    phone,
	}
	if err := h.DB.Create(&u).Error; err != nil {
		return fail(c, err)
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return fail(c, err)
	}
	h.sessionCookie(c, token, h.Expires*60)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registered",
		"data": fiber.Map{
			"user": fiber.Map{
				"id":    u.ID,
				"name":  u.Name,
				"email": u.Email,
				"phone": u.Phone,
				"role":  u.Role,
			},
		},
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errValidation("invalid body"))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)

	errs := FieldErrors{}
	if email == "" {
		errs.Add("email", "Email is required")
	}
	if password == "" {
		errs.Add("password", "Password is required")
	}
	if len(errs) > 0 {
		return validationFail(c, errs)
	}

	var u models.User
	if err := h.DB.Where("email = ?", email).First(&u).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Wrong email or password",
		})
	}

	if !utils.CheckPassword(u.Password, password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Wrong email or password",
		})
	}

	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return fail(c, err)
	}
	h.sessionCookie(c, token, h.Expires*60)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged in",
		"data": fiber.Map{
			"user": fiber.Map{
				"id":    u.ID,
				"name":  u.Name,
				"email": u.Email,
				"role":  u.Role,
			},
		},
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.sessionCookie(c, "", -1)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

type SelectRoleReq struct {
	Role string `json:"role"`
}

// SelectRole sets the caller's role exactly once. Re-selecting the already
// chosen role is an idempotent success; switching roles is rejected.
func (h *AuthHandler) SelectRole(c *fiber.Ctx) error {
	uid := c.Locals("userId").(string)

	var req SelectRoleReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errValidation("invalid body"))
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !models.ValidRole(role) {
		return fail(c, errValidation("Invalid role"))
	}

	var u models.User
	if err := h.DB.First(&u, "id = ?", uid).Error; err != nil {
		return fail(c, errNotFound("User not found"))
	}

	switch {
	case u.Role == models.Role(role):
		// already set, nothing to do
	case u.Role != "":
		return fail(c, errConflict("Role has already been selected"))
	default:
		if err := h.DB.Model(&u).Update("role", role).Error; err != nil {
			return fail(c, err)
		}
		u.Role = models.Role(role)
	}

	// Re-issue the session so role guards see the new claim.
	token, err := utils.SignJWT(h.JWTSecret, u.ID.String(), string(u.Role), h.Expires)
	if err != nil {
		return fail(c, err)
	}
	h.sessionCookie(c, token, h.Expires*60)

	h.Notifier.Emit(realtime.EventUsersChanged, "")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Role updated",
		"data": fiber.Map{
			"userId": u.ID,
			"role":   u.Role,
		},
	})
}

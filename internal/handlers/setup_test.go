package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/worklyhq/workly-backend/internal/handlers"
	"github.com/worklyhq/workly-backend/internal/middleware"
	"github.com/worklyhq/workly-backend/internal/models"
	"github.com/worklyhq/workly-backend/internal/realtime"
	"github.com/worklyhq/workly-backend/internal/services/rating"
	"github.com/worklyhq/workly-backend/internal/utils"
)

const testSecret = "test-secret"

// newTestApp wires the real route table against an in-memory database. No
// Redis: the notifier falls back to the local hub.
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&models.User{}, &models.Rating{}, &models.Task{}, &models.Bid{},
	))

	hub := realtime.NewHub()
	go hub.Run()
	notifier := realtime.NewNotifier(hub, nil)

	authH := &handlers.AuthHandler{DB: gdb, Notifier: notifier, JWTSecret: testSecret, Expires: 60}
	taskH := handlers.NewTaskHandler(gdb, notifier, rating.NewService(gdb))
	bidH := handlers.NewBidHandler(gdb, notifier)
	profileH := handlers.NewProfileHandler(gdb)

	app := fiber.New()
	api := app.Group("/api")

	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/tasks", taskH.List)
	api.Get("/tasks/:id", taskH.Get)
	api.Get("/profiles", profileH.List)
	api.Get("/profiles/:id", profileH.Get)

	protected := api.Group("/",
		middleware.JWTFromCookie(testSecret),
		middleware.AttachJWTLocals(),
	)
	protected.Patch("/role", authH.SelectRole)
	protected.Get("/dashboard", taskH.Dashboard)
	protected.Post("/tasks", middleware.RequireRoles(string(models.RoleEmployer)), taskH.Create)
	protected.Patch("/tasks/:id/cancel", taskH.Cancel)
	protected.Delete("/tasks/:id", taskH.Delete)
	protected.Patch("/tasks/:id/complete", taskH.Complete)
	protected.Post("/tasks/:id/bids", middleware.RequireRoles(string(models.RoleEmployee)), bidH.Submit)
	protected.Patch("/tasks/:taskId/bids/:bidId/accept", bidH.Accept)
	protected.Patch("/bids/:id/cancel", bidH.Cancel)
	protected.Delete("/bids/:id", bidH.Delete)

	return app, gdb
}

func createUser(t *testing.T, gdb *gorm.DB, name string, role models.Role) models.User {
	t.Helper()
	hashed, err := utils.HashPassword("secret123")
	require.NoError(t, err)
	u := models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Password: hashed,
		Role:     role,
	}
	require.NoError(t, gdb.Create(&u).Error)
	return u
}

func sessionCookie(t *testing.T, u models.User) string {
	t.Helper()
	token, err := utils.SignJWT(testSecret, u.ID.String(), string(u.Role), 60)
	require.NoError(t, err)
	return "wk_token=" + token
}

func doJSON(t *testing.T, app *fiber.App, method, path, cookie string, body interface{}) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createTask(t *testing.T, gdb *gorm.DB, owner models.User, status models.TaskStatus) models.Task {
	t.Helper()
	task := models.Task{
		OwnerID:     owner.ID,
		Title:       "Fix the fence",
		Description: "The back fence needs new panels",
		Category:    "Handyman",
		Location:    "Springfield",
		Budget:      100,
		Status:      status,
	}
	require.NoError(t, gdb.Create(&task).Error)
	return task
}

func createBid(t *testing.T, gdb *gorm.DB, task models.Task, bidder models.User, amount float64, status models.BidStatus) models.Bid {
	t.Helper()
	bid := models.Bid{
		TaskID:      task.ID,
		UserID:      bidder.ID,
		UserName:    bidder.Name,
		Amount:      amount,
		Message:     "I can do this",
		PhoneNumber: "555-0100",
		Status:      status,
	}
	require.NoError(t, gdb.Create(&bid).Error)
	return bid
}

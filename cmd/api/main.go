package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/worklyhq/workly-backend/internal/config"
	"github.com/worklyhq/workly-backend/internal/db"
	"github.com/worklyhq/workly-backend/internal/handlers"
	"github.com/worklyhq/workly-backend/internal/middleware"
	"github.com/worklyhq/workly-backend/internal/models"
	"github.com/worklyhq/workly-backend/internal/realtime"
	"github.com/worklyhq/workly-backend/internal/services/rating"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := gdb.AutoMigrate(&models.User{}, &models.Rating{}, &models.Task{}, &models.Bid{}); err != nil {
		log.Fatal(err)
	}

	hub := realtime.NewHub()
	go hub.Run()

	rdb := realtime.NewRedis(cfg.RedisAddr)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("redis unavailable, change events stay instance-local: %v", err)
		rdb = nil
	}

	notifier := realtime.NewNotifier(hub, rdb)
	go notifier.Listen(context.Background())

	ratingSvc := rating.NewService(gdb)

	authH := &handlers.AuthHandler{
		DB:        gdb,
		Notifier:  notifier,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	taskH := handlers.NewTaskHandler(gdb, notifier, ratingSvc)
	bidH := handlers.NewBidHandler(gdb, notifier)
	profileH := handlers.NewProfileHandler(gdb)
	wsH := handlers.NewWSHandler(hub, cfg.JWTSecret)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendBaseURL,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Get("/tasks", taskH.List)
	api.Get("/tasks/:id", taskH.Get)
	api.Get("/profiles", profileH.List)
	api.Get("/profiles/:id", profileH.Get)

	// protected (JWT cookie)
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	protected.Get("/me", func(c *fiber.Ctx) error {
		uid := c.Locals("userId")

		var user models.User
		if err := gdb.First(&user, "id = ?", uid).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "User not found",
			})
		}

		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	})

	protected.Patch("/role", authH.SelectRole)
	protected.Get("/dashboard", taskH.Dashboard)

	protected.Post("/tasks",
		middleware.RequireRoles(string(models.RoleEmployer)),
		taskH.Create,
	)
	protected.Patch("/tasks/:id/cancel", taskH.Cancel)
	protected.Delete("/tasks/:id", taskH.Delete)
	protected.Patch("/tasks/:id/complete", taskH.Complete)

	protected.Post("/tasks/:id/bids",
		middleware.RequireRoles(string(models.RoleEmployee)),
		bidH.Submit,
	)
	protected.Patch("/tasks/:taskId/bids/:bidId/accept", bidH.Accept)
	protected.Patch("/bids/:id/cancel", bidH.Cancel)
	protected.Delete("/bids/:id", bidH.Delete)

	// websocket refresh feed (token auth via query param)
	app.Get("/ws/updates", websocket.New(wsH.Handle))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}

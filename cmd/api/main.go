package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-farm-market/internal/handler"
	"go-farm-market/internal/middleware"
	"go-farm-market/internal/model"
	"go-farm-market/internal/repository"
	"go-farm-market/internal/service"
	"go-farm-market/internal/ws"
	"go-farm-market/pkg/database"
	_ "go-farm-market/pkg/database/migrations"
	"go-farm-market/pkg/mail"
	"go-farm-market/pkg/storage"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup Database + ordered migrations
	db := database.ConnectDB()
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migration failed: ", err)
	}

	// 3. Image storage
	store, err := storage.NewLocal(os.Getenv("UPLOAD_DIR"))
	if err != nil {
		log.Fatal(err)
	}

	// 4. WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewRefreshTokenRepo(db)

	// Sweep refresh tokens the rotation left behind, then keep sweeping daily
	if err := tokenRepo.PurgeExpired(); err != nil {
		log.Println("purge expired refresh tokens:", err)
	}
	go func() {
		for range time.Tick(24 * time.Hour) {
			if err := tokenRepo.PurgeExpired(); err != nil {
				log.Println("purge expired refresh tokens:", err)
			}
		}
	}()

	notifier := service.NewLowStockNotifier(userRepo, mail.FromEnv(), wsHub)
	invService := service.NewInventoryService(productRepo, txRepo, db, notifier, wsHub)
	authService := service.NewAuthService(userRepo, tokenRepo)

	productHandler := handler.NewProductHandler(invService, store)
	villagerHandler := handler.NewVillagerHandler(invService)
	authHandler := handler.NewAuthHandler(authService)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Farm Market v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// Uploaded images are publicly browsable
	app.Static("/uploads", store.Dir())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Farm Market backend is running!")
	})

	// ============ PUBLIC ROUTES ============
	auth := app.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Post("/logout", authHandler.Logout)

	app.Get("/products", productHandler.GetProducts)

	// ============ PROTECTED ROUTES ============
	products := app.Group("/products", middleware.RequireAuth())
	products.Post("", middleware.RequireRole(model.RoleVillager), productHandler.CreateProduct)
	products.Put("/:id", middleware.RequireRole(model.RoleVillager), productHandler.UpdateProduct)
	products.Delete("/:id", middleware.RequireRole(model.RoleVillager), productHandler.DeleteProduct)
	products.Post("/:id/purchase", middleware.RequireRole(model.RoleUser), productHandler.Purchase)
	products.Get("/:id/transactions", middleware.RequireRole(model.RoleVillager), productHandler.History)

	villager := app.Group("/villager", middleware.RequireAuth(), middleware.RequireRole(model.RoleVillager))
	villager.Get("/low-stock-products", villagerHandler.LowStockProducts)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 7. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tablefire/ordering-api/config"
	"github.com/tablefire/ordering-api/controllers"
	"github.com/tablefire/ordering-api/middleware"
	"github.com/tablefire/ordering-api/models"
	"github.com/tablefire/ordering-api/repository"
	"github.com/tablefire/ordering-api/services"
	"github.com/tablefire/ordering-api/utils"
	"gorm.io/gorm"
)

const serviceName = "Restaurant Ordering API"

// pinger is implemented by event publishers that hold a broker connection
type pinger interface {
	Ping() error
}

// dependencies are the collaborators that differ between production and tests
type dependencies struct {
	publisher services.Publisher
	images    services.ImageService // nil disables image uploads
	userInfo  services.UserInfoProvider
}

// application holds the wired repositories and controllers
type application struct {
	users     *repository.UserRepository
	broker    pinger
	orders    *controllers.OrderController
	menu      *controllers.MenuController
	inventory *controllers.InventoryController
	profiles  *controllers.UserController
}

func newApplication(db *gorm.DB, cfg *config.Config, deps dependencies) *application {
	userRepo := repository.NewUserRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	menuRepo := repository.NewMenuRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)

	var purchases services.PurchaseChecker
	if cfg.ReviewRequiresPurchase {
		purchases = orderRepo
	}

	app := &application{
		users: userRepo,
		orders: controllers.NewOrderController(services.NewOrderService(
			orderRepo, menuRepo, deps.publisher, services.PricingPolicyFromConfig(cfg), cfg.InitialOrderStatus,
		)),
		menu:      controllers.NewMenuController(services.NewMenuService(menuRepo, purchases, deps.images)),
		inventory: controllers.NewInventoryController(services.NewInventoryService(inventoryRepo, deps.publisher, cfg.TransferMode)),
		profiles:  controllers.NewUserController(services.NewUserService(userRepo, deps.userInfo)),
	}
	if p, ok := deps.publisher.(pinger); ok {
		app.broker = p
	}
	return app
}

func main() {
	log.Printf("Starting %s...", serviceName)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := config.ConnectDatabase(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := config.GetDB()
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	deps := dependencies{
		publisher: services.LogPublisher{},
		userInfo:  services.NewAuth0Service(cfg.Auth0Domain),
	}

	if cfg.RabbitMQURL != "" {
		publisher, err := services.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			log.Printf("Warning: event broker unavailable, falling back to log publisher: %v", err)
		} else {
			defer publisher.Close()
			deps.publisher = publisher
			log.Printf("Publishing events to exchange %s", cfg.RabbitMQExchange)
		}
	}

	if cfg.S3Enabled() {
		storage, err := services.NewS3Storage(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		deps.images = services.NewImageService(storage, utils.MenuImagePrefix)
	} else {
		log.Println("AWS_S3_BUCKET not set, menu image uploads are disabled")
	}

	app := newApplication(db, cfg, deps)
	router := setupRouter(app, middleware.EnsureValidToken(cfg), cfg.CORSAllowedOrigins)

	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter registers every route. authenticate validates the bearer token
// and must set the middleware context keys.
func setupRouter(app *application, authenticate gin.HandlerFunc, corsOrigins []string) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.CORS(corsOrigins))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", app.healthCheck)
		v1.GET("/database/status", databaseStatus)

		// Public menu browsing
		v1.GET("/menu", app.menu.ListMenuItems)
		v1.GET("/menu/categories", app.menu.GetCategories)
		v1.GET("/menu/featured", app.menu.GetFeatured)
		v1.GET("/menu/:id", app.menu.GetMenuItem)
	}

	authenticated := v1.Group("", authenticate)
	authenticated.POST("/users", app.profiles.CreateUser)

	member := authenticated.Group("", middleware.RequireUser(app.users))
	{
		member.GET("/users/me", app.profiles.GetMyProfile)
		member.PUT("/users/me", app.profiles.UpdateMyProfile)
		member.GET("/users/:id", app.profiles.GetUser)

		member.POST("/menu/:id/reviews", app.menu.AddReview)

		member.POST("/orders", app.orders.CreateOrder)
		member.GET("/orders", app.orders.ListOrders)
		member.GET("/orders/:id", app.orders.GetOrder)
		member.PATCH("/orders/:id/cancel", app.orders.CancelOrder)
		member.POST("/orders/:id/rating", app.orders.RateOrder)
	}

	staff := member.Group("", middleware.RequireRole(models.RoleStaff, models.RoleAdmin))
	{
		staff.PATCH("/orders/:id/status", app.orders.UpdateOrderStatus)

		staff.GET("/inventory", app.inventory.ListInventory)
		staff.GET("/inventory/alerts", app.inventory.ListActiveAlerts)
		staff.GET("/inventory/:id", app.inventory.GetInventoryItem)
		staff.PATCH("/inventory/:id/stock", app.inventory.UpdateStock)
		staff.PATCH("/inventory/:id/alerts/:alertId/acknowledge", app.inventory.AcknowledgeAlert)
	}

	admin := member.Group("", middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", app.profiles.ListUsers)
		admin.GET("/users/stats", app.profiles.GetUserStats)
		admin.PUT("/users/:id/role", app.profiles.SetRole)
		admin.PATCH("/users/:id/activate", app.profiles.ActivateUser)
		admin.PATCH("/users/:id/deactivate", app.profiles.DeactivateUser)
		admin.DELETE("/users/:id", app.profiles.DeleteUser)

		admin.POST("/menu", app.menu.CreateMenuItem)
		admin.PUT("/menu/:id", app.menu.UpdateMenuItem)
		admin.DELETE("/menu/:id", app.menu.DeleteMenuItem)
		admin.POST("/menu/:id/image", app.menu.UploadImage)

		admin.GET("/orders/stats", app.orders.GetOrderStats)

		admin.GET("/inventory/stats", app.inventory.GetInventoryStats)
		admin.POST("/inventory", app.inventory.CreateInventoryItem)
		admin.PUT("/inventory/:id", app.inventory.UpdateInventoryItem)
		admin.DELETE("/inventory/:id", app.inventory.DeleteInventoryItem)
	}

	return router
}

// healthCheck handles the health check endpoint
func (app *application) healthCheck(c *gin.Context) {
	events := "log-only"
	if app.broker != nil {
		events = "connected"
		if err := app.broker.Ping(); err != nil {
			events = "disconnected"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": serviceName + " is running",
		"events":  events,
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Database is not initialized",
			},
		})
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}

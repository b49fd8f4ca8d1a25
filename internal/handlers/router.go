package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/relief-management-api/internal/access"
	"github.com/yukikurage/relief-management-api/internal/backup"
	"github.com/yukikurage/relief-management-api/internal/constants"
	"github.com/yukikurage/relief-management-api/internal/middleware"
	"github.com/yukikurage/relief-management-api/internal/repository"
	"github.com/yukikurage/relief-management-api/internal/services"
	"gorm.io/gorm"
)

// ImportPath is the import route. It takes the write gate itself.
const ImportPath = "/api/admin/database/import"

// Services bundles everything the handlers call into.
type Services struct {
	Auth           *services.AuthService
	Area           *services.AreaService
	Category       *services.CategoryService
	Product        *services.ProductService
	AreaAssignment *services.AreaAssignmentService
	Need           *services.NeedService
	Contact        *services.ContactService
	Public         *services.PublicService
	Backup         *backup.Service
}

// NewServices wires the gorm repositories into every service.
func NewServices(db *gorm.DB, backupService *backup.Service) Services {
	userRepo := repository.NewUserRepository(db)
	areaRepo := repository.NewAreaRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	assignmentRepo := repository.NewAreaAssignmentRepository(db)
	needRepo := repository.NewNeedRepository(db)
	contactRepo := repository.NewContactRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	return Services{
		Auth:           services.NewAuthService(userRepo, assignmentRepo),
		Area:           services.NewAreaService(areaRepo),
		Category:       services.NewCategoryService(categoryRepo),
		Product:        services.NewProductService(productRepo, categoryRepo),
		AreaAssignment: services.NewAreaAssignmentService(assignmentRepo, areaRepo, userRepo),
		Need:           services.NewNeedService(needRepo, areaRepo, productRepo, statsRepo),
		Contact:        services.NewContactService(contactRepo),
		Public:         services.NewPublicService(statsRepo, areaRepo, categoryRepo, productRepo, needRepo),
		Backup:         backupService,
	}
}

// RouterConfig carries the transport settings of the router.
type RouterConfig struct {
	SessionStore   sessions.Store
	Gate           *backup.Gate
	AllowedOrigins []string
	Log            *logrus.Logger
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(svc Services, cfg RouterConfig) *gin.Engine {
	if cfg.Gate == nil {
		cfg.Gate = backup.NewGate()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(cfg.Log))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(sessions.Sessions(constants.SessionCookieName, cfg.SessionStore))
	r.Use(middleware.LoadIdentity(svc.Auth, cfg.Log))
	r.Use(middleware.WriteGate(cfg.Gate, ImportPath, "/api/auth/login", "/api/auth/logout"))

	authHandler := NewAuthHandler(svc.Auth)
	publicHandler := NewPublicHandler(svc.Public, svc.Need, svc.Contact)
	needHandler := NewNeedHandler(svc.Need, cfg.Log)
	areaHandler := NewAreaHandler(svc.Area)
	categoryHandler := NewCategoryHandler(svc.Category, svc.Product)
	assignmentHandler := NewAreaAssignmentHandler(svc.AreaAssignment)
	contactHandler := NewContactHandler(svc.Contact)
	databaseHandler := NewDatabaseHandler(svc.Backup)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Relief Management API is running",
		})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		public := api.Group("/public")
		{
			public.GET("/stats", publicHandler.Stats)
			public.GET("/needs", publicHandler.OpenNeeds)
			public.GET("/areas", publicHandler.Areas)
			public.GET("/areas/:id", publicHandler.AreaDetail)
			public.GET("/categories", publicHandler.Categories)
			public.POST("/contact", publicHandler.SubmitContact)
		}

		// Area staff work inside their own area
		staff := api.Group("/staff")
		staff.Use(middleware.RequireAuth(), middleware.RequirePermission(access.ActionRead, access.ResourceNeed))
		{
			staff.GET("/dashboard", needHandler.Dashboard)
			staff.GET("/needs", needHandler.ListNeeds)
			staff.POST("/needs", needHandler.CreateNeed)
			staff.GET("/needs/:id", needHandler.GetNeed)
			staff.PATCH("/needs/:id", needHandler.UpdateNeed)
			staff.GET("/categories", categoryHandler.ListCategories)
			staff.GET("/products", categoryHandler.ListProducts)
			staff.GET("/products/:id", categoryHandler.GetProduct)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireAuth())
		{
			areas := admin.Group("/areas", middleware.RequirePermission(access.ActionUpdate, access.ResourceArea))
			{
				areas.GET("", areaHandler.ListAreas)
				areas.POST("", areaHandler.CreateArea)
				areas.GET("/:id", areaHandler.GetArea)
				areas.PUT("/:id", areaHandler.UpdateArea)
				areas.DELETE("/:id", areaHandler.DeleteArea)
			}

			categories := admin.Group("/categories", middleware.RequirePermission(access.ActionUpdate, access.ResourceCategory))
			{
				categories.GET("", categoryHandler.ListCategories)
				categories.POST("", categoryHandler.CreateCategory)
				categories.PUT("/:id", categoryHandler.UpdateCategory)
				categories.DELETE("/:id", categoryHandler.DeleteCategory)
			}

			products := admin.Group("/products", middleware.RequirePermission(access.ActionUpdate, access.ResourceProduct))
			{
				products.GET("", categoryHandler.ListProducts)
				products.POST("", categoryHandler.CreateProduct)
				products.GET("/:id", categoryHandler.GetProduct)
				products.PUT("/:id", categoryHandler.UpdateProduct)
				products.DELETE("/:id", categoryHandler.DeleteProduct)
			}

			assignments := admin.Group("/area-assignments", middleware.RequirePermission(access.ActionUpdate, access.ResourceAreaAssignment))
			{
				assignments.GET("", assignmentHandler.ListAssignments)
				assignments.POST("", assignmentHandler.CreateAssignment)
				assignments.GET("/:id", assignmentHandler.GetAssignment)
				assignments.PUT("/:id", assignmentHandler.UpdateAssignment)
				assignments.DELETE("/:id", assignmentHandler.DeleteAssignment)
			}

			needs := admin.Group("/needs", middleware.RequirePermission(access.ActionSetStatus, access.ResourceNeed))
			{
				needs.GET("", needHandler.ListNeeds)
				needs.GET("/export", needHandler.ExportNeeds)
				needs.GET("/:id", needHandler.GetNeed)
				needs.PATCH("/:id/status", needHandler.SetNeedStatus)
				needs.DELETE("/:id", needHandler.DeleteNeed)
			}

			contacts := admin.Group("/contacts", middleware.RequirePermission(access.ActionUpdate, access.ResourceContactMessage))
			{
				contacts.GET("", contactHandler.ListMessages)
				contacts.GET("/:id", contactHandler.GetMessage)
				contacts.PATCH("/:id/status", contactHandler.UpdateMessageStatus)
				contacts.DELETE("/:id", contactHandler.DeleteMessage)
			}

			db := admin.Group("/database", middleware.RequirePermission(access.ActionImport, access.ResourceDatabase))
			{
				db.GET("/status", databaseHandler.Status)
				db.GET("/export", databaseHandler.Export)
				db.POST("/import", databaseHandler.Import)
				db.GET("/snapshots", databaseHandler.ListSnapshots)
				db.GET("/snapshots/:name", databaseHandler.DownloadSnapshot)
			}
		}
	}

	return r
}

package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/in-nis/timetable-back/docs"
	"github.com/in-nis/timetable-back/internal/auth"
	"github.com/in-nis/timetable-back/internal/config"
	"github.com/in-nis/timetable-back/internal/db"
	"github.com/in-nis/timetable-back/internal/notify"
	"github.com/in-nis/timetable-back/internal/timetable"
	"github.com/in-nis/timetable-back/internal/ws"
)

// @title           Timetable API
// @version         1.0
// @description     Versioned course timetable store: validation, edit ledger, reconstruction and restore.
// @host            localhost:8000
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func SetupRouter(cfg *config.Config) *gin.Engine {
	auth.InitGoogle(cfg)

	svc = &timetable.Service{DB: db.DB}
	if n := notify.New(cfg.RedisURL); n != nil {
		svc.Notifier = n
	}
	appConfig = cfg

	hub := ws.NewHub()
	go hub.Run()

	r := gin.Default()

	// Public routes
	r.GET("/health", func(c *gin.Context) {
		dbPingError := db.PingDB()
		if dbPingError != nil {
			c.JSON(500, gin.H{"status": "db_ping_error"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Google login
	r.GET("/auth/google/login", auth.GoogleLoginHandler())
	r.GET("/auth/google/callback", auth.GoogleCallbackHandler(cfg))
	r.POST("/auth/refresh", auth.RefreshHandler(cfg))

	// General audience: only twice-published timetables are listed here.
	r.GET("/timetables", ListTimetables)

	// Protected
	authGroup := r.Group("/")
	authGroup.Use(auth.AuthMiddleware(cfg))
	{
		authGroup.GET("/timetables/:id", GetTimetable)
		authGroup.GET("/timetables/:id/history", GetTimetableHistory)
		authGroup.GET("/timetables/:id/versions/:version", ReconstructVersion)
		authGroup.GET("/timetables/:id/export", ExportTimetable)
		authGroup.GET("/ws/timetables/:id", ws.ServeTimetable(hub))

		editorGroup := authGroup.Group("/")
		editorGroup.Use(auth.RequireEditor())
		{
			editorGroup.POST("/validate", ValidateGrid)
			editorGroup.POST("/timetables", CreateTimetable)
			editorGroup.POST("/timetables/generate", GenerateTimetable)
			editorGroup.POST("/timetables/import", ImportTimetable)
			editorGroup.PUT("/timetables/:id/grid", EditTimetableGrid)
			editorGroup.POST("/timetables/:id/publish", PublishTimetable)
			editorGroup.PATCH("/timetables/:id/archive", ArchiveTimetable)
			editorGroup.POST("/timetables/:id/restore/:version", RestoreVersion)
		}
	}

	return r
}

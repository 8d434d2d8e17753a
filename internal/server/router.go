package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/braingraph-backend/internal/http/handlers"
	"github.com/yungbote/braingraph-backend/internal/http/middleware"
	"github.com/yungbote/braingraph-backend/internal/observability"
	"github.com/yungbote/braingraph-backend/internal/platform/logger"
	"github.com/yungbote/braingraph-backend/internal/types"
)

type RouterConfig struct {
	Log               *logger.Logger
	Metrics           *observability.Metrics
	HealthHandler     *handlers.HealthHandler
	BrainGraphHandler *handlers.BrainGraphHandler
	BrainHandler      *handlers.BrainHandler
	SourceHandler     *handlers.SourceHandler
	ChatHandler       *handlers.ChatHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	router.Use(otelgin.Middleware("braingraph-backend"))
	router.Use(middleware.Metrics(cfg.Metrics))
	router.Use(middleware.RequestLogger(cfg.Log))

	router.GET("/healthcheck", cfg.HealthHandler.Check)
	if cfg.Metrics != nil {
		router.GET("/metrics", func(c *gin.Context) {
			cfg.Metrics.WriteHTTP(c.Writer, c.Request)
		})
	}

	// Graph and answering
	bg := router.Group("/brainGraph")
	{
		bg.POST("/process_text", cfg.BrainGraphHandler.ProcessText)
		bg.POST("/answer", cfg.BrainGraphHandler.Answer)
		bg.GET("/getNodeEdge/:brain_id", cfg.BrainGraphHandler.GetNodeEdge)
		bg.GET("/getSourceIds", cfg.BrainGraphHandler.GetSourceIDs)
		bg.GET("/getNodesBySourceId", cfg.BrainGraphHandler.GetNodesBySourceID)
	}

	// Brains
	brains := router.Group("/brains")
	{
		brains.POST("", cfg.BrainHandler.Create)
		brains.GET("", cfg.BrainHandler.List)
		brains.GET("/:brain_id", cfg.BrainHandler.Get)
		brains.PUT("/:brain_id", cfg.BrainHandler.Update)
		brains.DELETE("/:brain_id", cfg.BrainHandler.Delete)
		brains.DELETE("/:brain_id/deleteDB/:source_id", cfg.BrainHandler.DeleteSourceData)
	}

	// File-backed sources
	for prefix, kind := range map[string]string{
		"/pdfs":      types.SourceKindPdf,
		"/textfiles": types.SourceKindTxt,
		"/mdfiles":   types.SourceKindMd,
		"/docxfiles": types.SourceKindDocx,
	} {
		g := router.Group(prefix)
		g.POST("", cfg.SourceHandler.Upload(kind))
		g.GET("", cfg.SourceHandler.List(kind))
		g.GET("/:id", cfg.SourceHandler.Get(kind))
		g.PUT("/:id", cfg.SourceHandler.Update(kind))
		g.DELETE("/:id", cfg.SourceHandler.Delete(kind))
	}

	// Memos
	memos := router.Group("/memos")
	{
		memos.POST("", cfg.SourceHandler.CreateMemo)
		memos.GET("", cfg.SourceHandler.List(types.SourceKindMemo))
		memos.GET("/:id", cfg.SourceHandler.Get(types.SourceKindMemo))
		memos.PUT("/:id", cfg.SourceHandler.Update(types.SourceKindMemo))
		memos.DELETE("/:id", cfg.SourceHandler.Delete(types.SourceKindMemo))
	}

	// Chat
	router.POST("/chatsession", cfg.ChatHandler.CreateSession)
	router.GET("/chatsession/:brain_id", cfg.ChatHandler.ListSessions)
	router.DELETE("/chatsession/:session_id", cfg.ChatHandler.DeleteSession)
	router.GET("/chat/:session_id", cfg.ChatHandler.ListChats)
	router.GET("/chat/message/:chat_id", cfg.ChatHandler.GetChat)

	return router
}

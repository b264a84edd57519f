// Package api serves the generation engine over REST with gin.
package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kittclouds/chronicle/pkg/orchestrator"
	"github.com/kittclouds/chronicle/pkg/remote"
	"github.com/kittclouds/chronicle/pkg/story"
)

// Version is reported by the status endpoint.
const Version = "1.0.0"

// Backend is what the handlers need from the engine.
type Backend interface {
	remote.Service
	Character(id string) (*story.Character, error)
	Scenes(characterID string) ([]story.Scene, error)
	Stats() orchestrator.Stats
}

var _ Backend = (*orchestrator.Engine)(nil)

// Options configures the router.
type Options struct {
	Logger *log.Logger
	Debug  bool // gin debug mode and request logging
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(backend Backend, opts Options) *gin.Engine {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Debug {
		r.Use(gin.Logger())
	}
	r.Use(corsMiddleware())
	r.Use(traceMiddleware())

	h := &handler{backend: backend, logger: logger}

	r.GET("/", h.status)

	api := r.Group("/api")
	{
		api.POST("/characters", h.createCharacter)
		api.GET("/characters/:id", h.getCharacter)
		api.GET("/characters/:id/scenes", h.getScenes)
		api.GET("/characters/:id/recap", h.recap)
		api.DELETE("/characters/:id", h.deleteCharacter)
		api.POST("/edits", h.submitEdit)
		api.POST("/demo/load", h.loadDemo)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, remote.ErrorBody{Detail: "Not Found"})
	})
	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Origin, Authorization, traceparent, tracestate")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// traceMiddleware continues the caller's trace and opens a server span.
func traceMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("github.com/kittclouds/chronicle/internal/api")
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("url.path", c.Request.URL.Path),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(attribute.Int("http.response.status_code", c.Writer.Status()))
	}
}

func requestContext(c *gin.Context) context.Context { return c.Request.Context() }

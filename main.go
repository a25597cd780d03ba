package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"topics-service/internal/auth"
	"topics-service/internal/config"
	"topics-service/internal/db"
	"topics-service/internal/engine"
	"topics-service/internal/handlers"
	"topics-service/internal/middleware"
	"topics-service/internal/observability"
	"topics-service/internal/rabbitmq"
	"topics-service/internal/repositories"
	"topics-service/internal/telemetry"
	"topics-service/internal/ws"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing := telemetry.SetupTracing(context.Background(), cfg.OTLPEndpoint, "topics-service", cfg.Environment)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "audit.topics", "topics-service", cfg.Environment)

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	topicRepo := repositories.NewTopicRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	eng := engine.NewEngine(topicRepo, messageRepo, verifier)

	topicHandler := handlers.NewTopicHandler(topicRepo, eng, audit)
	wsHandler := ws.NewHandler(eng, publisher)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("topics-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.POST("/topics", authMiddleware, topicHandler.CreateTopic)
	router.GET("/topics", authMiddleware, topicHandler.ListTopics)
	router.POST("/topics/:topic_id/members", authMiddleware, topicHandler.AddMember)
	router.DELETE("/topics/:topic_id/members/:user_id", authMiddleware, topicHandler.RemoveMember)
	router.GET("/topics/:topic_id/messages", authMiddleware, topicHandler.GetHistory)

	router.GET("/ws", wsHandler.Handle)

	router.GET("/healthz", handlers.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

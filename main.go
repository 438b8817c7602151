package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"campus-service/internal/auth"
	"campus-service/internal/db"
	"campus-service/internal/handlers"
	"campus-service/internal/matching"
	"campus-service/internal/middleware"
	"campus-service/internal/observability"
	"campus-service/internal/rabbitmq"
	"campus-service/internal/repositories"
	"campus-service/internal/telemetry"
	"campus-service/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	serviceName := getEnv("SERVICE_NAME", "campus-service")
	shutdownTracer := observability.InitTracer(context.Background(), serviceName, os.Getenv("OTLP_ENDPOINT"))
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("tracer shutdown failed: %v", err)
		}
	}()

	amqpURL := os.Getenv("AMQP_URL")
	auditPublisher := rabbitmq.NewPublisher(amqpURL, getEnv("AUDIT_EXCHANGE", "campus.audit"))
	defer auditPublisher.Close()
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, getEnv("AUDIT_ROUTING_KEY", "audit.campus-service"), serviceName, getEnv("ENVIRONMENT", "development"))

	if eventPublisher, err := observability.NewAMQPPublisher(amqpURL, getEnv("EVENTS_EXCHANGE", "campus.events")); err != nil {
		log.Printf("event publisher disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	userRepo := repositories.NewUserRepo(database)
	profileRepo := repositories.NewProfileRepo(database)
	matchRequestRepo := repositories.NewMatchRequestRepo(database)
	matchMessageRepo := repositories.NewMatchMessageRepo(database)
	scoreRepo := repositories.NewScoreRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	groupMessageRepo := repositories.NewGroupMessageRepo(database)

	registry := matching.NewRegistry(matchRequestRepo, matchMessageRepo, userRepo)
	engine := matching.NewEngine(userRepo, profileRepo, scoreRepo, matchRequestRepo)

	hub := ws.NewHub()
	gate := ws.NewGate(matchRequestRepo, groupRepo)
	validator := auth.NewValidator(getEnv("JWT_SECRET", "insecure-dev-secret"))

	matchHandler := handlers.NewMatchHandler(registry, hub, auditEmitter)
	roommateHandler := handlers.NewRoommateHandler(engine, profileRepo, auditEmitter)
	groupHandler := handlers.NewGroupHandler(groupRepo, groupMessageRepo, userRepo, profileRepo, hub, auditEmitter)

	roommateWS := ws.NewRoommateChatHandler(hub, gate, registry, validator)
	groupWS := ws.NewGroupChatHandler(hub, gate, groupMessageRepo, userRepo, validator)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, getEnv("DEBUG_ROUTES", "") == "true")

	authMiddleware := middleware.AuthMiddleware(validator)
	api := router.Group("/api", authMiddleware)

	api.GET("/roommates", roommateHandler.ListCandidates)
	api.GET("/roommates/:user_id", roommateHandler.GetCandidate)
	api.GET("/roommate-profile", roommateHandler.GetProfile)
	api.PUT("/roommate-profile", roommateHandler.PutProfile)

	api.POST("/match-requests", matchHandler.CreateRequest)
	api.GET("/match-requests", matchHandler.ListRequests)
	api.POST("/match-requests/:request_id/accept", matchHandler.AcceptRequest)
	api.POST("/match-requests/:request_id/reject", matchHandler.RejectRequest)
	api.GET("/match-requests/:request_id/messages", matchHandler.GetMessages)
	api.POST("/match-requests/:request_id/messages", matchHandler.PostMessage)

	api.POST("/study-groups", groupHandler.CreateGroup)
	api.GET("/study-groups", groupHandler.ListGroups)
	api.GET("/study-groups/mine", groupHandler.ListMyGroups)
	api.GET("/study-groups/suggested", groupHandler.ListSuggestedGroups)
	api.GET("/study-groups/:group_id", groupHandler.GetGroup)
	api.PUT("/study-groups/:group_id", groupHandler.UpdateGroup)
	api.DELETE("/study-groups/:group_id", groupHandler.DeleteGroup)
	api.POST("/study-groups/:group_id/join", groupHandler.JoinGroup)
	api.POST("/study-groups/:group_id/members/:user_id/accept", groupHandler.AcceptMember)
	api.DELETE("/study-groups/:group_id/members/:user_id", groupHandler.RemoveMember)
	api.GET("/study-groups/:group_id/messages", groupHandler.GetMessages)
	api.POST("/study-groups/:group_id/messages", groupHandler.PostMessage)

	router.GET("/ws/roommate-chat/:match_id", roommateWS.Handle)
	router.GET("/ws/study-group-chat/:group_id", groupWS.Handle)

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

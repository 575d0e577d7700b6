package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/ligue-attribution/internal/config"
	"github.com/xavierca1/ligue-attribution/internal/infra/database"
	"github.com/xavierca1/ligue-attribution/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-attribution/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-attribution/internal/infra/integration/googleads"
	"github.com/xavierca1/ligue-attribution/internal/infra/mail"
	"github.com/xavierca1/ligue-attribution/internal/infra/queue"
	"github.com/xavierca1/ligue-attribution/internal/infra/worker"
	"github.com/xavierca1/ligue-attribution/internal/usecase"
)

func main() {
	cfg := config.Load()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitUser, cfg.RabbitPass, cfg.RabbitHost, cfg.RabbitPort)
	if err != nil {
		panic(err)
	}
	defer rabbitMQ.Conn.Close()
	defer rabbitMQ.Ch.Close()

	// 1. Repositórios
	leadRepo := database.NewLeadRepository(db)
	conversionRepo := database.NewConversionRepository(db)
	jobRepo := database.NewAdsUploadJobRepository(db)

	// 2. Gateways e Adapters
	adsClient := googleads.NewClient(cfg.AdsAPIToken, cfg.AdsAPIURL, cfg.AdsConversionID, cfg.AdsConversionLabel)
	producer := queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)
	mailSender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.AlertEmailTo)

	// 3. Workers (upload + varredura de jobs órfãos)
	uploadWorker := queue.NewWorker(
		rabbitMQ.Ch, adsClient, jobRepo, mailSender,
		cfg.UploadMaxAttempts, cfg.UploadBackoffBase, cfg.UploadBackoffCap,
	)
	go uploadWorker.Start(queue.QueueName)

	requeueWorker := worker.NewRequeueWorker(jobRepo, producer, cfg.RequeueStaleAfter, cfg.RequeueSweepInterval)
	go requeueWorker.Start(context.Background())

	// 4. UseCases
	captureLeadUC := usecase.NewCaptureLeadUseCase(leadRepo)
	recordConversionUC := usecase.NewRecordConversionUseCase(
		leadRepo, conversionRepo, jobRepo, producer, cfg.MatchDealRefFirst,
	)

	// 5. Handlers
	leadHandler := handlers.NewLeadHandler(captureLeadUC)
	webhookHandler := handlers.NewWebhookHandler(cfg.CRMWebhookSecret, recordConversionUC)
	attributionHandler := handlers.NewAttributionHandler()
	tagHandler := handlers.NewTagHandler(cfg.AnalyticsTagID, cfg.AdsConversionID)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ.Conn, cfg.AdsAPIToken != "")

	// 6. Router
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowCredentials: true,
	}))

	// O webhook do CRM responde rápido (o CRM tem timeout curto e
	// retry agressivo); o resto da orquestração é fire-and-forget
	r.Route("/webhook", func(r chi.Router) {
		r.Use(chimw.Timeout(5 * time.Second))
		r.Post("/crm", webhookHandler.Handle)
	})

	// Rotas voltadas pro navegador passam pelo Visitor Identity Store
	r.Group(func(r chi.Router) {
		r.Use(middleware.Attribution(middleware.AttributionConfig{
			CookieDomain: cfg.CookieDomain,
			TTL:          cfg.CookieTTL,
		}))
		r.Post("/lead", leadHandler.CaptureLead)
		r.Get("/attribution", attributionHandler.Handle)
		r.Get("/tag.js", tagHandler.Handle)
	})

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	port := ":" + cfg.Port
	log.Printf("🔥 Server Attribution rodando na porta %s", port)
	http.ListenAndServe(port, r)
}

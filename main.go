package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"convene/api"
	"convene/handlers"
	"convene/internal/database"
	"convene/services/dashboard"
	"convene/services/identity"
	"convene/services/invitations"
	"convene/services/notifications"
	"convene/services/respond"
	"convene/utils"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	addr := flag.String("addr", envOr("CONVENE_ADDR", ":8080"), "listen address")
	dataDir := flag.String("data-dir", envOr("CONVENE_DATA_DIR", "./data"), "directory for database and identity storage")
	logFile := flag.String("log-file", envOr("CONVENE_LOG_FILE", ""), "log file path (empty logs to stderr)")
	dashboardRefresh := flag.Duration("dashboard-refresh", dashboard.DefaultRefreshInterval, "dashboard refresh interval")
	flag.Parse()

	if *logFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		})
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("[main] create data dir: %v", err)
	}

	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(*dataDir, "convene.db"),
	})
	if err != nil {
		log.Fatalf("[main] open database: %v", err)
	}
	defer db.Close()

	identitySvc, err := identity.NewService(*dataDir)
	if err != nil {
		log.Fatalf("[main] identity service: %v", err)
	}

	invitationsSvc := invitations.NewService(database.NewInvitationRepository(db.Connection()))

	gen := respond.NewGeneration()
	coordinator := respond.NewCoordinator(respond.DefaultSubmitters(invitationsSvc), gen, 0)

	hub := notifications.NewHub()

	dashboardSvc := dashboard.New(invitationsSvc)
	dashboardSvc.StartBackgroundRefresh(*dashboardRefresh)
	dashboardSvc.TriggerOn(gen.Watch())
	defer dashboardSvc.Stop()

	invitationsHandler := handlers.NewInvitationsHandler(invitationsSvc, coordinator, hub)
	dashboardHandler := handlers.NewDashboardHandler(dashboardSvc)
	notificationsHandler := handlers.NewNotificationsHandler(hub)

	router := utils.NewRouter()
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.AuthMiddleware(identitySvc))

	// Mutations share one limiter so a double-clicking user is throttled
	// the same way on every path.
	mutationLimiter := api.NewRateLimiter(rate.Every(6*time.Second), 10)
	limited := func(h http.HandlerFunc) http.HandlerFunc {
		return api.RateLimitHandlerFunc(mutationLimiter, h)
	}

	apiRouter.HandleFunc("/invitations", limited(invitationsHandler.Create)).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/invitations", invitationsHandler.List).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/invitations/{invitationID}", invitationsHandler.Get).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/invitations/{invitationID}/respond", limited(invitationsHandler.Respond)).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/invitations/{invitationID}/cancel", limited(invitationsHandler.Cancel)).Methods(http.MethodPost, http.MethodOptions)

	apiRouter.HandleFunc("/dashboard/summary", dashboardHandler.Summary).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/dashboard/status", dashboardHandler.Status).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/dashboard/refresh", dashboardHandler.Refresh).Methods(http.MethodPost, http.MethodOptions)

	apiRouter.HandleFunc("/notifications", notificationsHandler.List).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/notifications/{eventID}", notificationsHandler.Dismiss).Methods(http.MethodDelete, http.MethodOptions)

	server := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on %s", *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("[main] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown error: %v", err)
	}
}

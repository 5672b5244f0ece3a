package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/handlers"
	"golang.org/x/sync/errgroup"

	"elearning-quiz/internal/server"
	"elearning-quiz/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	addr := flag.String("addr", getEnv("ADDR", ":8080"), "HTTP listen address")
	dbPath := flag.String("db", getEnv("DB_PATH", "quiz.db"), "SQLite database path")
	seedPath := flag.String("seed", "", "JSON catalog to import at startup")
	openTDBAmount := flag.Int("opentdb", 0, "number of OpenTriviaDB questions to import at startup (max 50)")
	jwtSecret := flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "HMAC secret for signing tokens")
	accessTTL := flag.String("access-ttl", getEnv("ACCESS_TTL", "15m"), "access token lifetime (Go or ISO 8601 duration)")
	refreshTTL := flag.String("refresh-ttl", getEnv("REFRESH_TTL", "P7D"), "refresh token lifetime (Go or ISO 8601 duration)")
	corsOrigins := flag.String("cors-origins", getEnv("CORS_ORIGINS", "*"), "comma separated list of allowed CORS origins")
	adminEmail := flag.String("admin-email", os.Getenv("ADMIN_EMAIL"), "staff account to create at startup")
	adminPassword := flag.String("admin-password", os.Getenv("ADMIN_PASSWORD"), "password for the staff account")
	flag.Parse()
	defer glog.Flush()

	if *jwtSecret == "" {
		glog.Fatal("a JWT secret is required (-jwt-secret or JWT_SECRET)")
	}
	accessLifetime, err := parseTTL(*accessTTL)
	if err != nil {
		glog.Fatalf("invalid access-ttl: %v", err)
	}
	refreshLifetime, err := parseTTL(*refreshTTL)
	if err != nil {
		glog.Fatalf("invalid refresh-ttl: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	quizStore, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		glog.Fatalf("open store: %v", err)
	}
	defer quizStore.Close()

	if err := bootstrap(ctx, quizStore, bootstrapConfig{
		SeedPath:      *seedPath,
		OpenTDBAmount: *openTDBAmount,
		AdminEmail:    *adminEmail,
		AdminPassword: *adminPassword,
	}); err != nil {
		glog.Fatalf("bootstrap: %v", err)
	}

	api := server.NewAPI(quizStore, server.NewTokenIssuer(*jwtSecret, accessLifetime, refreshLifetime))
	handler := handlers.CORS(
		handlers.AllowedOrigins(splitList(*corsOrigins)),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(server.NewRouter(api))

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           handlers.CombinedLoggingHandler(os.Stdout, handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		glog.Infof("quiz-service listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		glog.Info("shutting down quiz-service")
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		glog.Fatalf("server failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

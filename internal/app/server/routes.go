package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"holesync/internal/config"
	"holesync/internal/metrics"
	"holesync/internal/syncer"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAdmin checks the bearer token against the bcrypt hash from the
// settings file. An empty hash leaves the API open, which is the expected
// state on a trusted LAN.
func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hash := config.GetConfig().Server.AdminTokenHash
		if hash == "" {
			next(w, r)
			return
		}

		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || token == "" {
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// OpenRoutes serves the daemon API until ctx is done.
func OpenRoutes(ctx context.Context, port int, service *syncer.Service) error {
	handlers := &syncHandlers{service: service}

	router := http.NewServeMux()
	router.HandleFunc("GET /health", health)
	router.HandleFunc("GET /status", requireAdmin(handlers.getStatus))
	router.HandleFunc("POST /sync", requireAdmin(handlers.triggerSync))
	router.HandleFunc("GET /history", requireAdmin(handlers.listHistory))
	router.HandleFunc("GET /history/{id}", requireAdmin(handlers.getHistoryRun))
	router.Handle("GET /metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           enableCORS(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting API server on port %d", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

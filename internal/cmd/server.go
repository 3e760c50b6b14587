package main

import (
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"
)

func setupServer(services *Services) *http.Server {
	mux := http.NewServeMux()
	services.Gateway.RegisterRoutes(mux)
	mux.HandleFunc("/health", handleHealth)

	// cors covers the plain HTTP endpoints; the WebSocket upgrader runs its
	// own origin check.
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
		AllowedHeaders: []string{"*"},
	}).Handler(mux)

	return &http.Server{
		Addr:              net.JoinHostPort("", getEnv("PORT", "8080")),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

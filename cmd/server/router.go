package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/enem-practice/backend/internal/auth"
	"github.com/enem-practice/backend/internal/history"
	"github.com/enem-practice/backend/internal/logger"
	"github.com/enem-practice/backend/internal/middleware"
	"github.com/enem-practice/backend/internal/questions"
)

type routerDeps struct {
	log            *logger.Logger
	verifier       *auth.Verifier
	history        *history.Service
	questions      questions.Source
	allowedOrigins []string
	// ready is checked by /health when set.
	ready func(context.Context) error
}

func newRouter(d routerDeps) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(d.log))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if d.ready != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := d.ready(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Public question proxy
	questions.NewHandler(d.questions, d.log).RegisterRoutes(r)

	// Protected routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(d.verifier, d.log))
	api.Use(middleware.RecordCaller)
	history.NewHandler(d.history).RegisterRoutes(api)

	c := cors.New(cors.Options{
		AllowedOrigins:   d.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	return c.Handler(r)
}

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/phone"
	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead intake API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/v1/leads", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Name    string `json:"name"`
				Phone   string `json:"phone"`
				Address string `json:"address"`
				Niche   string `json:"niche"`
				MapsURL string `json:"maps_url"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			if body.Name == "" || body.Phone == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and phone are required"})
				return
			}

			lead := model.Lead{
				Name:    body.Name,
				Phone:   body.Phone,
				Address: body.Address,
				Niche:   body.Niche,
				MapsURL: body.MapsURL,
				Status:  model.StatusPending,
			}
			if base, ok := phone.BaseNumber(body.Phone); ok {
				lead.BaseNumber = base
			}

			n, err := st.InsertLeads(req.Context(), []model.Lead{lead})
			if err != nil {
				zap.L().Error("lead intake failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
				return
			}
			writeJSON(w, http.StatusCreated, map[string]int64{"inserted": n})
		})

		r.Get("/v1/leads", func(w http.ResponseWriter, req *http.Request) {
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			leads, err := st.ListLeads(req.Context(), store.LeadFilter{
				Status: model.DeliveryStatus(req.URL.Query().Get("status")),
				Niche:  req.URL.Query().Get("niche"),
				Limit:  limit,
			})
			if err != nil {
				zap.L().Error("list leads failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, leads)
		})

		r.Get("/v1/summary", func(w http.ResponseWriter, req *http.Request) {
			counts, err := st.CountByStatus(req.Context())
			if err != nil {
				zap.L().Error("count by status failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, counts)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

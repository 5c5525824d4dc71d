package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/store"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
	jwtpkg "github.com/BigBr41n/Dz-Stores-Finder/internal/platform/jwt"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/storage"
)

// Deps carries everything the router serves.
type Deps struct {
	Users  *user.Service
	Stores *store.Service
	Tokens *jwtpkg.Manager
	Logos  storage.Storage
	Log    *zap.Logger

	// Ready pings the backing database; nil means always ready.
	Ready func(ctx context.Context) error

	UploadMaxBytes    int64
	AuthRatePerMinute int
	AuthRateBurst     int
}

type Handler struct {
	userSvc   *user.Service
	storeSvc  *store.Service
	jwtMgr    *jwtpkg.Manager
	logos     storage.Storage
	log       *zap.Logger
	ready     func(ctx context.Context) error
	maxUpload int64
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.UploadMaxBytes <= 0 {
		d.UploadMaxBytes = 2 << 20
	}
	if d.AuthRatePerMinute <= 0 {
		d.AuthRatePerMinute = 20
	}
	if d.AuthRateBurst <= 0 {
		d.AuthRateBurst = 5
	}

	h := &Handler{
		userSvc:   d.Users,
		storeSvc:  d.Stores,
		jwtMgr:    d.Tokens,
		logos:     d.Logos,
		log:       d.Log.Named("http"),
		ready:     d.Ready,
		maxUpload: d.UploadMaxBytes,
	}

	authLimit := RateLimit(rate.Every(time.Minute/time.Duration(d.AuthRatePerMinute)), d.AuthRateBurst)
	protect := AuthMiddleware(d.Tokens, d.Users)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(RequestLogger(h.log))
	r.Use(CORSMiddleware)
	r.Use(SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimit)
			r.Post("/signup", h.handleSignUp)
			r.Post("/login", h.handleLogin)
			r.Get("/verify", h.handleVerify)
			r.Post("/forgotPassword", h.handleForgotPassword)
			r.Post("/verifyResetCode", h.handleVerifyResetCode)
			r.Post("/refresh", h.handleRefresh)
			r.With(protect).Put("/change-password", h.handleChangePassword)
		})

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", h.handleListStores)
			r.Get("/search", h.handleSearchStores)
			r.Get("/by-name", h.handleSearchByName)
			r.Get("/wilaya/{wilaya}", h.handleFilterByWilaya)
			r.Get("/{storeId}", h.handleGetStore)
			r.Get("/{storeId}/logo", h.handleGetLogo)

			r.Group(func(r chi.Router) {
				r.Use(protect)
				r.Post("/", h.handleCreateStore)
				r.Put("/{storeId}", h.handleUpdateStore)
				r.Delete("/{storeId}", h.handleDeleteStore)
				r.Post("/{storeId}/rating", h.handleRateStore)
				r.Post("/{storeId}/logo", h.handleUploadLogo)
				r.With(RequireRole(user.RoleAdmin, user.RoleEditor)).Patch("/{storeId}/verify", h.handleVerifyStore)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(protect)
			r.Get("/me", h.handleMe)
			r.Get("/me/stores", h.handleMyStores)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(user.RoleAdmin))
				r.Get("/", h.handleListUsers)
				r.Patch("/{id}/role", h.handleUpdateUserRole)
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.ready(ctx); err != nil {
		h.log.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

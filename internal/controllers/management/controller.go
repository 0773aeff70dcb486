// Package management implements the admin panel API: service status, systemd
// unit control, .env editing, log readout, and session inspection.
package management

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/yishaik/winter-wellness-bot/internal/history"
	"github.com/yishaik/winter-wellness-bot/internal/log"
	"github.com/yishaik/winter-wellness-bot/pkg/config"
)

// Controller represents the management API controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	cfg      *config.ConfigData
	mgmt     config.ManagementData
	history  history.Source
	Server   http.Server
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new management API controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, src history.Source, logger *zap.SugaredLogger) (*Controller, error) {
	ctrl := &Controller{
		ctx:     ctx,
		wg:      wg,
		cfg:     cfg,
		mgmt:    cfg.Management,
		history: src,
		logger:  logger,
	}

	if ctrl.mgmt.Port == 0 {
		logger.Info("management API port not specified; defaulting to 8081")
		ctrl.mgmt.Port = 8081
	}
	if ctrl.mgmt.ListenAddr == "" {
		logger.Info("management API listen-addr not provided; defaulting to 127.0.0.1 (localhost only)")
		ctrl.mgmt.ListenAddr = "127.0.0.1"
	}

	if ctrl.mgmt.AuthToken == "" {
		ctrl.mgmt.AuthToken = generateAuthToken()
		logger.Infof("management API access token generated: %s", ctrl.mgmt.AuthToken)
		logger.Info("set MGMT_AUTH_TOKEN to keep the token stable across restarts")
	}

	ctrl.handlers = NewHandlers(ctrl)

	router := ctrl.setupRouter()
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", ctrl.mgmt.ListenAddr, ctrl.mgmt.Port)
	ctrl.Server.Handler = router

	return ctrl, nil
}

// StartController starts the management API server
func (c *Controller) StartController() error {
	log.Info("Starting management API controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		c.logger.Infof("Management API server starting on %s", c.Server.Addr)

		var err error
		if c.mgmt.Cert != "" && c.mgmt.Key != "" {
			err = c.Server.ListenAndServeTLS(c.mgmt.Cert, c.mgmt.Key)
		} else {
			err = c.Server.ListenAndServe()
		}

		if err != http.ErrServerClosed {
			log.Errorf("Management API server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the management API server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.Use(c.loggingMiddleware)
	router.Use(c.corsMiddleware)

	// Authentication routes (no auth required)
	router.HandleFunc("/login", c.handlers.Login).Methods("POST")
	router.HandleFunc("/logout", c.handlers.Logout).Methods("POST")
	router.HandleFunc("/auth/status", c.handlers.GetAuthStatus).Methods("GET")

	// API routes (with authentication)
	api := router.PathPrefix("/api").Subrouter()
	api.Use(c.authMiddleware)

	api.HandleFunc("/status", c.handlers.GetStatus).Methods("GET")
	api.HandleFunc("/config", c.handlers.GetConfig).Methods("GET")

	// System endpoints
	api.HandleFunc("/system/info", c.handlers.GetSystemInfo).Methods("GET")
	api.HandleFunc("/system/services", c.handlers.GetServices).Methods("GET")
	api.HandleFunc("/system/services/{unit}", c.handlers.GetService).Methods("GET")
	api.HandleFunc("/system/services/{unit}/{action}", c.handlers.ControlService).Methods("POST")

	// Environment file management
	api.HandleFunc("/env", c.handlers.GetEnvFile).Methods("GET")
	api.HandleFunc("/env", c.handlers.UpdateEnvFile).Methods("PUT")

	// Session inspection (same view the bot has)
	api.HandleFunc("/sessions", c.handlers.GetSessions).Methods("GET")

	// Recent log entries
	api.HandleFunc("/logs", c.handlers.GetLogs).Methods("GET")

	return router
}

// loggingMiddleware logs all requests except for noisy endpoints
func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		// Don't log requests to /api/logs to avoid cluttering the log viewer
		if r.RequestURI != "/api/logs" {
			c.logger.Infof("%s %s %s %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
		}
	})
}

// corsMiddleware adds CORS headers
func (c *Controller) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates the bearer token or session cookie
func (c *Controller) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" && authHeader == "Bearer "+c.mgmt.AuthToken {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(sessionCookieName)
		if err == nil && cookie.Value == c.mgmt.AuthToken {
			next.ServeHTTP(w, r)
			return
		}

		http.Error(w, "Authentication required", http.StatusUnauthorized)
	})
}

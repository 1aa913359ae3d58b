package server

import (
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"foodshare/internal/identity"
	"foodshare/internal/imagehost"
	"foodshare/internal/metrics"
	"foodshare/internal/view"
	"foodshare/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var uiFS embed.FS
var decoder = form.NewDecoder()

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	templates *template.Template

	foods    view.FoodService
	uploader imagehost.Uploader
	provider identity.Provider
	registry *view.Registry
	metrics  *metrics.Metrics

	cookie *securecookie.SecureCookie

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	foods view.FoodService,
	uploader imagehost.Uploader,
	provider identity.Provider,
	registry *view.Registry,
	m *metrics.Metrics,
) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("decode cookie block key: %w", err)
	}

	cookie := securecookie.New(hashKey, blockKey)
	if config.SessionMaxAgeSec > 0 {
		cookie.MaxAge(config.SessionMaxAgeSec)
	}

	s := &Service{
		logger:   logger,
		config:   config,
		foods:    foods,
		uploader: uploader,
		provider: provider,
		registry: registry,
		metrics:  m,
		cookie:   cookie,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)

	// Wrapped outside the mux so unmatched paths are logged and trailing
	// slashes are stripped before routing.
	s.server.Handler = s.LoggingMiddleware(s.StripTrailingSlash(mux))

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler(), http.MethodGet)
	}

	staticRoot, err := fs.Sub(uiFS, "static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to mount static assets")
	}
	r.Handle("/static/...", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))), http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.LoadIdentity)

		r.HandleFunc("/", s.handleHome, http.MethodGet)
		r.HandleFunc("/foods", s.handleFoods, http.MethodGet)
		r.HandleFunc("/foods/search/:input", s.handleFoods, http.MethodGet)
		r.HandleFunc("/available-foods", s.handleLegacyFoods, http.MethodGet)
		r.HandleFunc("/about", s.handleAbout, http.MethodGet)
		r.HandleFunc("/food/:id", s.handleFoodDetail, http.MethodGet)
		r.HandleFunc("/views/:viewID/retry", s.handleRetryView, http.MethodPost)

		r.HandleFunc("/register", s.handleGetRegister, http.MethodGet)
		r.HandleFunc("/register", s.handlePostRegister, http.MethodPost)
		r.HandleFunc("/register/confirm", s.handleGetRegisterConfirm, http.MethodGet)
		r.HandleFunc("/register/confirm", s.handlePostRegisterConfirm, http.MethodPost)
		r.HandleFunc("/login", s.handleGetLogin, http.MethodGet)
		r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
		r.HandleFunc("/logout", s.handlePostLogout, http.MethodPost)
		r.HandleFunc("/reset-password", s.handleGetResetPassword, http.MethodGet)
		r.HandleFunc("/reset-password", s.handlePostResetPassword, http.MethodPost)
		r.HandleFunc("/auth/google", s.handleGoogleAuth, http.MethodGet)
		r.HandleFunc("/auth/callback", s.handleGoogleCallback, http.MethodGet)

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireAuth)

			r.HandleFunc("/food/:id/requests", s.handleSubmitRequest, http.MethodPost)
			r.HandleFunc("/food/:id/requests/:requestID", s.handleChangeRequestStatus, http.MethodPost)
			r.HandleFunc("/food/:id/donated", s.handleFoodDonated, http.MethodPost)

			r.HandleFunc("/add-food", s.handleGetAddFood, http.MethodGet)
			r.HandleFunc("/add-food", s.handlePostAddFood, http.MethodPost)
			r.HandleFunc("/update-food/:id", s.handleGetUpdateFood, http.MethodGet)
			r.HandleFunc("/update-food/:id", s.handlePostUpdateFood, http.MethodPost)

			r.HandleFunc("/my-foods", s.handleMyFoods, http.MethodGet)
			r.HandleFunc("/my-foods/:id/delete", s.handleDeleteMyFood, http.MethodPost)
			r.HandleFunc("/my-foods/:id/donated", s.handleMyFoodDonated, http.MethodPost)
			r.HandleFunc("/my-requests", s.handleMyRequests, http.MethodGet)
		})
	})
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"fieldError": func(errs map[string]string, key string) string {
			return errs[key]
		},
		"date": func(t *time.Time) string {
			if t == nil || t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"initial": func(name string) string {
			name = strings.TrimSpace(name)
			if name == "" {
				return "?"
			}
			return strings.ToUpper(name[:1])
		},
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

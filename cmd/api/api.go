package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pressroom/docs" // required to register swagger docs
	"pressroom/internal/auth"
	"pressroom/internal/domain/storage"
	"pressroom/internal/mailer"
	"pressroom/internal/ratelimiter"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         *storage.Container
	logger        *zap.SugaredLogger
	cld           *cloudinary.Cloudinary
	mailer        mailer.Client
	authenticator auth.Authenticator
	rateLimiter   *ratelimiter.FixedWindowRateLimiter
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	apiURL      string
	mail        mailConfig
	frontendURL string
	auth        authConfig
	slugSalt    string
	rateLimiter ratelimiter.Config
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}
type tokenConfig struct {
	secret          string
	refreshSecret   string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}
type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	fromEmail string
	mailtrap  mailTrapConfig
	smtp      smtpConfig
}

type mailTrapConfig struct {
	apiKey string
}

type smtpConfig struct {
	host     string
	port     int
	username string
	password string
}

type dbConfig struct {
	addr        string
	maxConns    int32
	maxIdleTime string
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Request-scoped timeout; handlers add tighter ones where needed.
	r.Use(middleware.Timeout(60 * time.Second))

	r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
	r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

	docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

	r.Route("/auth", func(r chi.Router) {
		r.Use(app.RateLimiterMiddleware)
		r.Post("/register", app.registerUserHandler)
		r.Post("/login", app.createTokenHandler)
		r.Post("/refresh", app.refreshTokenHandler)
		r.Post("/logout", app.logoutHandler)
		r.With(app.AuthTokenMiddleware).Get("/me", app.getCurrentUserHandler)
	})

	r.Route("/subscriptions", func(r chi.Router) {
		r.Use(app.AuthTokenMiddleware)
		r.Get("/status", app.getSubscriptionStatusHandler)
		r.Post("/", app.createSubscriptionHandler)
		r.Delete("/{subscriptionID}", app.cancelSubscriptionHandler)
	})

	r.Route("/content", func(r chi.Router) {
		r.Route("/articles", func(r chi.Router) {
			// Public reads; the gate decides how much body goes out.
			r.With(app.OptionalAuthMiddleware).Get("/", app.listPublishedArticlesHandler)
			r.With(app.OptionalAuthMiddleware).Get("/{slug}", app.getArticleHandler)
			r.Post("/{slug}/share", app.shareArticleHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.AuthTokenMiddleware)
				r.Get("/mine", app.listOwnArticlesHandler)
				r.Post("/", app.createArticleHandler)
				r.Patch("/{articleID}", app.updateArticleHandler)
				r.Delete("/{articleID}", app.deleteArticleHandler)
				r.Post("/{articleID}/publish", app.publishArticleHandler)
				r.Post("/{articleID}/hide", app.hideArticleHandler)
				r.Post("/{articleID}/archive", app.archiveArticleHandler)
				r.Post("/{articleID}/unarchive", app.unarchiveArticleHandler)
				r.Post("/bulk/{action}", app.bulkArticlesHandler)
			})
		})

		r.Route("/albums", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/", app.listAlbumsHandler)
			r.Post("/", app.createAlbumHandler)
			r.Patch("/{albumID}", app.updateAlbumHandler)
			r.Delete("/{albumID}", app.deleteAlbumHandler)
			r.Post("/{albumID}/publish", app.publishAlbumHandler)
			r.Post("/{albumID}/hide", app.hideAlbumHandler)
			r.Post("/{albumID}/archive", app.archiveAlbumHandler)
			r.Post("/{albumID}/unarchive", app.unarchiveAlbumHandler)
		})

		r.Route("/media", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Get("/", app.listMediaHandler)
			r.Post("/", app.uploadMediaHandler)
			r.Patch("/{mediaID}/visibility", app.setMediaVisibilityHandler)
			r.Delete("/{mediaID}", app.deleteMediaHandler)
			r.Post("/bulk/visibility", app.bulkMediaVisibilityHandler)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(app.AuthTokenMiddleware)
		r.Use(app.RequireAdminTier)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", app.listUsersHandler)
			r.Get("/pending", app.listPendingUsersHandler)
			r.Post("/{userID}/approve", app.approveUserHandler)
			r.Delete("/{userID}/reject", app.rejectUserHandler)
			r.Post("/{userID}/suspend", app.suspendUserHandler)
			r.Post("/{userID}/unsuspend", app.unsuspendUserHandler)
			r.Post("/{userID}/role", app.assignCustomRoleHandler)
			r.Delete("/{userID}/role", app.clearCustomRoleHandler)
			r.Post("/bulk/approve", app.bulkApproveUsersHandler)
			r.Post("/bulk/suspend", app.bulkSuspendUsersHandler)
		})

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", app.listCustomRolesHandler)
			r.Post("/", app.createCustomRoleHandler)
			r.Get("/{roleID}", app.getCustomRoleHandler)
			r.Patch("/{roleID}/active", app.setCustomRoleActiveHandler)
			r.Delete("/{roleID}", app.deleteCustomRoleHandler)
			r.Put("/{roleID}/permissions", app.setRolePermissionsHandler)
		})

		r.Get("/permissions", app.listPermissionsHandler)
		r.Post("/permissions", app.ensurePermissionHandler)

		r.Route("/writers", func(r chi.Router) {
			r.Get("/{editorID}", app.listWriterAssignmentsHandler)
			r.Post("/", app.assignWriterHandler)
			r.Delete("/{editorID}/{writerID}", app.removeWriterHandler)
		})
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}

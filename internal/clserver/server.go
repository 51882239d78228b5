package clserver

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"timetracker/internal/clmiddleware"
	handlers_auth "timetracker/internal/handlers/auth"
	handlers_tracker "timetracker/internal/handlers/tracker"
	"timetracker/internal/models/cltimetracker"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	htmlmin "github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

const loginRateLimit = 5

// New construit le moteur gin: templates, middlewares et routes
func New(app *cltimetracker.Timetracker, templatesFS fs.FS, staticFS fs.FS) (*gin.Engine, error) {
	config := app.Configuration
	if config.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	if config.TrustedProxies != nil {
		if err := r.SetTrustedProxies(config.TrustedProxies); err != nil {
			return nil, fmt.Errorf("trustedproxies: %w", err)
		}
	}
	if config.TrustedPlatform != "" {
		switch config.TrustedPlatform {
		case "cloudflare":
			r.TrustedPlatform = gin.PlatformCloudflare
		case "google":
			r.TrustedPlatform = gin.PlatformGoogleAppEngine
		case "flyio":
			r.TrustedPlatform = gin.PlatformFlyIO
		default:
			r.TrustedPlatform = config.TrustedPlatform
		}
	}

	// parser les templates
	tmpl, err := GetTemplates(templatesFS, config.Production)
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	clmiddleware.InitMiddleware(r, config)
	SetRoutes(r, app, staticFS)
	return r, nil
}

func SetRoutes(r *gin.Engine, app *cltimetracker.Timetracker, staticFS fs.FS) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)

	config := app.Configuration
	tracker := handlers_tracker.NewTrackerHandler(app.Tracker, config.Tracker, app.Version)
	auth := handlers_auth.NewAuthHandler(config, app.Captcha)

	// middlewares rate limiter
	updateLimiter := clmiddleware.NewLimiter(app.Redis, "update", config.Tracker.RateLimit)
	loginLimiter := clmiddleware.NewLimiter(app.Redis, "login", loginRateLimit)

	//default
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page non trouvée"})
	})

	// Route statiques
	r.GET("/files/css/*filepath", ServeMinifiedStatic(staticFS, m))
	r.GET("/files/js/*filepath", ServeMinifiedStatic(staticFS, m))
	r.GET("/files/captcha", app.Captcha.CaptchaHandler)

	// Routes publiques
	r.GET("/", tracker.Index)
	r.GET("/shortcode", tracker.Shortcode)

	api := r.Group("/api")
	{
		api.GET("/time", tracker.Time)
		api.GET("/time/nonce", tracker.Nonce)
		api.POST("/time/update", updateLimiter, clmiddleware.SameOrigin(config.Tracker.AllowedOrigins), tracker.Update)
		api.POST("/login", loginLimiter, auth.Login)
		api.POST("/logout", auth.Logout)
	}
}

// Run sert jusqu'à l'annulation du contexte puis arrête le serveur en
// laissant 10s aux requêtes en cours.
func Run(ctx context.Context, r http.Handler, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("Website démarré sur http://%s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Arrêt du serveur")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("arrêt du serveur: %w", err)
	}
	return <-errCh
}

func ServeMinifiedStatic(staticFS fs.FS, m *minify.M) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := strings.TrimPrefix(c.Request.URL.Path, "/files/")
		content, err := fs.ReadFile(staticFS, "ressources/"+path)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Fichier non trouvé"})
			return
		}

		var contentType string
		var minified []byte

		switch filepath.Ext(path) {
		case ".css":
			contentType = "text/css"
			minified, err = m.Bytes("text/css", content)
		case ".js":
			contentType = "application/javascript"
			minified, err = m.Bytes("application/javascript", content)
		default:
			c.Data(http.StatusOK, "application/octet-stream", content)
			return
		}

		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("minification impossible")
			minified = content
		}

		etag := generateETag(minified)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}

		// En-têtes de cache pour CSS et JS
		c.Header("Cache-Control", "public, max-age=86400")
		c.Header("ETag", etag)

		c.Data(http.StatusOK, contentType, minified)
	}
}

// Fonction helper pour générer un ETag
func generateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return fmt.Sprintf(`"%x"`, hash[:16])
}

// GetTemplates charge les templates html, minifiés en production
func GetTemplates(templatesFS fs.FS, production bool) (*template.Template, error) {
	m := minify.New()
	if production {
		m.AddFunc("text/html", htmlmin.Minify)
	}

	tmpl := template.New("")

	err := fs.WalkDir(templatesFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".html" {
			return err
		}

		content, err := fs.ReadFile(templatesFS, path)
		if err != nil {
			return err
		}
		minified, err := m.Bytes("text/html", content)
		if err != nil {
			minified = content
		}

		if _, err := tmpl.New(path).Parse(string(minified)); err != nil {
			return fmt.Errorf("template %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

package clmiddleware

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"timetracker/internal/models/clconfig"
	"timetracker/internal/models/cllog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const (
	sessionName     = "timetracker"
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

func InitMiddleware(r *gin.Engine, config *clconfig.Config) {
	// logger
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(Recovery())

	// use Compression, with gzip
	r.Use(gzip.Gzip(gzip.BestSpeed))

	// Configuration des sessions
	r.Use(NewSession(config.Tracker.SessionSecret, config.Production))
	r.Use(Identity())
	r.Use(TrackerSession(config.Tracker.CookieName, config.Tracker.CookieDays, config.Production))

	// Calculate time elapsed
	r.Use(RenderTime())

	// CORS
	r.Use(CORS(config.Tracker.AllowedOrigins))
}

// NewLimiter limite le nombre de requêtes par minute et par IP. Le compteur
// est partagé via redis quand un client est fourni.
func NewLimiter(client *redis.Client, prefix string, perMinute int64) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  perMinute,
	}

	var store limiter.Store = memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "limiter:" + prefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
	if client != nil {
		rstore, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   "limiter:" + prefix,
			MaxRetry: 3,
		})
		if err != nil {
			log.Error().Err(err).Str("limiter", prefix).Msg("store redis indisponible, limiteur en mémoire")
		} else {
			store = rstore
		}
	}

	instance := limiter.New(store, rate)
	return ginlimiter.NewMiddleware(instance, ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
		log.Warn().Str("ip", c.ClientIP()).Str("limiter", prefix).Msg("Limite de requêtes atteinte")
		c.JSON(http.StatusTooManyRequests, gin.H{"success": false, "data": "Too many requests"})
	}))
}

// NewSession configure la session signée. Sans secret configuré une clé
// aléatoire est générée et les sessions sont perdues au redémarrage.
func NewSession(secret string, production bool) gin.HandlerFunc {
	key := []byte(secret)
	if secret == "" {
		log.Warn().Msg("tracker.sessionsecret vide, clé de session aléatoire")
		key = generateSecretKey()
	}
	store := cookie.NewStore(key)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(sessionName, store)
}

// RequestID reprend l'en-tête X-Request-ID ou en génère un
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		logger := cllog.WithRequestID(id)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Traiter la requête
		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		var logEvent *zerolog.Event
		switch {
		case statusCode == 404:
			logEvent = log.Debug()
		case statusCode >= 500:
			logEvent = log.Error()
		case statusCode >= 400:
			logEvent = log.Warn()
		default:
			logEvent = log.Info()
		}

		logEvent.
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("body_size", c.Writer.Size()).
			Msg("HTTP Request")

		for _, err := range c.Errors {
			log.Error().
				Err(err.Err).
				Str("request_id", c.GetString(requestIDKey)).
				Str("type", strconv.FormatUint(uint64(err.Type), 10)).
				Msg("Request error")
		}
	}
}

func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("path", c.Request.URL.Path).
					Str("method", c.Request.Method).
					Msg("Panic recovered")

				c.AbortWithStatus(500)
			}
		}()
		c.Next()
	}
}

func RenderTime() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Stocker le temps de début pour utilisation dans les handlers
		c.Set("requestStart", time.Now())
		c.Next()
	}
}

func GetRenderTime(c *gin.Context) string {
	start, ok := c.Get("requestStart")
	if !ok {
		return ""
	}
	return fmt.Sprintf("Page générée en %s", formatDuration(time.Since(start.(time.Time))))
}

// Générer une clé secrète aléatoire
func generateSecretKey() []byte {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		log.Fatal().Err(err).Msg("Erreur génération clé secrète")
	}
	return key
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", int(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", int(d.Nanoseconds())/1e6)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

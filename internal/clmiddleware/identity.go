package clmiddleware

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"timetracker/internal/models/cltracker"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	SessionUserKey  = "user_id"
	SessionNonceKey = "nonce"

	contextUserID    = "user_id"
	contextSessionID = "tracker_session_id"
)

// Identity place l'utilisateur authentifié de la session dans le contexte
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if id, ok := session.Get(SessionUserKey).(uint); ok && id != 0 {
			c.Set(contextUserID, id)
		}
		c.Next()
	}
}

// TrackerSession lit le cookie de session du timer, le crée s'il est absent
// ou invalide. Le cookie reste lisible par le script du timer.
func TrackerSession(cookieName string, days int, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookieName)
		if err != nil || !cltracker.ValidSessionID(id) {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookieName, id, days*86400, "/", "", production, false)
		}
		c.Set(contextSessionID, id)
		c.Next()
	}
}

// UserID retourne l'utilisateur authentifié, nil pour un invité
func UserID(c *gin.Context) *uint {
	if v, ok := c.Get(contextUserID); ok {
		id := v.(uint)
		return &id
	}
	return nil
}

// SessionID retourne le jeton de session du timer de la requête
func SessionID(c *gin.Context) string {
	return c.GetString(contextSessionID)
}

func Viewer(c *gin.Context) cltracker.Viewer {
	return cltracker.Viewer{
		UserID:    UserID(c),
		SessionID: SessionID(c),
	}
}

// IssueNonce retourne le jeton d'authenticité de la session, créé au besoin
func IssueNonce(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if nonce, ok := session.Get(SessionNonceKey).(string); ok && nonce != "" {
		return nonce, nil
	}
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	session.Set(SessionNonceKey, nonce)
	return nonce, session.Save()
}

func VerifyNonce(c *gin.Context, nonce string) bool {
	stored, ok := sessions.Default(c).Get(SessionNonceKey).(string)
	if !ok || stored == "" || nonce == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(nonce)) == 1
}

// SameOrigin refuse les requêtes dont l'Origin (ou à défaut le Referer) ne
// correspond ni à l'hôte servi ni à une origine autorisée.
func SameOrigin(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = refererOrigin(c.Request.Referer())
		}
		if !originAllowed(origin, c.Request.Host, allowed) {
			log.Warn().
				Str("origin", origin).
				Str("ip", c.ClientIP()).
				Msg("Requête refusée, origine invalide")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "data": "Invalid origin"})
			return
		}
		c.Next()
	}
}

func CORS(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && originListed(origin, allowed) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func refererOrigin(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func originAllowed(origin string, host string, allowed []string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, host) {
		return true
	}
	return originListed(origin, allowed)
}

func originListed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(strings.TrimRight(a, "/"), origin) {
			return true
		}
	}
	return false
}

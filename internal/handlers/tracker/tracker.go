package handlers_tracker

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"timetracker/internal/clmiddleware"
	"timetracker/internal/models/clconfig"
	"timetracker/internal/models/cltracker"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type TrackerHandler struct {
	service *cltracker.Service
	config  clconfig.TrackerConfig
	version string
}

func NewTrackerHandler(service *cltracker.Service, config clconfig.TrackerConfig, version string) *TrackerHandler {
	return &TrackerHandler{
		service: service,
		config:  config,
		version: version,
	}
}

// UpdateRequest est envoyée par le timer, en formulaire ou en JSON
type UpdateRequest struct {
	SessionID string      `form:"session_id" json:"session_id"`
	TimeSpent json.Number `form:"time_spent" json:"time_spent"`
	Nonce     string      `form:"nonce" json:"nonce"`
}

func ack(c *gin.Context, status int, success bool, data string) {
	c.JSON(status, gin.H{"success": success, "data": data})
}

// Update enregistre la valeur cumulée envoyée par le timer
func (th *TrackerHandler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBind(&req); err != nil {
		ack(c, http.StatusBadRequest, false, "Invalid data")
		return
	}

	if !clmiddleware.VerifyNonce(c, req.Nonce) {
		log.Warn().Str("ip", c.ClientIP()).Msg("Mise à jour refusée, nonce invalide")
		ack(c, http.StatusForbidden, false, "Invalid nonce")
		return
	}

	err := th.service.Record(c.Request.Context(), cltracker.Update{
		SessionID: req.SessionID,
		TimeSpent: parseSeconds(req.TimeSpent),
		UserID:    clmiddleware.UserID(c),
		IPAddress: c.ClientIP(),
	})
	switch {
	case errors.Is(err, cltracker.ErrInvalidData):
		ack(c, http.StatusBadRequest, false, "Invalid data")
	case err != nil:
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("Erreur enregistrement du temps")
		ack(c, http.StatusInternalServerError, false, "Database error")
	default:
		ack(c, http.StatusOK, true, "Time updated")
	}
}

// Nonce donne au client son jeton d'authenticité et son identifiant de session
func (th *TrackerHandler) Nonce(c *gin.Context) {
	nonce, err := clmiddleware.IssueNonce(c)
	if err != nil {
		log.Error().Err(err).Msg("Erreur session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur session"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"nonce":      nonce,
		"session_id": clmiddleware.SessionID(c),
	})
}

// Time retourne le temps passé d'un utilisateur, formaté ou en secondes
func (th *TrackerHandler) Time(c *gin.Context) {
	userID := parseUserID(c.Query("user_id"))
	seconds, err := th.service.UserTime(c.Request.Context(), userID, clmiddleware.Viewer(c))
	if err != nil {
		log.Error().Err(err).Msg("lecture du temps passé")
		seconds = 0
	}

	if format, _ := strconv.ParseBool(c.DefaultQuery("format", "true")); !format {
		c.JSON(http.StatusOK, gin.H{"seconds": seconds})
		return
	}
	c.JSON(http.StatusOK, gin.H{"time": cltracker.FormatHMS(seconds)})
}

// Shortcode rend le fragment HTML current, total ou all
func (th *TrackerHandler) Shortcode(c *gin.Context) {
	html := th.service.UserTimeHTML(c.Request.Context(), cltracker.Query{
		UserID:  parseUserID(c.Query("user_id")),
		Display: cltracker.ParseDisplay(c.Query("display")),
		Viewer:  clmiddleware.Viewer(c),
	})
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (th *TrackerHandler) Index(c *gin.Context) {
	nonce, err := clmiddleware.IssueNonce(c)
	if err != nil {
		log.Error().Err(err).Msg("Erreur session")
	}

	ctx := c.Request.Context()
	viewer := clmiddleware.Viewer(c)
	c.HTML(http.StatusOK, "index", gin.H{
		"title":          "Time on site",
		"current":        th.service.UserTimeHTML(ctx, cltracker.Query{Display: cltracker.DisplayCurrent, Viewer: viewer}),
		"total":          th.service.UserTimeHTML(ctx, cltracker.Query{Display: cltracker.DisplayTotal, Viewer: viewer}),
		"all":            th.service.UserTimeHTML(ctx, cltracker.Query{Display: cltracker.DisplayAll, Viewer: viewer}),
		"nonce":          nonce,
		"sessionID":      viewer.SessionID,
		"authenticated":  viewer.UserID != nil,
		"cookieName":     th.config.CookieName,
		"cookieDays":     th.config.CookieDays,
		"reportInterval": th.config.ReportInterval,
		"version":        th.version,
		"renderTime":     clmiddleware.GetRenderTime(c),
	})
}

// parseUserID ignore les valeurs non numériques ou nulles
func parseUserID(s string) *uint {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 0)
	if err != nil || v == 0 {
		return nil
	}
	id := uint(v)
	return &id
}

// parseSeconds tronque les valeurs décimales ("30.5" vaut 30). Tout ce qui
// n'est pas un nombre fini donne 0, refusé ensuite par Record.
func parseSeconds(n json.Number) int64 {
	if seconds, err := n.Int64(); err == nil {
		return seconds
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int64(f)
}

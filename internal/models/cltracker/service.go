package cltracker

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrInvalidData est retournée quand une mise à jour est refusée
var ErrInvalidData = errors.New("invalid data")

// Display choisit ce que rend le shortcode
type Display string

const (
	DisplayCurrent Display = "current"
	DisplayTotal   Display = "total"
	DisplayAll     Display = "all"
)

// ParseDisplay: vide vaut current, toute valeur inconnue se comporte comme total
func ParseDisplay(s string) Display {
	switch Display(strings.ToLower(strings.TrimSpace(s))) {
	case "", DisplayCurrent:
		return DisplayCurrent
	case DisplayAll:
		return DisplayAll
	default:
		return DisplayTotal
	}
}

// Viewer identifie l'appelant: utilisateur authentifié éventuel et jeton de session
type Viewer struct {
	UserID    *uint
	SessionID string
}

// Query décrit une lecture du temps passé
type Query struct {
	UserID  *uint
	Display Display
	Viewer  Viewer
}

// Locator résout le pays d'une adresse IP
type Locator interface {
	Country(ip string) string
}

// Labels sont les libellés des fragments HTML
type Labels struct {
	Current string
	Total   string
}

// Service regroupe la mise à jour et la lecture des temps
type Service struct {
	store   *Store
	labels  Labels
	locator Locator
}

func NewService(store *Store, labels Labels, locator Locator) *Service {
	return &Service{
		store:   store,
		labels:  labels,
		locator: locator,
	}
}

func (s *Service) Store() *Store {
	return s.store
}

// ValidSessionID accepte uniquement des jetons alphanumériques, '-' et '_'
func ValidSessionID(id string) bool {
	if id == "" || len(id) > MaxSessionIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Record valide puis enregistre une mise à jour du timer
func (s *Service) Record(ctx context.Context, u Update) error {
	u.SessionID = strings.TrimSpace(u.SessionID)
	if !ValidSessionID(u.SessionID) || u.TimeSpent <= 0 {
		return ErrInvalidData
	}
	if s.locator != nil && u.Country == "" {
		u.Country = s.locator.Country(u.IPAddress)
	}
	return s.store.Upsert(ctx, u)
}

// ResolveUser: utilisateur explicite, sinon utilisateur authentifié, sinon aucun
func ResolveUser(explicit *uint, viewer Viewer) *uint {
	if explicit != nil {
		return explicit
	}
	return viewer.UserID
}

// UserTime retourne le total en secondes d'un utilisateur, ou à défaut celui
// de la session de l'appelant.
func (s *Service) UserTime(ctx context.Context, userID *uint, viewer Viewer) (int64, error) {
	if user := ResolveUser(userID, viewer); user != nil {
		return s.store.SumForUser(ctx, *user)
	}
	return s.store.SessionTime(ctx, viewer.SessionID)
}

// Seconds calcule la valeur affichée pour une requête. Les erreurs de lecture
// sont journalisées et donnent 0: l'affichage ne doit jamais échouer.
func (s *Service) Seconds(ctx context.Context, q Query) int64 {
	var total int64
	var err error

	switch q.Display {
	case DisplayCurrent:
		return 0
	case DisplayAll:
		total, err = s.store.SumAll(ctx)
	default:
		// sans utilisateur, total additionne toutes les sessions
		if user := ResolveUser(q.UserID, q.Viewer); user != nil {
			total, err = s.store.SumForUser(ctx, *user)
		} else {
			total, err = s.store.SumAll(ctx)
		}
	}

	if err != nil {
		log.Error().Err(err).Str("display", string(q.Display)).Msg("lecture du temps passé")
		return 0
	}
	return total
}

// UserTimeHTML rend le fragment HTML du shortcode
func (s *Service) UserTimeHTML(ctx context.Context, q Query) template.HTML {
	if q.Display == DisplayCurrent {
		return s.fragment("user-time-display", `id="user-time-tracker-display"`, s.labels.Current, FormatHMS(0))
	}
	return s.fragment("user-time-total", "", s.labels.Total, FormatHMS(s.Seconds(ctx, q)))
}

func (s *Service) fragment(class string, attrs string, label string, value string) template.HTML {
	if attrs != "" {
		attrs = " " + attrs
	}
	return template.HTML(fmt.Sprintf(
		`<div class="%s"%s><span class="time-label">%s</span><span class="time-value">%s</span></div>`,
		class, attrs, template.HTMLEscapeString(label), value,
	))
}

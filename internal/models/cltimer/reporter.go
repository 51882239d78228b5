package cltimer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	NoncePath  = "/api/time/nonce"
	UpdatePath = "/api/time/update"
)

// Reporter envoie le temps actif au serveur, sans nouvel essai en cas d'échec
type Reporter struct {
	baseURL   *url.URL
	client    *http.Client
	sessionID string
	nonce     string
}

type nonceResponse struct {
	Nonce     string `json:"nonce"`
	SessionID string `json:"session_id"`
}

type ackResponse struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
}

func NewReporter(baseURL string) (*Reporter, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("url %s invalide: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("url %s invalide: schéma et hôte requis", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Reporter{
		baseURL: u,
		client: &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
		},
	}, nil
}

func (r *Reporter) SessionID() string {
	return r.sessionID
}

func (r *Reporter) origin() string {
	return r.baseURL.Scheme + "://" + r.baseURL.Host
}

// Bootstrap récupère le cookie de session et le jeton d'authenticité
func (r *Reporter) Bootstrap(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL.String()+NoncePath, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bootstrap: statut %d", resp.StatusCode)
	}

	var body nonceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if body.Nonce == "" || body.SessionID == "" {
		return fmt.Errorf("bootstrap: réponse incomplète")
	}
	r.nonce = body.Nonce
	r.sessionID = body.SessionID
	return nil
}

// Report envoie la valeur cumulée du temps actif
func (r *Reporter) Report(ctx context.Context, seconds int64) error {
	form := url.Values{
		"session_id": {r.sessionID},
		"time_spent": {strconv.FormatInt(seconds, 10)},
		"nonce":      {r.nonce},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL.String()+UpdatePath, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", r.origin())

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer resp.Body.Close()

	var ack ackResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("report: statut %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !ack.Success {
		return fmt.Errorf("report: statut %d: %s", resp.StatusCode, ack.Data)
	}
	return nil
}

// Run fait tourner le timer jusqu'à l'annulation du contexte, puis envoie une
// dernière valeur comme le ferait la fermeture de la page. Retourne le temps
// actif final.
func (r *Reporter) Run(ctx context.Context, timer *Timer, tick time.Duration) int64 {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			elapsed := timer.Elapsed(time.Now())
			r.fire(context.Background(), elapsed)
			return elapsed
		case now := <-ticker.C:
			elapsed, report := timer.Tick(now)
			if report {
				r.fire(ctx, elapsed)
			}
		}
	}
}

func (r *Reporter) fire(ctx context.Context, elapsed int64) {
	if elapsed <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Report(ctx, elapsed); err != nil {
		log.Debug().Err(err).Int64("time_spent", elapsed).Msg("mise à jour perdue")
		return
	}
	log.Debug().Int64("time_spent", elapsed).Str("session_id", r.sessionID).Msg("temps envoyé")
}

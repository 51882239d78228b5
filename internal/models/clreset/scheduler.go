package clreset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrAlreadyRunning est retournée quand une remise à zéro est déjà en cours
var ErrAlreadyRunning = errors.New("remise à zéro déjà en cours")

// Resetter efface les compteurs, voir cltracker.Store.Reset
type Resetter interface {
	Reset(ctx context.Context, archive bool) (int64, error)
}

// Scheduler lance la remise à zéro quotidienne des compteurs
type Scheduler struct {
	cron     *cron.Cron
	store    Resetter
	spec     string
	archive  bool
	timeout  time.Duration
	location *time.Location

	mu      sync.Mutex // une seule remise à zéro à la fois
	state   sync.Mutex // protège entry, lastRun, lastErr
	entry   cron.EntryID
	lastRun time.Time
	lastErr error
}

func New(store Resetter, spec string, timezone string, archive bool) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %s invalide: %w", timezone, err)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("planification \"%s\" invalide: %w", spec, err)
	}

	logger := cronLogger{logger: log.Logger.With().Str("component", "reset").Logger()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		store:    store,
		spec:     spec,
		archive:  archive,
		timeout:  5 * time.Minute,
		location: loc,
	}, nil
}

// Start enregistre la tâche et démarre le planificateur
func (s *Scheduler) Start() error {
	s.state.Lock()
	defer s.state.Unlock()

	if s.entry != 0 {
		return nil
	}
	id, err := s.cron.AddFunc(s.spec, s.scheduledRun)
	if err != nil {
		return fmt.Errorf("enregistrement de la remise à zéro: %w", err)
	}
	s.entry = id
	s.cron.Start()

	log.Info().
		Str("spec", s.spec).
		Str("timezone", s.location.String()).
		Time("next", s.cron.Entry(id).Next).
		Msg("Remise à zéro quotidienne planifiée")
	return nil
}

// Stop désenregistre la tâche et attend la fin d'une exécution en cours
func (s *Scheduler) Stop() {
	s.state.Lock()
	id := s.entry
	s.entry = 0
	s.state.Unlock()

	if id == 0 {
		return
	}
	<-s.cron.Stop().Done()
	s.cron.Remove(id)
	log.Info().Msg("Remise à zéro quotidienne arrêtée")
}

// Next retourne la prochaine exécution, zéro si la tâche n'est pas planifiée
func (s *Scheduler) Next() time.Time {
	s.state.Lock()
	id := s.entry
	s.state.Unlock()
	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// LastRun retourne la date et l'erreur de la dernière exécution
func (s *Scheduler) LastRun() (time.Time, error) {
	s.state.Lock()
	defer s.state.Unlock()
	return s.lastRun, s.lastErr
}

// RunNow exécute la remise à zéro immédiatement, en attendant la fin d'une
// exécution planifiée éventuelle.
func (s *Scheduler) RunNow(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx)
}

// scheduledRun est appelée par cron; une erreur est journalisée et la
// prochaine exécution prend le relais.
func (s *Scheduler) scheduledRun() {
	if !s.mu.TryLock() {
		log.Warn().Err(ErrAlreadyRunning).Msg("Remise à zéro ignorée")
		return
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) (int64, error) {
	start := time.Now()
	deleted, err := s.store.Reset(ctx, s.archive)

	s.state.Lock()
	s.lastRun = start
	s.lastErr = err
	s.state.Unlock()

	if err != nil {
		log.Error().Err(err).Msg("Remise à zéro quotidienne échouée, nouvel essai à la prochaine exécution")
		return 0, err
	}
	log.Info().
		Int64("sessions", deleted).
		Bool("archive", s.archive).
		Dur("elapsed", time.Since(start)).
		Msg("Remise à zéro quotidienne effectuée")
	return deleted, nil
}

// cronLogger fait passer les messages internes de cron par zerolog
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

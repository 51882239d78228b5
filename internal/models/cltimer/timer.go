package cltimer

import (
	"sync"
	"time"
)

// Timer mesure le temps actif d'une page: il démarre actif, Blur le met en
// pause et Focus le relance. Le temps écoulé est la somme des intervalles
// actifs, pas le temps depuis le chargement.
type Timer struct {
	mu           sync.Mutex
	interval     int64
	active       bool
	accumulated  time.Duration
	since        time.Time
	lastReported int64
}

func NewTimer(start time.Time, interval int) *Timer {
	if interval <= 0 {
		interval = 30
	}
	return &Timer{
		interval: int64(interval),
		active:   true,
		since:    start,
	}
}

func (t *Timer) Focus(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		return
	}
	t.active = true
	t.since = now
}

func (t *Timer) Blur(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.accumulated += now.Sub(t.since)
	t.active = false
}

func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Elapsed retourne le temps actif en secondes entières
func (t *Timer) Elapsed(now time.Time) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed(now)
}

func (t *Timer) elapsed(now time.Time) int64 {
	total := t.accumulated
	if t.active {
		total += now.Sub(t.since)
	}
	if total < 0 {
		return 0
	}
	return int64(total / time.Second)
}

// Tick est appelé chaque seconde. report vaut vrai quand le temps actif a
// franchi un nouveau multiple de l'intervalle, une seule fois par multiple.
// Inactif, le timer ne rapporte rien.
func (t *Timer) Tick(now time.Time) (elapsed int64, report bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed = t.elapsed(now)
	if !t.active || elapsed <= 0 {
		return elapsed, false
	}
	if elapsed/t.interval > t.lastReported/t.interval {
		t.lastReported = elapsed
		return elapsed, true
	}
	return elapsed, false
}

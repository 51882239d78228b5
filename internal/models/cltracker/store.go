package cltracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store accède à la table user_time_tracker
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:  db,
		now: time.Now,
	}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&TimeRecord{}, &TimeRecordHistory{})
}

// Upsert insère la session ou remplace son temps en une seule requête.
// L'index unique sur session_id garantit une seule ligne par session même
// quand deux mises à jour arrivent en même temps; user_id, ip_address,
// country et first_visit ne sont écrits qu'à la création.
func (s *Store) Upsert(ctx context.Context, u Update) error {
	now := s.now()
	rec := TimeRecord{
		SessionID:  u.SessionID,
		UserID:     u.UserID,
		TimeSpent:  u.TimeSpent,
		IPAddress:  u.IPAddress,
		Country:    u.Country,
		FirstVisit: now,
		LastUpdate: now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"time_spent", "last_update"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", u.SessionID, err)
	}
	return nil
}

// SumForUser additionne le temps de toutes les sessions d'un utilisateur
func (s *Store) SumForUser(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&TimeRecord{}).
		Select("COALESCE(SUM(time_spent), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum for user %d: %w", userID, err)
	}
	return total, nil
}

// SumAll additionne le temps de toutes les sessions
func (s *Store) SumAll(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&TimeRecord{}).
		Select("COALESCE(SUM(time_spent), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum all: %w", err)
	}
	return total, nil
}

// Get retourne la ligne d'une session, gorm.ErrRecordNotFound si absente
func (s *Store) Get(ctx context.Context, sessionID string) (*TimeRecord, error) {
	var rec TimeRecord
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// SessionTime retourne le temps d'une session, 0 si elle n'existe pas
func (s *Store) SessionTime(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, nil
	}
	rec, err := s.Get(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("session time %s: %w", sessionID, err)
	}
	return rec.TimeSpent, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&TimeRecord{}).Count(&count).Error
	return count, err
}

// Reset efface toutes les sessions dans une transaction, après les avoir
// copiées dans l'historique si archive est vrai. Retourne le nombre de
// sessions effacées.
func (s *Store) Reset(ctx context.Context, archive bool) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if archive {
			err := tx.Exec(
				"INSERT INTO user_time_tracker_history "+
					"(session_id, user_id, time_spent, ip_address, country, first_visit, last_update, archived_at) "+
					"SELECT session_id, user_id, time_spent, ip_address, country, first_visit, last_update, ? "+
					"FROM user_time_tracker",
				s.now(),
			).Error
			if err != nil {
				return fmt.Errorf("archive: %w", err)
			}
		}

		result := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&TimeRecord{})
		if result.Error != nil {
			return fmt.Errorf("clear: %w", result.Error)
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reset: %w", err)
	}
	return deleted, nil
}

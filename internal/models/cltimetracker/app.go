package cltimetracker

import (
	"context"
	"errors"
	"fmt"

	"timetracker/internal/clredis"
	"timetracker/internal/gormzerologger"
	"timetracker/internal/models/clcaptchas"
	"timetracker/internal/models/clconfig"
	"timetracker/internal/models/clgeoip"
	"timetracker/internal/models/clreset"
	"timetracker/internal/models/cltracker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Timetracker regroupe les dépendances partagées par les commandes
type Timetracker struct {
	Configuration *clconfig.Config
	Db            *gorm.DB
	Redis         *redis.Client
	Captcha       *clcaptchas.Captchas
	GeoIP         *clgeoip.Locator
	Tracker       *cltracker.Service
	Scheduler     *clreset.Scheduler
	Version       string
	BuildID       string
}

func Init(ctx context.Context, config *clconfig.Config, version string, buildid string) (*Timetracker, error) {
	tt := &Timetracker{
		Configuration: config,
		Version:       version,
		BuildID:       buildid,
	}

	if err := tt.initDatabase(); err != nil {
		return nil, err
	}
	if err := tt.initRedis(ctx); err != nil {
		tt.Close()
		return nil, err
	}
	if err := tt.initTracker(); err != nil {
		tt.Close()
		return nil, err
	}
	tt.Captcha = clcaptchas.New(tt.Redis, config.Production)
	return tt, nil
}

// OpenDatabase ouvre sqlite ou mysql avec les traces gorm dans zerolog
func OpenDatabase(cfg clconfig.DatabaseConfig, gormLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Db {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "mysql":
		dialector = mysql.Open(cfg.Dsn)
	default:
		return nil, fmt.Errorf("le type de database doit etre sqlite ou mysql")
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormzerologger.New(gormLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("connexion base de données: %w", err)
	}

	// sqlite n'accepte qu'un écrivain à la fois
	if cfg.Db == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func (tt *Timetracker) initDatabase() error {
	level := gormzerologger.LevelFor(tt.Configuration.Logger.Level, tt.Configuration.Production)
	db, err := OpenDatabase(tt.Configuration.Database, level)
	if err != nil {
		return err
	}
	tt.Db = db
	return nil
}

func (tt *Timetracker) initRedis(ctx context.Context) error {
	client, err := clredis.NewClient(ctx, tt.Configuration.Database.Redis)
	if err != nil {
		return err
	}
	tt.Redis = client
	return nil
}

func (tt *Timetracker) initTracker() error {
	store := cltracker.NewStore(tt.Db)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migration: %w", err)
	}

	var locator cltracker.Locator
	if path := tt.Configuration.GeoIP.Path; path != "" {
		geo, err := clgeoip.Open(path)
		if err != nil {
			return err
		}
		tt.GeoIP = geo
		locator = geo
	}

	cfg := tt.Configuration.Tracker
	tt.Tracker = cltracker.NewService(store, cltracker.Labels{
		Current: cfg.Label,
		Total:   cfg.TotalLabel,
	}, locator)

	scheduler, err := clreset.New(store, cfg.ResetSpec, cfg.Timezone, cfg.Archive)
	if err != nil {
		return err
	}
	tt.Scheduler = scheduler
	return nil
}

// Close arrête la remise à zéro planifiée puis ferme les connexions
func (tt *Timetracker) Close() error {
	var errs []error

	if tt.Scheduler != nil {
		tt.Scheduler.Stop()
	}
	if err := tt.GeoIP.Close(); err != nil {
		errs = append(errs, err)
	}
	if tt.Redis != nil {
		if err := tt.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if tt.Db != nil {
		sqlDB, err := tt.Db.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		log.Error().Err(err).Msg("Erreur à la fermeture")
		return err
	}
	log.Debug().Msg("Connexions fermées")
	return nil
}

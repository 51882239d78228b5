package clconfig

import (
	"fmt"
	"log/syslog"
	"os"
	"strings"

	"github.com/andskur/argon2-hashing"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCookieName     = "wp_time_tracker_session"
	DefaultResetSpec      = "0 0 * * *"
	DefaultReportInterval = 30
	DefaultRateLimit      = 120
)

type Config struct {
	TrustedProxies  []string       `yaml:"trustedproxies"`
	TrustedPlatform string         `yaml:"trustedplatform"`
	Database        DatabaseConfig `yaml:"database"`
	Users           []UserConfig   `yaml:"users"`
	Production      bool           `yaml:"production"`
	Listen          ListenConfig   `yaml:"listen"`
	Logger          LoggerConfig   `yaml:"logger"`
	Tracker         TrackerConfig  `yaml:"tracker"`
	GeoIP           GeoIPConfig    `yaml:"geoip"`
}

type TrackerConfig struct {
	CookieName     string   `yaml:"cookiename"`
	CookieDays     int      `yaml:"cookiedays"`
	ReportInterval int      `yaml:"reportinterval"`
	ResetSpec      string   `yaml:"resetspec"`
	Timezone       string   `yaml:"timezone"`
	Archive        bool     `yaml:"archive"`
	AllowedOrigins []string `yaml:"allowedorigins"`
	RateLimit      int64    `yaml:"ratelimit"`
	Label          string   `yaml:"label"`
	TotalLabel     string   `yaml:"totallabel"`
	SessionSecret  string   `yaml:"sessionsecret"`
}

type GeoIPConfig struct {
	Path string `yaml:"path"`
}

type LoggerConfig struct {
	Level  string             `yaml:"level"`
	File   LoggerFileConfig   `yaml:"file"`
	Syslog LoggerSyslogConfig `yaml:"syslog"`
}

type LoggerFileConfig struct {
	Enable     bool   `yaml:"enable"`
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxsize"`
	MaxBackups int    `yaml:"maxbackups"`
	MaxAge     int    `yaml:"maxage"`
	Compress   bool   `yaml:"compress"`
}

type LoggerSyslogConfig struct {
	Enable   bool            `yaml:"enable"`
	Protocol string          `yaml:"protocol"`
	Address  string          `yaml:"address"`
	Tag      string          `yaml:"tag"`
	Priority syslog.Priority `yaml:"priority"`
}

type ListenConfig struct {
	Website string `yaml:"website"`
}

type UserConfig struct {
	Id    uint   `yaml:"id"`
	Login string `yaml:"login"`
	Pass  string `yaml:"pass,omitempty"`
	Hash  string `yaml:"hash"`
}

type DatabaseConfig struct {
	Redis RedisConfig `yaml:"redis"`
	Db    string      `yaml:"db"`
	Path  string      `yaml:"path"`
	Dsn   string      `yaml:"dsn"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	Db   int    `yaml:"db"`
}

func CreateExampleConfig(filename string) (string, error) {
	example := &Config{
		Database: DatabaseConfig{
			Db:   "sqlite",
			Path: "./timetracker.db",
		},
		Users: []UserConfig{
			{Id: 1, Login: "admin", Pass: "admin1234"},
		},
		Production: false,
		Logger: LoggerConfig{
			Level: "info",
		},
		Listen: ListenConfig{
			Website: "0.0.0.0:8080",
		},
		Tracker: TrackerConfig{
			CookieName:     DefaultCookieName,
			CookieDays:     1,
			ReportInterval: DefaultReportInterval,
			ResetSpec:      DefaultResetSpec,
			Timezone:       "Local",
			RateLimit:      DefaultRateLimit,
			Label:          "Time on site today: ",
			TotalLabel:     "Total time spent today: ",
		},
	}

	if filename == "/etc/" {
		example.Listen.Website = "127.0.0.1:8000"
		example.Production = true
		example.Database.Path = "/var/lib/timetracker/sqlite.db"
		example.Logger.File = LoggerFileConfig{
			Enable:     true,
			Path:       "/var/log/timetracker/timetracker.log",
			MaxSize:    100,
			MaxBackups: 30,
			MaxAge:     7,
			Compress:   true,
		}
		filename = "/etc/timetracker/config.yaml"
	}

	return filename, WriteConfigYaml(filename, example)
}

func WriteConfigYaml(filename string, conf *Config) error {
	data, err := yaml.Marshal(conf)
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}

// Charger la configuration YAML
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("impossible de lire le fichier %s: %v", filename, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("erreur de parsing YAML: %v", err)
	}

	return &config, nil
}

// LoadAndValidate charge le fichier, applique les valeurs par défaut et
// remplace les mots de passe en clair par leur hash argon2.
func LoadAndValidate(configFile string) (*Config, error) {
	conf, err := LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("erreur chargement config: %v", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	rewrite, err := conf.hashPasswords()
	if err != nil {
		return nil, err
	}
	if rewrite {
		if err := WriteConfigYaml(configFile, conf); err != nil {
			return nil, err
		}
	}

	return conf, nil
}

func (conf *Config) Validate() error {
	switch conf.Database.Db {
	case "":
		return fmt.Errorf("database.db ne peut pas être vide")
	case "sqlite":
		if conf.Database.Path == "" {
			return fmt.Errorf("database.path ne peut pas être vide")
		}
	case "mysql":
		if conf.Database.Dsn == "" {
			return fmt.Errorf("database.dsn ne peut pas être vide")
		}
	default:
		return fmt.Errorf("le type de database doit etre sqlite ou mysql")
	}

	if conf.Listen.Website == "" {
		conf.Listen.Website = "localhost:8080"
	}
	if strings.HasPrefix(conf.Listen.Website, ":") {
		conf.Listen.Website = "localhost" + conf.Listen.Website
	}

	ids := make(map[uint]bool, len(conf.Users))
	for _, u := range conf.Users {
		if u.Id == 0 {
			return fmt.Errorf("l'utilisateur %s doit avoir un id non nul", u.Login)
		}
		if ids[u.Id] {
			return fmt.Errorf("l'id %d des utilisateurs doit etre unique", u.Id)
		}
		ids[u.Id] = true
		if u.Pass != "" && len(u.Pass) < 8 {
			return fmt.Errorf("le mot de passe de %s doit contenir au moins 8 caractères", u.Login)
		}
	}

	conf.Tracker.applyDefaults()
	return nil
}

func (t *TrackerConfig) applyDefaults() {
	if t.CookieName == "" {
		t.CookieName = DefaultCookieName
	}
	if t.CookieDays <= 0 {
		t.CookieDays = 1
	}
	if t.ReportInterval <= 0 {
		t.ReportInterval = DefaultReportInterval
	}
	if t.ResetSpec == "" {
		t.ResetSpec = DefaultResetSpec
	}
	if t.Timezone == "" {
		t.Timezone = "Local"
	}
	if t.RateLimit <= 0 {
		t.RateLimit = DefaultRateLimit
	}
	if t.Label == "" {
		t.Label = "Time on site today: "
	}
	if t.TotalLabel == "" {
		t.TotalLabel = "Total time spent today: "
	}
}

func (conf *Config) hashPasswords() (bool, error) {
	rewrite := false
	for i := range conf.Users {
		if conf.Users[i].Pass == "" {
			continue
		}
		hash, err := argon2.GenerateFromPassword([]byte(conf.Users[i].Pass), argon2.DefaultParams)
		if err != nil {
			return false, err
		}
		conf.Users[i].Hash = string(hash)
		conf.Users[i].Pass = ""
		rewrite = true
	}
	return rewrite, nil
}

// FindUser retourne l'utilisateur correspondant au login
func (conf *Config) FindUser(login string) (UserConfig, bool) {
	for _, u := range conf.Users {
		if u.Login == login {
			return u, true
		}
	}
	return UserConfig{}, false
}

// CreateExample crée le fichier d'exemple si demandé ou si le fichier n'existe pas
func CreateExample(shouldCreateExample bool, configFile string) (bool, error) {
	if shouldCreateExample {
		return true, handleExampleCreation(configFile)
	}

	_, err := os.Stat(configFile)
	if err != nil && os.IsNotExist(err) {
		return false, handleExampleCreation(configFile)
	}
	return false, nil
}

func handleExampleCreation(filename string) error {
	if filename == "" {
		filename = "timetracker.yaml"
	}
	filename, err := CreateExampleConfig(filename)
	if err != nil {
		return fmt.Errorf("erreur création exemple: %v", err)
	}

	fmt.Printf("✅ Fichier exemple créé: %s\n", filename)
	fmt.Println("⚠️  Les mots de passe (pass) seront automatiquement hash en argon2 au premier lancement")
	return nil
}

func DisplayConfiguration(config *Config, version string) {
	logPrintf("Timetracker version %s", version)

	logPrintf("Mode Production %v", config.Production)
	logPrintf("Utilisateurs configurés %d", len(config.Users))

	logPrintf("Database")
	if config.Database.Db == "sqlite" {
		logPrintf("  • Type sqlite")
		logPrintf("  • Path %s", config.Database.Path)
	}
	if config.Database.Db == "mysql" {
		logPrintf("  • Type mysql")
	}
	if config.Database.Redis.Addr != "" {
		logPrintf("  • Redis %s (db %d)", config.Database.Redis.Addr, config.Database.Redis.Db)
	} else {
		logPrintf("  • Redis désactivé, stores en mémoire")
	}

	logPrintf("Tracker")
	logPrintf("  • Cookie %s (%d jour(s))", config.Tracker.CookieName, config.Tracker.CookieDays)
	logPrintf("  • Remise à zéro \"%s\" (%s)", config.Tracker.ResetSpec, config.Tracker.Timezone)
	logPrintf("  • Archivage %v", config.Tracker.Archive)
	logPrintf("  • Limite %d mises à jour/minute par IP", config.Tracker.RateLimit)
	if config.GeoIP.Path != "" {
		logPrintf("  • GeoIP %s", config.GeoIP.Path)
	}

	logPrintf("Logger en level %s", config.Logger.Level)
	if config.Logger.File.Enable {
		logPrintf("  Log en fichier activé")
		logPrintf("  • Path %s", config.Logger.File.Path)
		logPrintf("  • Max size %d", config.Logger.File.MaxSize)
		logPrintf("  • Max age %d", config.Logger.File.MaxAge)
		logPrintf("  • Max backup %d", config.Logger.File.MaxBackups)
		logPrintf("  • Compression %v", config.Logger.File.Compress)
	} else {
		logPrintf("  Log en fichier désactivé")
	}
	if config.Logger.Syslog.Enable {
		logPrintf("  Log en syslog activé")
		logPrintf("  • Protocol %s", config.Logger.Syslog.Protocol)
		logPrintf("  • Address %s", config.Logger.Syslog.Address)
		logPrintf("  • Tag %s", config.Logger.Syslog.Tag)
	} else {
		logPrintf("  Log en syslog désactivé")
	}
}

func logPrintf(format string, a ...any) {
	log.Info().Msg(fmt.Sprintf(format, a...))
}

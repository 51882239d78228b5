package cltracker

import "time"

// MaxSessionIDLength borne la taille du jeton de session accepté
const MaxSessionIDLength = 64

// TimeRecord représente le temps passé sur le site par une session
type TimeRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"size:64;uniqueIndex;not null" json:"session_id"`
	UserID     *uint     `gorm:"index" json:"user_id"`
	TimeSpent  int64     `gorm:"not null;default:0" json:"time_spent"`
	IPAddress  string    `gorm:"size:100;not null" json:"ip_address"`
	Country    string    `gorm:"size:2" json:"country"`
	FirstVisit time.Time `gorm:"not null" json:"first_visit"`
	LastUpdate time.Time `gorm:"not null" json:"last_update"`
}

// TimeRecordHistory garde une copie des sessions effacées par la remise à zéro
type TimeRecordHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"size:64;index;not null" json:"session_id"`
	UserID     *uint     `gorm:"index" json:"user_id"`
	TimeSpent  int64     `gorm:"not null" json:"time_spent"`
	IPAddress  string    `gorm:"size:100;not null" json:"ip_address"`
	Country    string    `gorm:"size:2" json:"country"`
	FirstVisit time.Time `json:"first_visit"`
	LastUpdate time.Time `json:"last_update"`
	ArchivedAt time.Time `gorm:"index" json:"archived_at"`
}

// TableName spécifie le nom de la table pour TimeRecord
func (TimeRecord) TableName() string {
	return "user_time_tracker"
}

// TableName spécifie le nom de la table pour TimeRecordHistory
func (TimeRecordHistory) TableName() string {
	return "user_time_tracker_history"
}

// Update est une mise à jour envoyée par le timer d'une page
type Update struct {
	SessionID string
	TimeSpent int64
	UserID    *uint
	IPAddress string
	Country   string
}

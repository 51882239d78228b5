package cltracker

import "fmt"

// FormatHMS formate des secondes en HH:MM:SS, les heures ne sont pas bornées
func FormatHMS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

package ledger

import (
	"log"
	"time"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/isoweek"
)

// TargetWeek walks back from the current week and returns the first week
// in which some roster company lacks a YES or NO row. An empty roster
// targets the current week.
func TargetWeek(roster []string, l *Ledger, now time.Time) isoweek.Week {
	week := isoweek.Current(now)
	if len(roster) == 0 {
		return week
	}
	for {
		covered := l.Covered(week.String())
		missing := 0
		for _, name := range roster {
			if !covered[name] {
				missing++
			}
		}
		if missing > 0 {
			log.Printf("ledger target_week week=%s missing=%d", week, missing)
			return week
		}
		log.Printf("ledger week_complete week=%s", week)
		week = week.Previous()
	}
}

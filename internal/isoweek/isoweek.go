package isoweek

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Week is an ISO-8601 week: Monday start, week 1 holds the year's first Thursday.
type Week struct {
	Year   int
	Number int
}

func Of(t time.Time) Week {
	y, w := t.ISOWeek()
	return Week{Year: y, Number: w}
}

func Current(now time.Time) Week {
	return Of(now)
}

// Parse accepts "YYYY-Www".
func Parse(s string) (Week, error) {
	s = strings.TrimSpace(s)
	year, num, ok := strings.Cut(s, "-W")
	if !ok {
		return Week{}, fmt.Errorf("invalid iso week %q", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return Week{}, fmt.Errorf("invalid iso week %q: %w", s, err)
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return Week{}, fmt.Errorf("invalid iso week %q: %w", s, err)
	}
	if n < 1 || n > 53 {
		return Week{}, fmt.Errorf("invalid iso week %q: week out of range", s)
	}
	return Week{Year: y, Number: n}, nil
}

func MustParse(s string) Week {
	w, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return w
}

func (w Week) String() string {
	return fmt.Sprintf("%d-W%02d", w.Year, w.Number)
}

// Range returns Monday 00:00 and the following Sunday 00:00 (UTC) of the week.
// The window is inclusive on both calendar dates.
func (w Week) Range() (time.Time, time.Time) {
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	start := jan4.AddDate(0, 0, -offset+7*(w.Number-1))
	return start, start.AddDate(0, 0, 6)
}

func (w Week) Start() time.Time {
	start, _ := w.Range()
	return start
}

func (w Week) Previous() Week {
	return Of(w.Start().AddDate(0, 0, -7))
}

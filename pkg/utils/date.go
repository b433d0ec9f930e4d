package utils

import (
	"log"
	"sync"
	"time"
)

// DateLayout is the wire format of trading dates.
const DateLayout = "2006-01-02"

var (
	taipeiOnce sync.Once
	taipeiLoc  *time.Location
)

// GetTaipeiTimeLocation returns the Asia/Taipei location, loaded once.
func GetTaipeiTimeLocation() *time.Location {
	taipeiOnce.Do(func() {
		loc, err := time.LoadLocation("Asia/Taipei")
		if err != nil {
			log.Fatal("Failed to load location", err)
		}
		taipeiLoc = loc
	})
	return taipeiLoc
}

func TimeNowTaipei() time.Time {
	return time.Now().In(GetTaipeiTimeLocation())
}

// TruncateToDate drops the clock part of t in its own location.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses a YYYY-MM-DD string as a Taipei calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, GetTaipeiTimeLocation())
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

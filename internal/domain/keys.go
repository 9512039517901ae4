package domain

import (
	"fmt"
	"time"
)

type KeyMode string

const (
	KeyModeNormal KeyMode = "normal"
	KeyModeShared KeyMode = "shared"
)

type CalendarDate struct {
	Year  int
	Month int
	Day   int
}

func DateOf(t time.Time) CalendarDate {
	return CalendarDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

type DigestSet struct {
	Date    CalendarDate
	Mode    KeyMode
	Digests []string
}

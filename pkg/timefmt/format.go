package timefmt

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const (
	DisplayLayout = "2006-01-02 15:04:05"
	TitleLayout   = "Jan 02, 2006"
	DateLayout    = "2006-01-02"
	ClockLayout   = "15:04:05"
	FileLayout    = "20060102_150405"
)

// Formatter renders every timestamp in one zone.
type Formatter struct {
	loc *time.Location
}

func NewFormatter(zone string) (*Formatter, error) {
	if zone == "" {
		return &Formatter{loc: time.UTC}, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", zone, err)
	}
	return &Formatter{loc: loc}, nil
}

func (f *Formatter) Location() *time.Location {
	return f.loc
}

func (f *Formatter) In(t time.Time) time.Time {
	return t.In(f.loc)
}

// Display renders "[YYYY-MM-DD HH:MM:SS]".
func (f *Formatter) Display(t time.Time) string {
	return "[" + t.In(f.loc).Format(DisplayLayout) + "]"
}

// TitlePrefix renders "Mon DD, YYYY • ".
func (f *Formatter) TitlePrefix(t time.Time) string {
	return t.In(f.loc).Format(TitleLayout) + " • "
}

func (f *Formatter) Date(t time.Time) string {
	return t.In(f.loc).Format(DateLayout)
}

func (f *Formatter) Clock(t time.Time) string {
	return t.In(f.loc).Format(ClockLayout)
}

func (f *Formatter) FileStamp(t time.Time) string {
	return t.In(f.loc).Format(FileLayout)
}

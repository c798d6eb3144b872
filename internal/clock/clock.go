package clock

import "time"

// Clock resolves the current time in the service's home timezone. All
// day-boundary decisions (which daily document is "today's") go through it.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// TZClock is a Clock fixed to one IANA timezone.
type TZClock struct {
	loc *time.Location
}

func NewTZ(name string) (*TZClock, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return &TZClock{loc: loc}, nil
}

func (c *TZClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *TZClock) Location() *time.Location {
	return c.loc
}

// DayKey formats t as the calendar-day string used to key daily documents.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

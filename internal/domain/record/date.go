package record

import (
	"fmt"
	"time"
)

const (
	wireDateFormat    = "2006-01-02"
	displayDateFormat = "02/01/2006"
)

// Date is a civil date at day granularity. Once an Episode or Item has been
// constructed, every date-typed attribute is held as a Date, never as the
// raw wire string.
type Date struct {
	t time.Time
}

// NewDate builds a Date from its calendar components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseWireDate parses the server representation, YYYY-MM-DD.
func ParseWireDate(s string) (Date, error) {
	t, err := time.Parse(wireDateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse wire date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// ParseDisplayDate parses the human representation, DD/MM/YYYY.
func ParseDisplayDate(s string) (Date, error) {
	t, err := time.Parse(displayDateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse display date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// Wire renders the date in the format exchanged with the server.
func (d Date) Wire() string { return d.t.Format(wireDateFormat) }

// Display renders the date in the format shown to and edited by people.
func (d Date) Display() string { return d.t.Format(displayDateFormat) }

func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }

func (d Date) String() string { return d.Wire() }

// MarshalJSON renders the wire format so a Date can travel in a request body.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Wire() + `"`), nil
}

// UnmarshalJSON accepts the wire format.
func (d *Date) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("date value %s is not a JSON string", data)
	}
	parsed, err := ParseWireDate(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

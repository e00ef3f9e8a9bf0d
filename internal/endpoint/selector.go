package endpoint

import (
	"fmt"
	"time"
)

// DateLayout is the path format for dates (yyyy-MM-dd).
const DateLayout = "2006-01-02"

type selectorKind int

const (
	selectAll selectorKind = iota
	selectCode
	selectDate
	selectPeriod
)

// Selector narrows a resource GET. The zero value selects every record.
type Selector struct {
	kind       selectorKind
	code       string
	start, end time.Time
}

// All selects every record of a resource type.
func All() Selector { return Selector{} }

// ByCode selects one record by its resource code.
func ByCode(code string) Selector { return Selector{kind: selectCode, code: code} }

// ByDate selects the records of one day.
func ByDate(day time.Time) Selector { return Selector{kind: selectDate, start: day} }

// ByPeriod selects the records between two days, both inclusive.
func ByPeriod(start, end time.Time) Selector {
	return Selector{kind: selectPeriod, start: start, end: end}
}

func (s Selector) String() string {
	switch s.kind {
	case selectCode:
		return "code:" + s.code
	case selectDate:
		return "date:" + s.start.Format(DateLayout)
	case selectPeriod:
		return "period:" + s.start.Format(DateLayout) + "/" + s.end.Format(DateLayout)
	default:
		return "all"
	}
}

func (s Selector) validate() error {
	switch s.kind {
	case selectCode:
		if s.code == "" {
			return fmt.Errorf("%w: code", ErrMissingSelector)
		}
	case selectDate:
		if s.start.IsZero() {
			return fmt.Errorf("%w: date", ErrMissingSelector)
		}
	case selectPeriod:
		if s.start.IsZero() || s.end.IsZero() {
			return fmt.Errorf("%w: period bounds", ErrMissingSelector)
		}
	}
	return nil
}

// suffix is appended to /api/v{version}/human/{type}. Codes are inserted as given.
func (s Selector) suffix() string {
	switch s.kind {
	case selectCode:
		return "/" + s.code
	case selectDate:
		return "/daily/" + s.start.Format(DateLayout)
	case selectPeriod:
		return "/period/" + s.start.Format(DateLayout) + "/" + s.end.Format(DateLayout)
	default:
		return ""
	}
}

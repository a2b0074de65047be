// Package schedule defines the schedule of beerscot scheduled actions and how they map to
// gocron jobs
package schedule

import (
	"fmt"
	"github.com/marcsantiago/gocron"
	"github.com/pkg/errors"
	"strings"
	"time"
)

// Definition represents when a scheduled action runs
type Definition struct {
	// Interval value (every 1 minute would be expressed with an interval of 1). A weekday value implicitly sets it to 1
	Interval uint64

	// Valid time units are: "weeks", "hours", "days", "minutes", "seconds". Implicitly "weeks" when Weekday is set
	Unit string

	// Optional day of the week. If set, Unit and Interval are ignored
	Weekday string

	// Optional "at time" value (i.e. "10:30")
	AtTime string
}

// Unit values
const (
	Weeks   = "weeks"
	Hours   = "hours"
	Days    = "days"
	Minutes = "minutes"
	Seconds = "seconds"
)

var weekdays = map[string]time.Weekday{
	time.Monday.String():    time.Monday,
	time.Tuesday.String():   time.Tuesday,
	time.Wednesday.String(): time.Wednesday,
	time.Thursday.String():  time.Thursday,
	time.Friday.String():    time.Friday,
	time.Saturday.String():  time.Saturday,
	time.Sunday.String():    time.Sunday,
}

// String returns a human-friendly string for the Definition
func (d Definition) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Every ")

	if d.Weekday != "" {
		fmt.Fprintf(&b, "%s", d.Weekday)
	} else if d.Interval == 1 {
		fmt.Fprintf(&b, "%s", strings.TrimSuffix(d.Unit, "s"))
	} else {
		fmt.Fprintf(&b, "%d %s", d.Interval, d.Unit)
	}

	if d.AtTime != "" {
		fmt.Fprintf(&b, " at %s", d.AtTime)
	}

	return b.String()
}

// NewJob sets up the gocron.Job with the schedule and leaves the task undefined for the caller to set up
func NewJob(s *gocron.Scheduler, d Definition) (j *gocron.Job, err error) {
	if d.Weekday != "" {
		if _, ok := weekdays[d.Weekday]; !ok {
			return nil, fmt.Errorf("invalid weekday [%s]", d.Weekday)
		}
	}

	j = s.Every(d.Interval, false)

	switch d.Weekday {
	case time.Monday.String():
		j = j.Monday()
	case time.Tuesday.String():
		j = j.Tuesday()
	case time.Wednesday.String():
		j = j.Wednesday()
	case time.Thursday.String():
		j = j.Thursday()
	case time.Friday.String():
		j = j.Friday()
	case time.Saturday.String():
		j = j.Saturday()
	case time.Sunday.String():
		j = j.Sunday()
	default:
		switch d.Unit {
		case Weeks:
			j = j.Weeks()
		case Hours:
			j = j.Hours()
		case Days:
			j = j.Days()
		case Minutes:
			j = j.Minutes()
		case Seconds:
			j = j.Seconds()
		}
	}

	if d.AtTime != "" {
		j = j.At(d.AtTime)
	}

	if j.Err() != nil {
		return nil, errors.Wrapf(j.Err(), "invalid schedule [%s]", d)
	}

	return j, nil
}

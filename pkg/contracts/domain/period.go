package domain

import (
	"fmt"
	"time"
)

const (
	verboseDateLayout = "02 Jan 2006"
	longDateLayout    = "02 January 2006"
	monthLayout       = "Jan"
	// RawDateLayout is the day/month/year form used by caseload exports.
	RawDateLayout = "02/01/2006"
)

// ReportingPeriod is the window the caseload snapshot covers.
// DateStart is never after DateEnd.
type ReportingPeriod struct {
	DateStart        time.Time `json:"date_start"`
	DateEnd          time.Time `json:"date_end"`
	RawStart         string    `json:"raw_start"`
	RawEnd           string    `json:"raw_end"`
	DateStartVerbose string    `json:"date_start_verbose"`
	DateEndVerbose   string    `json:"date_end_verbose"`
	MonthStart       string    `json:"month_start"`
	MonthEnd         string    `json:"month_end"`
}

// NewReportingPeriod renders all labels from the two dates, swapping them if
// they arrive out of order.
func NewReportingPeriod(start, end time.Time) ReportingPeriod {
	if end.Before(start) {
		start, end = end, start
	}
	return ReportingPeriod{
		DateStart:        start,
		DateEnd:          end,
		RawStart:         start.Format(RawDateLayout),
		RawEnd:           end.Format(RawDateLayout),
		DateStartVerbose: start.Format(verboseDateLayout),
		DateEndVerbose:   end.Format(verboseDateLayout),
		MonthStart:       start.Format(monthLayout),
		MonthEnd:         end.Format(monthLayout),
	}
}

// Quarter returns the month span, e.g. "May–Aug".
func (p ReportingPeriod) Quarter() string {
	return p.MonthStart + "–" + p.MonthEnd
}

// Subject returns the newsletter subject line.
func (p ReportingPeriod) Subject() string {
	return fmt.Sprintf("Personal Statistics - %s %d", p.Quarter(), p.DateEnd.Year())
}

// RangeText returns "08 May 2024 to 02 Aug 2024".
func (p ReportingPeriod) RangeText() string {
	return p.DateStartVerbose + " to " + p.DateEndVerbose
}

// LongRangeText spells the months out in full.
func (p ReportingPeriod) LongRangeText() string {
	return p.DateStart.Format(longDateLayout) + " to " + p.DateEnd.Format(longDateLayout)
}

package models

import "time"

// Event is one entry scraped from the calendar listing.
type Event struct {
	Title    string
	Date     string
	Location string
	Fee      string
}

// DateWindow is an inclusive range of calendar days.
type DateWindow struct {
	From  time.Time
	Until time.Time
}

const dateLayout = "2006-01-02"

func (w DateWindow) FromString() string {
	return w.From.Format(dateLayout)
}

func (w DateWindow) UntilString() string {
	return w.Until.Format(dateLayout)
}

package engine

import (
	"errors"
	"testing"
	"time"

	"runway/internal/core"
)

func dateStrings(dates []core.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExpandDatesWeekly(t *testing.T) {
	spec := &core.RecurrenceSpec{Freq: core.Weekly, ByWeekday: []time.Weekday{time.Monday}}
	dates, err := ExpandDates(spec, core.NewDate(2024, 5, 19), core.NewDate(2024, 6, 19))
	if err != nil {
		t.Fatalf("ExpandDates: %v", err)
	}
	want := []string{"2024-05-20", "2024-05-27", "2024-06-03", "2024-06-10", "2024-06-17"}
	if !equalStrings(dateStrings(dates), want) {
		t.Errorf("dates = %v, want %v", dateStrings(dates), want)
	}
}

func TestExpandDatesMonthly(t *testing.T) {
	spec := &core.RecurrenceSpec{Freq: core.Monthly, ByMonthDay: 1}
	dates, err := ExpandDates(spec, core.NewDate(2024, 5, 19), core.NewDate(2024, 9, 19))
	if err != nil {
		t.Fatalf("ExpandDates: %v", err)
	}
	want := []string{"2024-06-01", "2024-07-01", "2024-08-01", "2024-09-01"}
	if !equalStrings(dateStrings(dates), want) {
		t.Errorf("dates = %v, want %v", dateStrings(dates), want)
	}
}

func TestExpandDatesYearly(t *testing.T) {
	spec := &core.RecurrenceSpec{Freq: core.Yearly, DtStart: core.NewDate(2024, 6, 1)}
	dates, err := ExpandDates(spec, core.NewDate(2024, 5, 19), core.NewDate(2029, 9, 19))
	if err != nil {
		t.Fatalf("ExpandDates: %v", err)
	}
	if len(dates) != 6 {
		t.Fatalf("got %d dates, want 6: %v", len(dates), dateStrings(dates))
	}
	if dates[0].String() != "2024-06-01" || dates[5].String() != "2029-06-01" {
		t.Errorf("dates = %v", dateStrings(dates))
	}
}

func TestExpandDatesCount(t *testing.T) {
	spec := &core.RecurrenceSpec{Freq: core.Weekly, ByWeekday: []time.Weekday{time.Monday}, Count: 2}
	dates, err := ExpandDates(spec, core.NewDate(2024, 5, 19), core.NewDate(2024, 6, 19))
	if err != nil {
		t.Fatalf("ExpandDates: %v", err)
	}
	want := []string{"2024-05-20", "2024-05-27"}
	if !equalStrings(dateStrings(dates), want) {
		t.Errorf("dates = %v, want %v", dateStrings(dates), want)
	}
}

func TestExpandDatesUntil(t *testing.T) {
	spec := &core.RecurrenceSpec{
		Freq:      core.Weekly,
		ByWeekday: []time.Weekday{time.Monday},
		Until:     core.NewDate(2024, 5, 30),
	}
	dates, err := ExpandDates(spec, core.NewDate(2024, 5, 19), core.NewDate(2024, 6, 19))
	if err != nil {
		t.Fatalf("ExpandDates: %v", err)
	}
	for _, d := range dates {
		if d.After(core.NewDate(2024, 5, 30).Time) {
			t.Errorf("date %s past until bound", d)
		}
	}
	if len(dates) != 2 {
		t.Errorf("dates = %v, want two Mondays before 2024-05-30", dateStrings(dates))
	}
}

func TestExpandDatesExDates(t *testing.T) {
	spec := &core.RecurrenceSpec{
		Freq:      core.Weekly,
		ByWeekday: []time.Weekday{time.Monday},
		Until:     core.NewDate(2024, 5, 30),
		ExDates:   []core.Date{core.NewDate(2024, 5, 27)},
	}
	dates, err := ExpandDates(spec, core.NewDate(2024, 5, 19), core.NewDate(2024, 5, 30))
	if err != nil {
		t.Fatalf("ExpandDates: %v", err)
	}
	want := []string{"2024-05-20"}
	if !equalStrings(dateStrings(dates), want) {
		t.Errorf("dates = %v, want %v", dateStrings(dates), want)
	}
}

func TestExpandDatesRDates(t *testing.T) {
	spec := &core.RecurrenceSpec{
		Freq:      core.Weekly,
		ByWeekday: []time.Weekday{time.Monday},
		Count:     1,
		RDates:    []core.Date{core.NewDate(2024, 6, 14)},
	}
	dates, err := ExpandDates(spec, core.NewDate(2024, 5, 19), core.NewDate(2024, 6, 19))
	if err != nil {
		t.Fatalf("ExpandDates: %v", err)
	}
	want := []string{"2024-05-20", "2024-06-14"}
	if !equalStrings(dateStrings(dates), want) {
		t.Errorf("dates = %v, want %v", dateStrings(dates), want)
	}
}

func TestExpandDatesRejectsUnsupportedFrequency(t *testing.T) {
	spec := &core.RecurrenceSpec{Freq: "daily"}
	_, err := ExpandDates(spec, core.NewDate(2024, 5, 19), core.NewDate(2024, 6, 19))
	if !errors.Is(err, core.ErrRuleTooComplex) {
		t.Errorf("error = %v, want ErrRuleTooComplex", err)
	}
}

package models

import (
	"testing"
	"time"
)

func TestMyDateStringUnmarshal(t *testing.T) {
	var d MyDateString
	if err := d.UnmarshalJSON([]byte(`"2026-08-01T10:30:00"`)); err != nil {
		t.Fatal(err)
	}
	if time.Time(d).Hour() != 10 {
		t.Errorf("hour = %d, want 10", time.Time(d).Hour())
	}

	// date-only input is accepted from report filters
	if err := d.UnmarshalJSON([]byte(`"2026-08-01"`)); err != nil {
		t.Fatal(err)
	}
	if err := d.UnmarshalJSON([]byte(`"01/08/2026"`)); err == nil {
		t.Error("expected error for unsupported format")
	}
	if err := d.UnmarshalJSON([]byte(`42`)); err == nil {
		t.Error("expected error for non-string input")
	}
}

func TestMyDateStringDayBounds(t *testing.T) {
	var from MyDateString
	if err := from.UnmarshalJSON([]byte(`"2026-08-01"`)); err != nil {
		t.Fatal(err)
	}
	to := from

	if err := from.StartOfDayUTCTime(""); err != nil {
		t.Fatal(err)
	}
	if err := to.EndOfDayUTCTime(""); err != nil {
		t.Fatal(err)
	}

	start := time.Time(from)
	end := time.Time(to)
	if !start.Before(end) {
		t.Fatalf("start %s not before end %s", start, end)
	}
	// Asia/Yangon is UTC+6:30: local midnight is 17:30 UTC the day before
	if start.UTC().Hour() != 17 || start.UTC().Minute() != 30 {
		t.Errorf("start of day UTC = %s, want 17:30 previous day", start.UTC())
	}

	// nil receiver is a no-op
	var nilDate *MyDateString
	if err := nilDate.StartOfDayUTCTime(""); err != nil {
		t.Fatal(err)
	}
}

func TestEnumUnmarshalValidation(t *testing.T) {
	var side PartySide
	if err := side.UnmarshalJSON([]byte(`"Selling"`)); err != nil {
		t.Fatal(err)
	}
	if side != PartySideSelling {
		t.Errorf("side = %q", side)
	}
	if err := side.UnmarshalJSON([]byte(`"Renting"`)); err == nil {
		t.Error("expected error for unknown party side")
	}

	var applyOn ApplyOn
	if err := applyOn.UnmarshalJSON([]byte(`"ItemBundle"`)); err == nil {
		t.Error("expected error for unknown apply-on")
	}

	var status InvoiceStatus
	if err := status.UnmarshalJSON([]byte(`"Partial Paid"`)); err != nil {
		t.Fatal(err)
	}
	if status != InvoiceStatusPartialPaid {
		t.Errorf("status = %q", status)
	}
}

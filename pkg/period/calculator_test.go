package period

import (
	"testing"
	"time"

	"decodo-usage-bot/pkg/models"
)

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestWindowAnchor(t *testing.T) {
	tests := []struct {
		name      string
		anchor    int
		now       time.Time
		wantStart time.Time
		wantCycle time.Time
	}{
		{"anchor 31 mid Feb leap year", 31, date(2024, 2, 15, 10), date(2024, 1, 31, 0), date(2024, 2, 29, 0)},
		{"anchor 31 on Feb 29 leap year", 31, date(2024, 2, 29, 12), date(2024, 2, 29, 0), date(2024, 3, 31, 0)},
		{"anchor 31 on Feb 28 non-leap year", 31, date(2023, 2, 28, 0), date(2023, 2, 28, 0), date(2023, 3, 31, 0)},
		{"anchor 30 in Feb non-leap", 30, date(2023, 2, 27, 0), date(2023, 1, 30, 0), date(2023, 2, 28, 0)},
		{"anchor before today", 15, date(2024, 5, 19, 8), date(2024, 5, 15, 0), date(2024, 6, 15, 0)},
		{"anchor after today crosses year", 15, date(2024, 1, 10, 8), date(2023, 12, 15, 0), date(2024, 1, 15, 0)},
		{"anchor is today", 19, date(2024, 5, 19, 0), date(2024, 5, 19, 0), date(2024, 6, 19, 0)},
		{"anchor 1", 1, date(2024, 12, 31, 23), date(2024, 12, 1, 0), date(2025, 1, 1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCalculator(models.SubscriptionConfig{AnchorDay: tt.anchor})
			if c.Mode() != ModeAnchor {
				t.Fatalf("mode = %s, want %s", c.Mode(), ModeAnchor)
			}
			w, err := c.Window(tt.now)
			if err != nil {
				t.Fatalf("Window() error: %v", err)
			}
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("start = %s, want %s", w.Start, tt.wantStart)
			}
			if !w.End.Equal(tt.now) {
				t.Errorf("end = %s, want now %s", w.End, tt.now)
			}
			if !w.CycleEnd.Equal(tt.wantCycle) {
				t.Errorf("cycle end = %s, want %s", w.CycleEnd, tt.wantCycle)
			}
		})
	}
}

func TestWindowCalendarMonth(t *testing.T) {
	now := time.Date(2024, 5, 19, 10, 30, 0, 0, time.UTC)
	w, err := NewCalculator(models.SubscriptionConfig{}).Window(now)
	if err != nil {
		t.Fatalf("Window() error: %v", err)
	}
	if want := date(2024, 5, 1, 0); !w.Start.Equal(want) {
		t.Errorf("start = %s, want %s", w.Start, want)
	}
	if !w.End.Equal(now) {
		t.Errorf("end = %s, want %s", w.End, now)
	}
	if !w.CycleEnd.IsZero() {
		t.Errorf("cycle end should be unset, got %s", w.CycleEnd)
	}
}

func TestWindowConvertsToUTC(t *testing.T) {
	// 2024-06-01 02:00 +08:00 仍是 UTC 的 5 月 31 日
	loc := time.FixedZone("UTC+8", 8*3600)
	now := time.Date(2024, 6, 1, 2, 0, 0, 0, loc)
	w, err := NewCalculator(models.SubscriptionConfig{}).Window(now)
	if err != nil {
		t.Fatalf("Window() error: %v", err)
	}
	if want := date(2024, 5, 1, 0); !w.Start.Equal(want) {
		t.Errorf("start = %s, want %s", w.Start, want)
	}
}

func TestWindowFixedEnd(t *testing.T) {
	end := time.Date(2024, 3, 20, 23, 59, 59, 0, time.UTC)
	c := NewCalculator(models.SubscriptionConfig{FixedEnd: end})
	if c.Mode() != ModeFixedEnd {
		t.Fatalf("mode = %s, want %s", c.Mode(), ModeFixedEnd)
	}

	w, err := c.Window(date(2024, 5, 19, 0))
	if err != nil {
		t.Fatalf("Window() error: %v", err)
	}
	if want := date(2024, 3, 1, 0); !w.Start.Equal(want) {
		t.Errorf("start = %s, want %s", w.Start, want)
	}
	if !w.End.Equal(end) {
		t.Errorf("end = %s, want %s", w.End, end)
	}
}

func TestAnchorTakesPrecedence(t *testing.T) {
	c := NewCalculator(models.SubscriptionConfig{
		AnchorDay: 10,
		FixedEnd:  date(2020, 1, 1, 0),
	})
	if c.Mode() != ModeAnchor {
		t.Fatalf("mode = %s, want %s", c.Mode(), ModeAnchor)
	}
}

func TestWindowInvariants(t *testing.T) {
	base := date(2023, 1, 1, 0)
	for anchor := 1; anchor <= 31; anchor++ {
		c := NewCalculator(models.SubscriptionConfig{AnchorDay: anchor})
		for i := 0; i < 800; i += 3 {
			now := base.AddDate(0, 0, i).Add(time.Duration(i%24) * time.Hour)
			w, err := c.Window(now)
			if err != nil {
				t.Fatalf("anchor %d now %s: %v", anchor, now, err)
			}
			if w.End.Before(w.Start) {
				t.Fatalf("anchor %d now %s: end %s before start %s", anchor, now, w.End, w.Start)
			}
			wantDay := anchor
			if last := DaysInMonth(w.Start.Year(), w.Start.Month()); wantDay > last {
				wantDay = last
			}
			if w.Start.Day() != wantDay {
				t.Fatalf("anchor %d now %s: start day %d, want %d", anchor, now, w.Start.Day(), wantDay)
			}
			if now.Sub(w.Start) > 31*24*time.Hour+24*time.Hour {
				t.Fatalf("anchor %d now %s: window longer than a month: %s", anchor, now, w.Start)
			}
		}
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2100, time.February, 28},
		{2000, time.February, 29},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, tt := range tests {
		if got := DaysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysInMonth(%d, %s) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

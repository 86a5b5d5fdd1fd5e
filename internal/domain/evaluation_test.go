package domain

import (
	"testing"
	"time"
)

func TestDayTruncatesToCalendarDay(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	in := time.Date(2024, 5, 20, 23, 59, 58, 123, loc)

	got := Day(in)

	want := time.Date(2024, 5, 20, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got.Location() != loc {
		t.Errorf("location must be preserved, got %v", got.Location())
	}
}

package utils

import (
	"testing"
	"time"
)

func TestLoadLocationFallsBackToUTC(t *testing.T) {
	if loc := LoadLocation(""); loc != time.UTC {
		t.Errorf("empty name = %v, want UTC", loc)
	}
	if loc := LoadLocation("Nowhere/Atlantis"); loc != time.UTC {
		t.Errorf("unknown zone = %v, want UTC", loc)
	}
}

func TestClockIn(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	now := ClockIn(loc)()
	if now.Location() != loc {
		t.Errorf("location = %v, want %v", now.Location(), loc)
	}
}

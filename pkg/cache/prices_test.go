package cache

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want Freshness
	}{
		{time.Minute, Fresh},
		{14 * time.Minute, Fresh},
		{15 * time.Minute, Stale},
		{90 * time.Minute, Stale},
		{2 * time.Hour, Dead},
		{24 * time.Hour, Dead},
	}

	for _, tt := range tests {
		if got := Classify(tt.age); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.age, got, tt.want)
		}
	}
}

func TestEntryAge(t *testing.T) {
	now := time.Date(2026, time.January, 20, 12, 0, 0, 0, time.UTC)
	e := Entry{Price: 0.55, UpdatedAt: now.Add(-20 * time.Minute)}

	if e.Age(now) != 20*time.Minute {
		t.Errorf("Age = %v", e.Age(now))
	}
	if Classify(e.Age(now)) != Stale {
		t.Errorf("expected stale")
	}
}

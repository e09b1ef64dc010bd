package services

import (
	"testing"

	"attractions-scraper/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"  שלום   עולם  ", "שלום עולם"},
		{"Park\x00 HaYarkon", "Park HaYarkon"},
		{"one\t\ttwo", "one two"},
		{"already clean", "already clean"},
	}

	for _, tt := range tests {
		got := Normalize(tt.raw)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q; want %q", tt.raw, got, tt.want)
		}
		if again := Normalize(got); again != got {
			t.Errorf("Normalize not idempotent: %q -> %q -> %q", tt.raw, got, again)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"visit takes 2 hours 30 minutes", 150, true},
		{"about 90 minutes", 90, true},
		{"1.5 hours", 90, true},
		{"1 שעה ו-15 דקות", 75, true},
		{"a walk in the park", 0, false},
		{"0 minutes", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseDuration(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseDuration(%q) = (%d, %v); want (%d, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClassifyPrice(t *testing.T) {
	tests := []struct {
		raw  string
		want models.PriceRange
		ok   bool
	}{
		{"הכניסה חינם", models.PriceFree, true},
		{"free entry, $$$", models.PriceFree, true},
		{"$$$", models.PriceExpensive, true},
		{"₪₪₪₪", models.PriceExpensive, true},
		{"$", models.PriceCheap, true},
		{"very expensive place", models.PriceExpensive, true},
		{"מסעדה זולה", models.PriceCheap, true},
		{"a lovely museum", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ClassifyPrice(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ClassifyPrice(%q) = (%q, %v); want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClassifyTimeOfDay(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"great in the morning", "morning", true},
		{"perfect for lunch", "lunch", true},
		{"best at night", "night", true},
		{"מומלץ בשעות הבוקר", "morning", true},
		// Priority order: morning beats lunch when both appear.
		{"lunch in the morning", "morning", true},
		{"anytime", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ClassifyTimeOfDay(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ClassifyTimeOfDay(%q) = (%q, %v); want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsClosedIndicator(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"סגור", true},
		{"Closed", true},
		{"open 24 hours", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsClosedIndicator(tt.raw); got != tt.want {
			t.Errorf("IsClosedIndicator(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

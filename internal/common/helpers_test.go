package common

import (
	"testing"
	"time"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		paise int64
		want  string
	}{
		{50000, "₹500.00"},
		{50, "₹0.50"},
		{1, "₹0.01"},
		{0, "₹0.00"},
		{99999, "₹999.99"},
		{100, "₹1.00"},
		{-2550, "-₹25.50"},
	}

	for _, tt := range tests {
		if got := FormatPrice(tt.paise); got != tt.want {
			t.Errorf("FormatPrice(%d) = %q, want %q", tt.paise, got, tt.want)
		}
	}
}

func TestPluralizeSales(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{1, "продажа"},
		{21, "продажа"},
		{101, "продажа"},
		{2, "продажи"},
		{4, "продажи"},
		{23, "продажи"},
		{0, "продаж"},
		{5, "продаж"},
		{11, "продаж"},
		{12, "продаж"},
		{14, "продаж"},
		{100, "продаж"},
	}

	for _, tt := range tests {
		if got := PluralizeSales(tt.n); got != tt.want {
			t.Errorf("PluralizeSales(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestPluralizeMatches(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{1, "матч"},
		{3, "матча"},
		{7, "матчей"},
		{11, "матчей"},
		{22, "матча"},
	}

	for _, tt := range tests {
		if got := PluralizeMatches(tt.n); got != tt.want {
			t.Errorf("PluralizeMatches(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestAppLocation(t *testing.T) {
	t.Run("fallback on bad tz", func(t *testing.T) {
		loc := AppLocation("Nowhere/Invalid")
		if loc == nil {
			t.Fatal("nil location")
		}
		// Фиксированный сдвиг IST: +5:30
		_, offset := time.Date(2025, 6, 1, 0, 0, 0, 0, loc).Zone()
		if offset != 5*3600+30*60 {
			t.Errorf("offset = %d, want +5:30", offset)
		}
	})

	t.Run("utc", func(t *testing.T) {
		loc := AppLocation("UTC")
		if loc.String() != "UTC" {
			t.Errorf("loc = %s, want UTC", loc)
		}
	})
}

func TestFormatDateTime(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

	if got := FormatDateTime(ts, time.UTC); got != "01.06.2025 12:30" {
		t.Errorf("FormatDateTime = %q", got)
	}
	// nil-локация не должна ронять
	if got := FormatDateTime(ts, nil); got != "01.06.2025 12:30" {
		t.Errorf("FormatDateTime(nil loc) = %q", got)
	}
}

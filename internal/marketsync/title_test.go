package marketsync

import (
	"testing"

	"github.com/oddsline/newsflow/internal/model"
)

func TestExtractEventTicker(t *testing.T) {
	tests := []struct {
		name string
		c    model.ContractData
		want string
	}{
		{
			name: "metadata wins",
			c: model.ContractData{
				ContractID: "KXNBADOUBLE-25NOV28MINATL-YES",
				Metadata:   map[string]string{"eventTicker": "KXNBADOUBLE-25NOV28MINATL"},
			},
			want: "KXNBADOUBLE-25NOV28MINATL",
		},
		{
			name: "derived from contract id",
			c:    model.ContractData{ContractID: "KXNBADOUBLE-25NOV28MINATL-YES"},
			want: "KXNBADOUBLE-25NOV28MINATL",
		},
		{
			name: "two parts only",
			c:    model.ContractData{ContractID: "KXFED-26MAR"},
			want: "KXFED-26MAR",
		},
		{
			name: "no dashes",
			c:    model.ContractData{ContractID: "SINGLETON"},
			want: "",
		},
		{
			name: "empty id",
			c:    model.ContractData{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractEventTicker(tt.c); got != tt.want {
				t.Errorf("ExtractEventTicker() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLongestCommonPrefix(t *testing.T) {
	tests := []struct {
		name string
		strs []string
		want string
	}{
		{"empty input", nil, ""},
		{"single string", []string{"Only one"}, "Only one"},
		{"shared prefix", []string{"Game: Alpha", "Game: Beta"}, "Game: "},
		{"no shared prefix", []string{"Yes", "No"}, ""},
		{"identical strings", []string{"Same", "Same"}, "Same"},
		{"prefix is full shorter string", []string{"Rain", "Rainfall"}, "Rain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LongestCommonPrefix(tt.strs); got != tt.want {
				t.Errorf("LongestCommonPrefix() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveMarketTitle(t *testing.T) {
	tests := []struct {
		name      string
		contracts []model.ContractData
		want      string
	}{
		{
			name: "no contracts",
			want: "Unknown Market",
		},
		{
			name:      "single contract keeps its title",
			contracts: []model.ContractData{{Title: "Will it rain tomorrow?"}},
			want:      "Will it rain tomorrow?",
		},
		{
			name: "shared market title metadata wins",
			contracts: []model.ContractData{
				{Title: "Team A wins", Metadata: map[string]string{"marketTitle": "Championship Winner"}},
				{Title: "Team B wins", Metadata: map[string]string{"marketTitle": "Championship Winner"}},
			},
			want: "Championship Winner",
		},
		{
			name: "common prefix with trailing colon",
			contracts: []model.ContractData{
				{Title: "Minnesota at Atlanta: Double Doubles: Julius Randle"},
				{Title: "Minnesota at Atlanta: Double Doubles: Onyeka Okongwu"},
			},
			want: "Minnesota at Atlanta: Double Doubles",
		},
		{
			name: "partial token after separator is stripped",
			contracts: []model.ContractData{
				{Title: "Orlando at Indiana: Double Doubles: Paolo Banchero"},
				{Title: "Orlando at Indiana: Double Doubles: Pascal Siakam"},
			},
			want: "Orlando at Indiana: Double Doubles",
		},
		{
			name: "short prefix falls back to first title",
			contracts: []model.ContractData{
				{Title: "Yes"},
				{Title: "No"},
			},
			want: "Yes",
		},
		{
			name: "differing metadata falls through to prefix",
			contracts: []model.ContractData{
				{Title: "Fed cuts rates in March: 25bps", Metadata: map[string]string{"marketTitle": "A"}},
				{Title: "Fed cuts rates in March: 50bps", Metadata: map[string]string{"marketTitle": "B"}},
			},
			want: "Fed cuts rates in March",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveMarketTitle(tt.contracts); got != tt.want {
				t.Errorf("DeriveMarketTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanPrefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"empty", "", ""},
		{"trailing separator", "Game over: ", "Game over"},
		{"partial token after colon", "Double Doubles: Pa", "Double Doubles"},
		{"no separator keeps token", "Standalone", "Standalone"},
		{"trailing dash and spaces", "Series - ", "Series"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanPrefix(tt.prefix); got != tt.want {
				t.Errorf("cleanPrefix(%q) = %q, want %q", tt.prefix, got, tt.want)
			}
		})
	}
}

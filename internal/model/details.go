package model

import "github.com/shopspring/decimal"

// SignalDetails is the per-kind evidence attached to a Signal. Each signal
// kind has its own details type so the evidence stays typed instead of an
// open-ended map.
type SignalDetails interface {
	signalDetails()
}

type VelocityDetails struct {
	Count     int    `json:"count"`
	Threshold int    `json:"threshold"`
	Window    string `json:"window"`
}

type AmountDetails struct {
	Amount     decimal.Decimal `json:"amount"`
	Average    decimal.Decimal `json:"average"`
	Multiplier float64         `json:"multiplier"`
}

type LocationDetails struct {
	Location      string   `json:"location"`
	HomeLocations []string `json:"home_locations"`
	Denylisted    bool     `json:"denylisted,omitempty"`
	Watchlisted   bool     `json:"watchlisted,omitempty"`
}

type PatternDetails struct {
	Lookback  int    `json:"lookback"`
	RoundUnit string `json:"round_unit"`
}

type TimeDetails struct {
	LocalHour int    `json:"local_hour"`
	BandStart int    `json:"band_start"`
	BandEnd   int    `json:"band_end"`
	Timezone  string `json:"timezone"`
}

func (VelocityDetails) signalDetails() {}
func (AmountDetails) signalDetails()   {}
func (LocationDetails) signalDetails() {}
func (PatternDetails) signalDetails()  {}
func (TimeDetails) signalDetails()     {}

package models

// FrequencyClass categorizes how often an indicator's underlying data
// changes. It drives cache TTL selection.
type FrequencyClass string

const (
	FrequencyRealtime  FrequencyClass = "realtime"
	FrequencyDaily     FrequencyClass = "daily"
	FrequencyMonthly   FrequencyClass = "monthly"
	FrequencyQuarterly FrequencyClass = "quarterly"
	FrequencyAnnual    FrequencyClass = "annual"
)

// ParseFrequency maps a raw string to a class. Unknown strings fall back to
// annual, the most conservative (longest-lived) class.
func ParseFrequency(s string) FrequencyClass {
	switch FrequencyClass(s) {
	case FrequencyRealtime, FrequencyDaily, FrequencyMonthly, FrequencyQuarterly:
		return FrequencyClass(s)
	default:
		return FrequencyAnnual
	}
}

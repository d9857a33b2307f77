package domain

import "encoding/json"

// FeedType names a remote feed request kind
type FeedType string

const (
	FeedCurrentState FeedType = "current-state-generation"
	FeedCurrentIndia FeedType = "current-india-generation"
	FeedDailyState   FeedType = "daily-state-generation"
)

// IndiaStateCode is the pseudo state code used for India-wide rows
const IndiaStateCode = "IND"

// FeedRequest is the typed request understood by the feed proxy
type FeedRequest struct {
	Type   FeedType   `json:"type" validate:"required,oneof=current-state-generation current-india-generation daily-state-generation"`
	Inputs []WorkItem `json:"inputs,omitempty" validate:"required_if=Type daily-state-generation,dive"`
}

// FeedResponse carries the rows produced for a FeedRequest. Data is kept raw
// so callers can detect a missing key.
type FeedResponse struct {
	Data json.RawMessage `json:"data"`
}

// FeedRow is a flat column -> value record
type FeedRow map[string]string

// Feed column headers
var (
	CurrentStateColumns = []string{"StateCode", "Datetime", "Demand", "ISGS", "ImportData"}
	CurrentIndiaColumns = []string{"StateCode", "Datetime", "Demand", "Thermal", "GAS", "Nuclear", "Hydro", "Renewable"}
	DailyStateColumns   = []string{"StateCode", "DateTime", "State Generation", "Central ISGS", "Other ISGS", "Bilateral", "Power Exchange", "fetched_at"}
)

package config

// Application constants
const (
	AppName    = "gridcli"
	AppVersion = "0.4.0"

	// DefaultTimezone is where reports are published; "today" is computed here
	DefaultTimezone = "Asia/Kolkata"

	// DefaultDataStartSentinel labels the first region block of every report
	DefaultDataStartSentinel = "NORTHERN"

	// Output file names
	CombinedCSVName   = "all.csv"
	StateCodesName    = "state_codes.json"
	TrackingFileName  = "track.json"
	IndiaFeedFileName = "India-all.csv"
)

// DefaultDenylist holds banner and header fragments that never carry data
var DefaultDenylist = []string{
	"REGION WISE",
	"POWER STATION",
	"OPERATION PERFORMANCE MONITORING DIVISION",
}

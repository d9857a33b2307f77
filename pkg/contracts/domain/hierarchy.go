package domain

// RowClass is the role a row plays in the report hierarchy. The string value
// is what lands in the "Row Type" output column.
type RowClass string

const (
	ClassRegion       RowClass = "Region"
	ClassState        RowClass = "State"
	ClassSector       RowClass = "Sector"
	ClassStationType  RowClass = "Station Type"
	ClassStation      RowClass = "Station"
	ClassUnit         RowClass = "Unit"
	ClassUnclassified RowClass = ""
)

// Levels lists the emitted classes from the top of the hierarchy down
var Levels = []RowClass{
	ClassRegion,
	ClassState,
	ClassSector,
	ClassStationType,
	ClassStation,
	ClassUnit,
}

// HierarchyContext is the active ancestor set while walking a report.
// An empty string means the level is not set.
type HierarchyContext struct {
	Region      string `json:"region"`
	State       string `json:"state"`
	Sector      string `json:"sector"`
	StationType string `json:"station_type"`
	Station     string `json:"station"`
}

// EnterRegion starts a new region block, clearing everything beneath it
func (h HierarchyContext) EnterRegion(name string) HierarchyContext {
	return HierarchyContext{Region: name}
}

// EnterState starts a new state block within the current region
func (h HierarchyContext) EnterState(name string) HierarchyContext {
	return HierarchyContext{Region: h.Region, State: name}
}

// EnterSector starts a new sector block within the current state
func (h HierarchyContext) EnterSector(name string) HierarchyContext {
	return HierarchyContext{Region: h.Region, State: h.State, Sector: name}
}

// EnterStationType starts a new station type block within the current sector
func (h HierarchyContext) EnterStationType(name string) HierarchyContext {
	return HierarchyContext{Region: h.Region, State: h.State, Sector: h.Sector, StationType: name}
}

// EnterStation sets the active station, keeping the station type
func (h HierarchyContext) EnterStation(name string) HierarchyContext {
	h.Station = name
	return h
}

// Measurement column names, in output order
const (
	ColOutageType        = "Outage Type"
	ColMonitoredCapacity = "Monitored CAP in MW"
	ColTodayProgram      = "Generation / Today's Program"
	ColTodayActual       = "Generation / Today's Actual"
	ColYTDProgram        = "Generation / FY YTD Program"
	ColYTDActual         = "Generation / FY YTD Actual"
	ColCoalStock         = "Coal Stock in Days"
	ColCapacityOutage    = "CAP under outage"
	ColOutageDate        = "Outage Date"
	ColExpectedSyncDate  = "Expected Date / Sync Date"
	ColRemarks           = "Remarks"
)

// Hierarchy and provenance column names
const (
	ColRowType      = "Row Type"
	ColRegion       = "Region"
	ColState        = "State"
	ColSector       = "Sector"
	ColStationType  = "Station Type"
	ColStation      = "Station"
	ColUnit         = "Unit"
	ColDate         = "Date"
	ColSourceFormat = "Source Format"
)

// MeasureColumns are the measurement cells every denormalized row carries
var MeasureColumns = []string{
	ColOutageType,
	ColMonitoredCapacity,
	ColTodayProgram,
	ColTodayActual,
	ColYTDProgram,
	ColYTDActual,
	ColCoalStock,
	ColCapacityOutage,
	ColOutageDate,
	ColExpectedSyncDate,
	ColRemarks,
}

// Columns is the full combined dataset header
func Columns() []string {
	cols := []string{
		ColRowType,
		ColRegion,
		ColState,
		ColSector,
		ColStationType,
		ColStation,
		ColUnit,
		ColDate,
		ColSourceFormat,
	}
	return append(cols, MeasureColumns...)
}

// DenormalizedRow is one classified report row with its full ancestry
type DenormalizedRow struct {
	Class    RowClass
	Context  HierarchyContext
	Unit     string
	Date     string
	Format   SourceFormat
	Measures []Cell // aligned with MeasureColumns
}

// Record renders the row in Columns() order
func (d DenormalizedRow) Record() []string {
	rec := []string{
		string(d.Class),
		d.Context.Region,
		d.Context.State,
		d.Context.Sector,
		d.Context.StationType,
		d.Context.Station,
		d.Unit,
		d.Date,
		string(d.Format),
	}
	for i := range MeasureColumns {
		if i < len(d.Measures) {
			rec = append(rec, d.Measures[i].String())
		} else {
			rec = append(rec, "")
		}
	}
	return rec
}

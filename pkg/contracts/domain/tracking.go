package domain

// FailedDownload records why a dated download did not succeed
type FailedDownload struct {
	URL          string `json:"url"`
	ResponseCode int    `json:"response_code"`
}

// DownloadTracking is the persisted state of the report downloader
type DownloadTracking struct {
	Failed               map[string]FailedDownload `json:"failed"`
	LatestDownloadedDate string                    `json:"latest_downloaded_date,omitempty"`
}

// TrackingRecord is the cursor for one logical entity (a state code)
type TrackingRecord struct {
	LastFetched string `json:"last_fetched"`
}

// EntityTracking maps entity keys to their cursor
type EntityTracking map[string]TrackingRecord

// WorkItem is one pending (entity, date) unit of work
type WorkItem struct {
	Key  string `json:"state" validate:"required"`
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// ProcessedReport records a report date written to the datasets
type ProcessedReport struct {
	Rows        int    `json:"rows"`
	ProcessedAt string `json:"processed_at"`
}

// FailedReport records why a report date could not be processed
type FailedReport struct {
	File      string `json:"file"`
	ErrorType string `json:"error_type"`
	Error     string `json:"error"`
}

// ProcessingLedger is the persisted state of report processing. A date is
// either processed, failed or not seen yet.
type ProcessingLedger struct {
	Processed map[string]ProcessedReport `json:"processed"`
	Failed    map[string]FailedReport    `json:"failed"`
}

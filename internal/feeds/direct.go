package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "gridcli/internal/errors"
	"gridcli/internal/infrastructure"
	"gridcli/internal/operations"
	"gridcli/pkg/contracts/domain"
)

// Endpoint paths on the meritindia host
const (
	CurrentStatePath = "/StateWiseDetails/BindCurrentStateStatus"
	DailyStatePath   = "/StateWiseDetails/GetStateWiseDetailsForPiChart"
	IndiaMapPath     = "/Dashboard/BindAllIndiaMap"
)

// Fetcher answers typed feed requests
type Fetcher interface {
	Fetch(ctx context.Context, req domain.FeedRequest) ([]domain.FeedRow, error)
}

// DirectOptions wires a Direct source
type DirectOptions struct {
	BaseURL string
	Client  *infrastructure.HTTPClient
	Pool    *operations.Pool
	Codes   StateCodes
	// Location stamps fetch times; defaults to UTC
	Location *time.Location
	Metrics  *infrastructure.PipelineMetrics
	// Now is replaced in tests
	Now func() time.Time
}

// Direct queries the meritindia endpoints itself
type Direct struct {
	opts   DirectOptions
	logger *slog.Logger
}

// NewDirect creates a direct source
func NewDirect(opts DirectOptions, logger *slog.Logger) *Direct {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = infrastructure.NoopMetrics()
	}
	if opts.Pool == nil {
		opts.Pool = operations.NewPool(1, logger)
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Direct{
		opts:   opts,
		logger: logger.With(slog.String("component", "feed_direct")),
	}
}

// Fetch dispatches req to the matching source. Units run on the pool; a
// failing unit is logged and left out of the result. Fetch fails only when
// every unit failed.
func (d *Direct) Fetch(ctx context.Context, req domain.FeedRequest) ([]domain.FeedRow, error) {
	switch req.Type {
	case domain.FeedCurrentState:
		return collect(ctx, d, operations.Run(ctx, d.opts.Pool, d.opts.Codes.Sorted(), d.CurrentState))
	case domain.FeedCurrentIndia:
		row, err := d.CurrentIndia(ctx)
		if err != nil {
			return nil, err
		}
		return []domain.FeedRow{row}, nil
	case domain.FeedDailyState:
		return collect(ctx, d, operations.Run(ctx, d.opts.Pool, req.Inputs, d.DailyState))
	default:
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unknown feed type %q", req.Type))
	}
}

func collect(ctx context.Context, d *Direct, results []operations.Result[domain.FeedRow]) ([]domain.FeedRow, error) {
	rows := make([]domain.FeedRow, 0, len(results))
	var firstErr error
	for _, r := range results {
		if r.Err != nil {
			if firstErr == nil {
				firstErr = r.Err
			}
			d.logger.WarnContext(ctx, "Feed unit failed",
				slog.Int("index", r.Index),
				slog.String("error_type", string(apperrors.TypeOf(r.Err))),
				slog.String("error", r.Err.Error()))
			continue
		}
		rows = append(rows, r.Value)
	}
	if len(rows) == 0 && firstErr != nil {
		return nil, firstErr
	}
	sortRows(rows)
	return rows, nil
}

func (d *Direct) stamp() string {
	return d.opts.Now().In(d.opts.Location).Format(TimestampLayout)
}

func (d *Direct) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.opts.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperrors.NewNetworkError("invalid request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	body, _, err := d.opts.Client.Do(ctx, req)
	d.opts.Metrics.RecordFetch(ctx, path, start, err)
	return body, err
}

// CurrentState fetches the live demand of one state. The endpoint must
// answer with exactly one object.
func (d *Direct) CurrentState(ctx context.Context, code string) (domain.FeedRow, error) {
	body, err := d.postForm(ctx, CurrentStatePath, url.Values{"StateCode": {code}})
	if err != nil {
		return nil, err
	}

	rows, err := decodeObjects(body)
	if err != nil || len(rows) != 1 || !bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		d.logger.WarnContext(ctx, "Unexpected current state response",
			slog.String("state", code),
			slog.String("body", string(body)))
		return nil, apperrors.NewContractError("expected exactly one current state object", err).
			WithContext("state", code)
	}

	row := rows[0]
	row[KeyStateCode] = code
	row[KeyDatetime] = d.stamp()
	return row, nil
}

// CurrentIndia scrapes the all-India dashboard counters
func (d *Direct) CurrentIndia(ctx context.Context) (domain.FeedRow, error) {
	start := time.Now()
	body, _, err := d.opts.Client.Get(ctx, d.opts.BaseURL+IndiaMapPath)
	d.opts.Metrics.RecordFetch(ctx, IndiaMapPath, start, err)
	if err != nil {
		return nil, err
	}

	row, err := ParseIndiaCounters(body)
	if err != nil {
		return nil, err
	}
	row[KeyStateCode] = domain.IndiaStateCode
	row[KeyDatetime] = d.stamp()
	return row, nil
}

// ParseIndiaCounters reads the span.counter values of the second table of
// the dashboard page, in IndiaColumns order.
func ParseIndiaCounters(page []byte) (domain.FeedRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, apperrors.NewContractError("failed to parse dashboard html", err)
	}

	tables := doc.Find("table")
	if tables.Length() < 2 {
		return nil, apperrors.NewContractError(fmt.Sprintf("dashboard has %d tables, want at least 2", tables.Length()), nil)
	}

	var values []string
	tables.Eq(1).Find("span.counter").Each(func(_ int, s *goquery.Selection) {
		values = append(values, cleanCounter(s.Text()))
	})
	if len(values) == 0 {
		return nil, apperrors.NewContractError("dashboard has no counters", nil)
	}

	row := make(domain.FeedRow, len(IndiaColumns)+2)
	for i, col := range IndiaColumns {
		if i < len(values) {
			row[col] = values[i]
		}
	}
	return row, nil
}

type energyItem struct {
	TypeOfEnergy string          `json:"TypeOfEnergy"`
	EnergyValue  json.RawMessage `json:"EnergyValue"`
}

// DailyState fetches the generation mix of one state for one day
func (d *Direct) DailyState(ctx context.Context, item domain.WorkItem) (domain.FeedRow, error) {
	date, err := domain.ParseDay(item.Date)
	if err != nil {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("invalid date %q", item.Date))
	}

	body, err := d.postForm(ctx, DailyStatePath, url.Values{
		"StateCode": {item.Key},
		"date":      {date.Format(dailyDateLayout)},
	})
	if err != nil {
		return nil, err
	}

	var items []energyItem
	if err := json.Unmarshal(body, &items); err != nil {
		d.logger.WarnContext(ctx, "Unexpected daily state response",
			slog.String("state", item.Key),
			slog.String("date", item.Date),
			slog.String("body", string(body)))
		return nil, apperrors.NewContractError("failed to decode daily state response", err).
			WithContext("state", item.Key).
			WithContext("date", item.Date)
	}

	row := domain.FeedRow{
		KeyStateCode: item.Key,
		KeyDateTime:  item.Date,
		KeyFetchedAt: d.stamp(),
	}
	for _, e := range items {
		var v any
		dec := json.NewDecoder(bytes.NewReader(e.EnergyValue))
		dec.UseNumber()
		if err := dec.Decode(&v); err == nil {
			row[e.TypeOfEnergy] = text(v)
		}
	}
	return row, nil
}

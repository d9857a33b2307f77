package feeds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gridcli/pkg/contracts/domain"
)

// Row keys shared by the feed sources
const (
	KeyStateCode = "StateCode"
	KeyDatetime  = "Datetime"
	KeyDateTime  = "DateTime"
	KeyFetchedAt = "fetched_at"
)

// TimestampLayout renders fetch times in feed rows
const TimestampLayout = "2006-01-02 15:04:05"

// dailyDateLayout is the date form the pie chart endpoint expects
const dailyDateLayout = "02 Jan 2006"

// IndiaColumns are the dashboard counters in page order
var IndiaColumns = []string{"Demand", "Thermal", "GAS", "Nuclear", "Hydro", "Renewable"}

// decodeObjects decodes a JSON array of objects, or a single object, into
// feed rows. Values keep their textual form.
func decodeObjects(data []byte) ([]domain.FeedRow, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("no data")
	}

	var objects []map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if data[0] == '{' {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, err
		}
		objects = []map[string]any{obj}
	} else if err := dec.Decode(&objects); err != nil {
		return nil, err
	}

	rows := make([]domain.FeedRow, 0, len(objects))
	for _, obj := range objects {
		row := make(domain.FeedRow, len(obj))
		for k, v := range obj {
			row[k] = text(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// cleanCounter strips layout whitespace and thousands separators
func cleanCounter(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}

// sortRows orders rows by state code, then by date
func sortRows(rows []domain.FeedRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i][KeyStateCode] != rows[j][KeyStateCode] {
			return rows[i][KeyStateCode] < rows[j][KeyStateCode]
		}
		return rows[i][KeyDateTime] < rows[j][KeyDateTime]
	})
}

// Completed returns the requested items that may advance the tracker: per
// state, every answered date before the first unanswered one. A later
// answered date never skips over a gap.
func Completed(requested []domain.WorkItem, rows []domain.FeedRow) []domain.WorkItem {
	answered := make(map[domain.WorkItem]bool, len(rows))
	for _, row := range rows {
		answered[domain.WorkItem{Key: row[KeyStateCode], Date: row[KeyDateTime]}] = true
	}

	byKey := make(map[string][]domain.WorkItem)
	var keys []string
	for _, item := range requested {
		if _, ok := byKey[item.Key]; !ok {
			keys = append(keys, item.Key)
		}
		byKey[item.Key] = append(byKey[item.Key], item)
	}

	var done []domain.WorkItem
	for _, key := range keys {
		items := byKey[key]
		sort.Slice(items, func(i, j int) bool { return items[i].Date < items[j].Date })
		for _, item := range items {
			if !answered[item] {
				break
			}
			done = append(done, item)
		}
	}
	return done
}

// incompleteKeys returns the states with a requested item missing from done
func incompleteKeys(requested, done []domain.WorkItem) map[string]bool {
	ok := make(map[domain.WorkItem]bool, len(done))
	for _, item := range done {
		ok[item] = true
	}
	out := make(map[string]bool)
	for _, item := range requested {
		if !ok[item] {
			out[item.Key] = true
		}
	}
	return out
}

// rowsFor keeps the rows answering one of the items
func rowsFor(items []domain.WorkItem, rows []domain.FeedRow) []domain.FeedRow {
	want := make(map[domain.WorkItem]bool, len(items))
	for _, item := range items {
		want[item] = true
	}
	out := make([]domain.FeedRow, 0, len(rows))
	for _, row := range rows {
		if want[domain.WorkItem{Key: row[KeyStateCode], Date: row[KeyDateTime]}] {
			out = append(out, row)
		}
	}
	return out
}

// withoutKeys drops the items whose state is in keys
func withoutKeys(items []domain.WorkItem, keys map[string]bool) []domain.WorkItem {
	if len(keys) == 0 {
		return items
	}
	out := make([]domain.WorkItem, 0, len(items))
	for _, item := range items {
		if !keys[item.Key] {
			out = append(out, item)
		}
	}
	return out
}

package feeds

import (
	_ "embed"
	"encoding/json"
	"os"
	"sort"

	apperrors "gridcli/internal/errors"
)

//go:embed state_codes.json
var embeddedStateCodes []byte

// StateCodes maps a state code to its display name
type StateCodes map[string]string

// LoadStateCodes reads the code file at path, or the built-in list when
// path is empty.
func LoadStateCodes(path string) (StateCodes, error) {
	data := embeddedStateCodes
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.NewConfigError("failed to read state codes file", err).WithContext("path", path)
		}
		data = raw
	}

	var codes StateCodes
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, apperrors.NewConfigError("invalid state codes file", err).WithContext("path", path)
	}
	if len(codes) == 0 {
		return nil, apperrors.NewConfigError("state codes file is empty", nil).WithContext("path", path)
	}
	return codes, nil
}

// Sorted returns the codes in lexical order
func (s StateCodes) Sorted() []string {
	out := make([]string, 0, len(s))
	for code := range s {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

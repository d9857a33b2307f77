package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"download", "process", "feeds", "serve"})

	process, _, err := root.Find([]string{"process"})
	require.NoError(t, err)
	for _, flag := range []string{"from", "to", "from-archive", "reprocess"} {
		assert.NotNil(t, process.Flags().Lookup(flag), flag)
	}
}

func TestFeedsCmd_RejectsUnknownFeed(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"feeds", "weekly"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weekly")
}

func TestParseDateFlag(t *testing.T) {
	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{value: "", want: ""},
		{value: "2023-01-05", want: "2023-01-05"},
		{value: "05-01-2023", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseDateFlag("from", tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "--from")
				return
			}
			require.NoError(t, err)
			if tt.want == "" {
				assert.True(t, got.IsZero())
				return
			}
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestVersionFlag(t *testing.T) {
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "gridcli v")
}

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    float64
		wantErr bool
	}{
		{name: "expense", arg: "-450.50", want: -450.50},
		{name: "income", arg: "28000", want: 28000},
		{name: "padded", arg: " 12.5 ", want: 12.5},
		{name: "not a number", arg: "fyrtiotvå", wantErr: true},
		{name: "empty", arg: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.arg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSuggestTakesDescriptionAndAmount(t *testing.T) {
	cmd := suggestCmd()
	assert.Error(t, cmd.Args(cmd, []string{"ICA SUPERMARKET STOCKHOLM"}))
	assert.NoError(t, cmd.Args(cmd, []string{"ICA SUPERMARKET STOCKHOLM", "-450.50"}))
}

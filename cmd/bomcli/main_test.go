package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/bomquote/internal/core"
)

func TestParseMapFlag(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    core.Mapping
		wantErr error
	}{
		{"empty keeps default", "  ", nil, nil},
		{"part number only", "0=partNumber", core.Mapping{0: core.RolePartNumber}, nil},
		{"all roles with spaces", " 2 = partNumber, 0=quantity ,1=manufacturer",
			core.Mapping{2: core.RolePartNumber, 0: core.RoleQuantity, 1: core.RoleManufacturer}, nil},
		{"unknown role", "0=partNumber,1=price", nil, core.ErrInvalidRole},
		{"negative column", "-1=partNumber", nil, core.ErrInvalidColumn},
		{"no part number", "0=quantity", nil, core.ErrNoPartNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMapFlag(tt.value)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMapFlag_Malformed(t *testing.T) {
	for _, value := range []string{"0", "a=partNumber", "0=partNumber,1=partNumber"} {
		_, err := parseMapFlag(value)
		assert.Error(t, err, value)
	}
}

func TestUserError(t *testing.T) {
	err := userError(core.ErrNoPartNumber)
	assert.True(t, errors.Is(err, core.ErrNoPartNumber))
	assert.True(t, strings.HasPrefix(err.Error(), core.FormatUserError(core.ErrNoPartNumber)))
	assert.Contains(t, err.Error(), "(Code: MAP001)")

	odd := errors.New("disk on fire")
	assert.Same(t, odd, userError(odd))
}

func TestPrintSummary(t *testing.T) {
	rows := []core.ResultRow{
		{MPN: "LM317T", Manufacturer: "TI", RequestedQuantity: core.Some(10), Price: core.Some(0.5), Status: "found"},
		{MPN: "X1", Status: "not found"},
	}
	var buf bytes.Buffer
	printSummary(&buf, rows, 1, "out.xlsx")

	out := buf.String()
	assert.Contains(t, out, "LM317T")
	assert.Contains(t, out, "0.50 USD")
	assert.Contains(t, out, "2 rows, 1 not found, written to out.xlsx")
}

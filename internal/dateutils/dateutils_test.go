package dateutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name        string
		dateStr     string
		expectedOk  bool
		expectedY   int
		expectedM   time.Month
		expectedD   int
		expectedFmt string
	}{
		{"ISO format", "2023-01-15", true, 2023, time.January, 15, LayoutISO},
		{"European format", "15.01.2023", true, 2023, time.January, 15, LayoutEuropean},
		{"UK slash format", "15/01/2023", true, 2023, time.January, 15, "02/01/2006"},
		{"US format", "01/15/2023", true, 2023, time.January, 15, LayoutUS},
		{"Dash-separated EU", "15-01-2023", true, 2023, time.January, 15, "02-01-2006"},
		{"Compact format", "20230115", true, 2023, time.January, 15, LayoutCompact},
		{"Quoted cell", `"2023-01-15"`, true, 2023, time.January, 15, LayoutISO},
		{"Empty string", "", false, 0, 0, 0, ""},
		{"Invalid format", "not a date", false, 0, 0, 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			date, layout, err := ParseDate(tc.dateStr)

			if tc.expectedOk {
				assert.NoError(t, err)
				assert.Equal(t, tc.expectedY, date.Year())
				assert.Equal(t, tc.expectedM, date.Month())
				assert.Equal(t, tc.expectedD, date.Day())
				assert.Equal(t, tc.expectedFmt, layout)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseSwiftDate(t *testing.T) {
	date, err := ParseSwiftDate("230115")
	require.NoError(t, err)
	assert.Equal(t, 2023, date.Year())
	assert.Equal(t, time.January, date.Month())
	assert.Equal(t, 15, date.Day())

	_, err = ParseSwiftDate("23011")
	assert.Error(t, err)
}

func TestParseOFXDate(t *testing.T) {
	tests := []struct {
		name    string
		dateStr string
		ok      bool
	}{
		{"Date only", "20230115", true},
		{"With time", "20230115120000", true},
		{"With timezone suffix", "20230115120000[-5:EST]", true},
		{"Too short", "2023", false},
		{"Garbage", "abcdefgh", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			date, err := ParseOFXDate(tc.dateStr)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, time.Date(2023, time.January, 15, 0, 0, 0, 0, time.UTC), date)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsDateLike(t *testing.T) {
	assert.True(t, IsDateLike("2023-01-15"))
	assert.True(t, IsDateLike("15.01.2023"))
	assert.False(t, IsDateLike("Booking Date"))
	assert.False(t, IsDateLike(""))
}

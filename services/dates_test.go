package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := map[string]string{
		"15/03/2023":          "2023-03-15",
		"15-03-2023":          "2023-03-15",
		"2023-03-15":          "2023-03-15",
		"15/03/23":            "2023-03-15",
		"15/03/2023 00:00:00": "2023-03-15",
		"2023-03-15T10:04:05": "2023-03-15",
	}
	for in, want := range cases {
		got := ParseDate(in)
		require.NotNil(t, got, "input %q", in)
		assert.Equal(t, want, got.Format("2006-01-02"), "input %q", in)
	}

	assert.Nil(t, ParseDate(""))
	assert.Nil(t, ParseDate("not a date"))
	assert.Nil(t, ParseDate("32/13/2023"))
}

func TestParseCnpqDate(t *testing.T) {
	got := ParseCnpqDate("02/05/2019")
	assert.Equal(t, "2019-05-02", got.Format("2006-01-02"))

	// Unparseable input falls back to today.
	fallback := ParseCnpqDate("garbage")
	assert.Equal(t, time.Now().Format("2006-01-02"), fallback.Format("2006-01-02"))
}

func TestSameDay(t *testing.T) {
	a := time.Date(2023, 3, 15, 8, 0, 0, 0, time.UTC)
	b := time.Date(2023, 3, 15, 23, 59, 0, 0, time.UTC)
	c := time.Date(2023, 3, 16, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(&a, &b))
	assert.False(t, SameDay(&a, &c))
	assert.True(t, SameDay(nil, nil))
	assert.False(t, SameDay(&a, nil))
	assert.False(t, SameDay(nil, &a))
}

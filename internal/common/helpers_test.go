package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinWithAnd(t *testing.T) {
	assert.Equal(t, "", JoinWithAnd(nil))
	assert.Equal(t, "#a", JoinWithAnd([]string{"#a"}))
	assert.Equal(t, "#a and #b", JoinWithAnd([]string{"#a", "#b"}))
	assert.Equal(t, "#a, #b and #c", JoinWithAnd([]string{"#a", "#b", "#c"}))
	assert.Equal(t, "#a, #b, #c and #d", JoinWithAnd([]string{"#a", "#b", "#c", "#d"}))
}

func TestMentions(t *testing.T) {
	assert.Equal(t, "<@U1>", UserMention("U1"))
	assert.Equal(t, "<#C1>", ChannelMention("C1"))
	assert.Equal(t, "<@U1> <@U2>", UserMentions([]string{"U1", "U2"}))
	assert.Equal(t, "", UserMentions(nil))
	assert.Equal(t, []string{"<#C1>", "<#C2>"}, ChannelMentions([]string{"C1", "C2"}))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,000", FormatNumber(1000))
	assert.Equal(t, "12,350", FormatNumber(12350))
	assert.Equal(t, "1,000,007", FormatNumber(1000007))
	assert.Equal(t, "-2,500", FormatNumber(-2500))
}

func TestFormatTimeAgo(t *testing.T) {
	assert.Equal(t, "5m ago", FormatTimeAgo(5*time.Minute+10*time.Second))
	assert.Equal(t, "3h 12m ago", FormatTimeAgo(3*time.Hour+12*time.Minute))
	assert.Equal(t, "0m ago", FormatTimeAgo(-time.Minute))
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = LoadLocation("UTC+3")
	require.NoError(t, err)
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 3*3600, offset)

	loc, err = LoadLocation("utc-5")
	require.NoError(t, err)
	_, offset = time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, -5*3600, offset)

	_, err = LoadLocation("UTC+20")
	assert.ErrorIs(t, err, ErrInvalidTimezone)

	_, err = LoadLocation("Mars/Olympus")
	assert.ErrorIs(t, err, ErrInvalidTimezone)
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(ErrSelfKudos))
	assert.True(t, IsValidation(fmt.Errorf("wrap: %w", ErrChannelNotFound)))
	assert.True(t, IsValidation(&QuotaExceededError{Needed: 3, Remaining: 2}))
	assert.False(t, IsValidation(errors.New("connection refused")))
	assert.False(t, IsValidation(nil))

	var qe *QuotaExceededError
	err := fmt.Errorf("give: %w", &QuotaExceededError{Needed: 3, Remaining: 2})
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 3, qe.Needed)
	assert.Equal(t, 2, qe.Remaining)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

package filter_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/relaybot/internal/filter"
)

func TestFirstMatch(t *testing.T) {
	t.Parallel()

	m := filter.NewMatcher(32, 64, nil)

	tests := []struct {
		name     string
		patterns []string
		text     string
		want     string
		matched  bool
	}{
		{name: "No patterns", patterns: nil, text: "hello", matched: false},
		{name: "Case insensitive", patterns: []string{"spam"}, text: "Buy SPAM now", want: "spam", matched: true},
		{name: "First match wins", patterns: []string{"buy", "now"}, text: "buy now", want: "buy", matched: true},
		{name: "Malformed pattern skipped", patterns: []string{"([", "casino"}, text: "casino night", want: "casino", matched: true},
		{name: "Over-long pattern skipped", patterns: []string{strings.Repeat("a", 33)}, text: strings.Repeat("a", 40), matched: false},
		{name: "Blank pattern skipped", patterns: []string{"  "}, text: "anything", matched: false},
		{name: "Zero-width characters ignored", patterns: []string{"casino"}, text: "cas\u200Bino", want: "casino", matched: true},
		{name: "Input truncated", patterns: []string{"tail"}, text: strings.Repeat("x", 64) + "tail", matched: false},
		{name: "Empty text", patterns: []string{".*"}, text: "", matched: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := m.FirstMatch(context.Background(), tt.patterns, tt.text)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAutoReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entry   string
		want    filter.AutoReply
		wantErr bool
	}{
		{name: "Valid", entry: "price===See our site", want: filter.AutoReply{Pattern: "price", Response: "See our site"}},
		{name: "Trimmed", entry: "  hours ===  9 to 5 ", want: filter.AutoReply{Pattern: "hours", Response: "9 to 5"}},
		{name: "Separator in response", entry: "a===b===c", want: filter.AutoReply{Pattern: "a", Response: "b===c"}},
		{name: "Missing separator", entry: "price", wantErr: true},
		{name: "Empty response", entry: "price===", wantErr: true},
		{name: "Empty pattern", entry: "===reply", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := filter.ParseAutoReply(tt.entry)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchAutoReply(t *testing.T) {
	t.Parallel()

	m := filter.NewMatcher(64, 256, nil)
	entries := []string{"broken entry", "(===bad regex", "price|cost===Prices are on our site", "price===never reached"}

	rule, ok := m.MatchAutoReply(context.Background(), entries, "What is the PRICE?")
	require.True(t, ok)
	assert.Equal(t, "Prices are on our site", rule.Response)

	_, ok = m.MatchAutoReply(context.Background(), entries, "hello")
	assert.False(t, ok)
}

func TestValidatePattern(t *testing.T) {
	t.Parallel()

	m := filter.NewMatcher(8, 100, nil)
	assert.NoError(t, m.ValidatePattern("ab+c"))
	assert.Error(t, m.ValidatePattern(""))
	assert.Error(t, m.ValidatePattern("(unclosed"))
	assert.Error(t, m.ValidatePattern("abcdefghi"))
}

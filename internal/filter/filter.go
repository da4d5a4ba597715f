// Package filter matches user text against operator-defined patterns:
// blocked keywords and auto-reply rules.
package filter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// AutoReplySeparator splits an auto-reply entry into pattern and response.
const AutoReplySeparator = "==="

var invisibleReplacer = strings.NewReplacer(
	"\u2060", "", "\u180E", "",
	"\u200B", "", "\u200C", "",
	"\u200D", "", "\uFEFF", "",
	"\u00AD", "",
	"\u202A", "", "\u202B", "",
	"\u202C", "", "\u202D", "", "\u202E", "",
)

// AutoReply is a parsed `pattern===response` rule.
type AutoReply struct {
	Pattern  string
	Response string
}

// Matcher compiles patterns case-insensitively and bounds the work done per match.
type Matcher struct {
	maxPatternLength int
	maxInput         int
	logger           *slog.Logger
}

// NewMatcher creates a matcher. Patterns longer than maxPatternLength are
// skipped and inputs are truncated to maxInput runes.
func NewMatcher(maxPatternLength, maxInput int, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Matcher{
		maxPatternLength: maxPatternLength,
		maxInput:         maxInput,
		logger:           logger.With("component", "filter"),
	}
}

// ValidatePattern reports why a pattern would be skipped at match time.
func (m *Matcher) ValidatePattern(pattern string) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return fmt.Errorf("pattern is empty")
	}
	if m.maxPatternLength > 0 && len([]rune(pattern)) > m.maxPatternLength {
		return fmt.Errorf("pattern longer than %d characters", m.maxPatternLength)
	}
	if _, err := regexp.Compile("(?i)" + pattern); err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	return nil
}

// FirstMatch returns the first pattern in patterns matching text.
func (m *Matcher) FirstMatch(ctx context.Context, patterns []string, text string) (string, bool) {
	if text == "" {
		return "", false
	}
	input := m.prepare(text)
	for _, pattern := range patterns {
		re := m.compile(ctx, pattern)
		if re != nil && re.MatchString(input) {
			return pattern, true
		}
	}
	return "", false
}

// MatchAutoReply returns the first rule whose pattern matches text.
// Entries that do not parse are skipped.
func (m *Matcher) MatchAutoReply(ctx context.Context, entries []string, text string) (AutoReply, bool) {
	if text == "" {
		return AutoReply{}, false
	}
	input := m.prepare(text)
	for _, entry := range entries {
		rule, err := ParseAutoReply(entry)
		if err != nil {
			m.logger.WarnContext(ctx, "Skipping malformed auto-reply rule", "entry", entry, "error", err)
			continue
		}
		re := m.compile(ctx, rule.Pattern)
		if re != nil && re.MatchString(input) {
			return rule, true
		}
	}
	return AutoReply{}, false
}

// ParseAutoReply splits entry on the first separator. Both sides must be non-empty.
func ParseAutoReply(entry string) (AutoReply, error) {
	pattern, response, ok := strings.Cut(entry, AutoReplySeparator)
	if !ok {
		return AutoReply{}, fmt.Errorf("missing %q separator", AutoReplySeparator)
	}
	pattern = strings.TrimSpace(pattern)
	response = strings.TrimSpace(response)
	if pattern == "" || response == "" {
		return AutoReply{}, fmt.Errorf("pattern and response must both be set")
	}
	return AutoReply{Pattern: pattern, Response: response}, nil
}

func (m *Matcher) compile(ctx context.Context, pattern string) *regexp.Regexp {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	if m.maxPatternLength > 0 && len([]rune(pattern)) > m.maxPatternLength {
		m.logger.WarnContext(ctx, "Skipping over-long pattern", "length", len([]rune(pattern)), "max", m.maxPatternLength)
		return nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		m.logger.WarnContext(ctx, "Skipping malformed pattern", "pattern", pattern, "error", err)
		return nil
	}
	return re
}

// prepare strips invisible characters and truncates to the input bound.
func (m *Matcher) prepare(text string) string {
	text = invisibleReplacer.Replace(text)
	if m.maxInput > 0 {
		if runes := []rune(text); len(runes) > m.maxInput {
			text = string(runes[:m.maxInput])
		}
	}
	return text
}

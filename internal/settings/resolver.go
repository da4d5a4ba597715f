package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Source is the persisted layer of the configuration.
type Source interface {
	GetConfigValue(ctx context.Context, key string) (string, bool, error)
	SetConfigValue(ctx context.Context, key, value string) error
}

// Resolve picks the effective value of key from the persisted value, the
// environment defaults and the compiled-in default, in that order.
func Resolve(key string, stored string, storedOK bool, env map[string]string) string {
	if storedOK {
		return stored
	}
	if v, ok := env[key]; ok {
		return v
	}
	if k, ok := Lookup(key); ok {
		return k.Default
	}
	return ""
}

// Resolver reads runtime settings fresh from the store on every call.
type Resolver struct {
	source Source
	env    map[string]string
	logger *slog.Logger
}

// NewResolver creates a resolver over the given store and environment defaults.
func NewResolver(source Source, env map[string]string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{
		source: source,
		env:    env,
		logger: logger.With("component", "settings"),
	}
}

// String returns the effective value of key. A store failure falls through to
// the lower layers.
func (r *Resolver) String(ctx context.Context, key string) string {
	stored, ok, err := r.source.GetConfigValue(ctx, key)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to read persisted setting, using defaults", "key", key, "error", err)
		ok = false
	}
	return Resolve(key, stored, ok, r.env)
}

// Bool returns key as a boolean; unparsable values fall back to the compiled-in default.
func (r *Resolver) Bool(ctx context.Context, key string) bool {
	v := r.String(ctx, key)
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err == nil {
		return b
	}
	r.logger.WarnContext(ctx, "Invalid boolean setting", "key", key, "value", v)
	if k, ok := Lookup(key); ok {
		b, _ = strconv.ParseBool(k.Default)
	}
	return b
}

// Int returns key as an integer; unparsable values fall back to the compiled-in default.
func (r *Resolver) Int(ctx context.Context, key string) int {
	v := r.String(ctx, key)
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil {
		return n
	}
	r.logger.WarnContext(ctx, "Invalid integer setting", "key", key, "value", v)
	if k, ok := Lookup(key); ok {
		n, _ = strconv.Atoi(k.Default)
	}
	return n
}

// List returns key as an ordered list of non-empty entries. Operator ids may
// also be comma separated, as in BOT_DEFAULTS_AUTHORIZED_ADMINS=7,8.
func (r *Resolver) List(ctx context.Context, key string) []string {
	items := DecodeList(r.String(ctx, key))
	if key == KeyOperators {
		items = cleanList(lo.FlatMap(items, func(s string, _ int) []string { return strings.Split(s, ",") }))
	}
	return items
}

// Set persists a scalar value.
func (r *Resolver) Set(ctx context.Context, key, value string) error {
	if err := r.source.SetConfigValue(ctx, key, value); err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// SetList persists a list value as a JSON array.
func (r *Resolver) SetList(ctx context.Context, key string, items []string) error {
	return r.Set(ctx, key, EncodeList(items))
}

// DecodeList parses a JSON array of strings. Values that are not JSON are
// treated as one entry per line.
func DecodeList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var items []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &items); err == nil {
			return cleanList(items)
		}
	}
	return cleanList(strings.Split(raw, "\n"))
}

// EncodeList renders items as a JSON array.
func EncodeList(items []string) string {
	b, err := json.Marshal(cleanList(items))
	if err != nil {
		return "[]"
	}
	return string(b)
}

func cleanList(items []string) []string {
	trimmed := lo.Map(items, func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Filter(trimmed, func(s string, _ int) bool { return s != "" })
}

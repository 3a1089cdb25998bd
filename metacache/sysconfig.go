package metacache

import (
	"context"
	"strings"

	"github.com/spf13/cast"

	"github.com/jonwraymond/metacache/observe"
	"github.com/jonwraymond/metacache/store"
)

// systemConfigKey is the shared value holding the loaded configuration.
const systemConfigKey = "metacache.system_config"

// SystemConfig returns the system configuration value for code. Rows with
// only a value yield a string; rows that also carry value2 or a file id
// yield a map with keys "value", "value2" and "file_id".
//
// The whole table is read once and kept as a shared value, so Clear forces
// a reload.
func (c *Cache) SystemConfig(ctx context.Context, code string) (any, bool, error) {
	cfg, err := c.systemConfig(ctx)
	if err != nil {
		return nil, false, err
	}
	v, ok := cfg[code]
	return v, ok, nil
}

// SystemConfigString returns the value column for code.
func (c *Cache) SystemConfigString(ctx context.Context, code string) (string, bool, error) {
	v, ok, err := c.SystemConfig(ctx, code)
	if err != nil || !ok {
		return "", ok, err
	}
	if m, isMap := v.(map[string]any); isMap {
		v = m["value"]
	}
	return cast.ToString(v), true, nil
}

// SystemConfigInt64 returns the value column for code as an integer.
func (c *Cache) SystemConfigInt64(ctx context.Context, code string) (int64, bool, error) {
	s, ok, err := c.SystemConfigString(ctx, code)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := cast.ToInt64E(strings.TrimSpace(s))
	if err != nil {
		return 0, true, invalidArg(code, s, "not an integer")
	}
	return n, true, nil
}

// SystemConfigMap returns the row for code as a map with keys "value",
// "value2" and "file_id", whatever shape it is stored in.
func (c *Cache) SystemConfigMap(ctx context.Context, code string) (map[string]any, bool, error) {
	v, ok, err := c.SystemConfig(ctx, code)
	if err != nil || !ok {
		return nil, ok, err
	}
	if m, isMap := v.(map[string]any); isMap {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true, nil
	}
	return map[string]any{"value": v, "value2": "", "file_id": nil}, true, nil
}

func (c *Cache) systemConfig(ctx context.Context) (map[string]any, error) {
	if v, ok := c.SharedValue(ctx, systemConfigKey); ok {
		if cfg, ok := v.(map[string]any); ok {
			return cfg, nil
		}
	}

	v, err := c.shared(ctx, "system_config", func(ctx context.Context) (any, error) {
		cfg, err := c.querySystemConfig(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.PutSharedValue(ctx, systemConfigKey, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func (c *Cache) querySystemConfig(ctx context.Context) (map[string]any, error) {
	table, err := store.QuoteIdent(c.store, c.sysTable)
	if err != nil {
		return nil, invalidArg("system config table", c.sysTable, err.Error())
	}
	rows, err := c.store.Query(store.WithStatement(ctx, "system_config"),
		"select c_code code, c_value value, c_value2 value2, c_file file_id from "+table+" order by c_code", nil)
	if err != nil {
		c.logger.Error(ctx, "system config query failed", observe.F("table", c.sysTable), observe.F("error", err))
		return nil, dataAccess(err)
	}

	cfg := make(map[string]any, len(rows))
	for _, row := range rows {
		code := row.String("CODE")
		value2 := row.String("VALUE2")
		fileID, err := optionalInt64(row, "FILE_ID")
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(value2) != "" || fileID != nil {
			entry := map[string]any{
				"value":   row.String("VALUE"),
				"value2":  value2,
				"file_id": nil,
			}
			if fileID != nil {
				entry["file_id"] = *fileID
			}
			cfg[code] = entry
			continue
		}
		cfg[code] = row.String("VALUE")
	}
	return cfg, nil
}

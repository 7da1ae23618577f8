package runtime

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

// ErrorFormat controls how much detail Error() renders.
type ErrorFormat string

const (
	ErrorFormatMinimal ErrorFormat = "minimal"
	ErrorFormatPretty  ErrorFormat = "pretty"
)

// Config represents database and client configuration.
type Config struct {
	DatasourceURL  string        `env:"DATABASE_URL" required:"true"`
	MaxConns       int32         `env:"DB_MAX_CONNS" default:"10"`
	MinConns       int32         `env:"DB_MIN_CONNS" default:"2"`
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`

	LogLevel   string `env:"LOG_LEVEL" default:"info"`
	LogFormat  string `env:"LOG_FORMAT" default:"text"`
	LogOutput  string `env:"LOG_OUTPUT" default:"stderr"`
	LogQueries bool   `env:"LOG_QUERIES" default:"false"`

	ErrorFormat ErrorFormat `env:"ERROR_FORMAT" default:"minimal"`

	TxMaxWait   time.Duration  `env:"TX_MAX_WAIT" default:"2s"`
	TxTimeout   time.Duration  `env:"TX_TIMEOUT" default:"5s"`
	TxIsolation pgx.TxIsoLevel `env:"TX_ISOLATION"`

	// Omit maps a table name to columns left out of results unless selected.
	Omit map[string][]string `env:"DB_OMIT"`

	// RedisURL enables the store settings cache when set.
	RedisURL         string        `env:"REDIS_URL"`
	SettingsCacheTTL time.Duration `env:"SETTINGS_CACHE_TTL" default:"10m"`

	// SweepSchedule is the cron spec for expiring postings and discounts.
	SweepSchedule string `env:"SWEEP_SCHEDULE" default:"@every 15m"`
}

// DefaultConfig returns a configuration with every default applied and no
// datasource.
func DefaultConfig() *Config {
	cfg := &Config{}
	_ = applyEnv(cfg, func(string) (string, bool) { return "", false }, false)
	return cfg
}

// LoadConfig reads configuration from the environment. When envFile is
// non-empty it is loaded first with godotenv; a missing ".env" in the
// working directory is ignored.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}
	if err := applyEnv(cfg, os.LookupEnv, true); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.MinConns < 0 || c.MaxConns < 0 || (c.MaxConns > 0 && c.MinConns > c.MaxConns) {
		return fmt.Errorf("invalid pool bounds: min %d, max %d", c.MinConns, c.MaxConns)
	}
	switch c.ErrorFormat {
	case "", ErrorFormatMinimal, ErrorFormatPretty:
	default:
		return fmt.Errorf("invalid ERROR_FORMAT %q", c.ErrorFormat)
	}
	switch c.TxIsolation {
	case "", pgx.Serializable, pgx.RepeatableRead, pgx.ReadCommitted, pgx.ReadUncommitted:
	default:
		return fmt.Errorf("invalid TX_ISOLATION %q", c.TxIsolation)
	}
	if c.TxMaxWait < 0 || c.TxTimeout < 0 {
		return fmt.Errorf("transaction durations must not be negative")
	}
	if c.SettingsCacheTTL < 0 {
		return fmt.Errorf("invalid SETTINGS_CACHE_TTL %s", c.SettingsCacheTTL)
	}
	return nil
}

// OmittedColumns returns the globally omitted columns for a table.
func (c *Config) OmittedColumns(table string) []string {
	if c == nil {
		return nil
	}
	return c.Omit[table]
}

// applyEnv fills tagged fields from lookup, falling back to the default tag.
func applyEnv(cfg any, lookup func(string) (string, bool), enforceRequired bool) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("env")
		if key == "" {
			continue
		}
		raw, ok := lookup(key)
		if !ok || raw == "" {
			raw, ok = field.Tag.Lookup("default")
		}
		if !ok {
			if enforceRequired && field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", key)
			}
			continue
		}
		if err := setField(v.Field(i), raw); err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
	}
	return nil
}

func setField(f reflect.Value, raw string) error {
	switch f.Interface().(type) {
	case time.Duration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
		return nil
	case pgx.TxIsoLevel:
		f.SetString(strings.ToLower(strings.TrimSpace(raw)))
		return nil
	case map[string][]string:
		m, err := parseOmit(raw)
		if err != nil {
			return err
		}
		f.Set(reflect.ValueOf(m))
		return nil
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		f.SetBool(b)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, f.Type().Bits())
		if err != nil {
			return err
		}
		f.SetInt(n)
	default:
		return fmt.Errorf("unsupported field type %s", f.Type())
	}
	return nil
}

// parseOmit parses "table.column,table.column".
func parseOmit(raw string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		table, column, ok := strings.Cut(item, ".")
		if !ok || table == "" || column == "" {
			return nil, fmt.Errorf("invalid omit entry %q, want table.column", item)
		}
		out[table] = append(out[table], column)
	}
	return out, nil
}

// Package config loads and validates the connector configuration file.
// JSON is the native format of upstream orchestration; YAML is accepted for
// hand-written files.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pipewise/target-intacct/internal/intacct"
)

// requiredKeys must be present in every configuration.
var requiredKeys = []string{
	"company_id",
	"entity_id",
	"object_name",
	"sender_id",
	"sender_password",
	"user_id",
	"user_password",
}

// Config is the validated configuration for one run. Keys outside the fixed
// fields (the payment-record variant's id and accountno_N keys) stay
// available through Value.
type Config struct {
	APIURL         string
	CompanyID      string
	SenderID       string
	SenderPassword string
	UserID         string
	UserPassword   string
	EntityID       string
	UserAgent      string
	ObjectName     string
	BatchTitle     string
	RateLimitRPS   float64

	values map[string]string
}

// MissingConfigError reports required configuration keys that are absent.
type MissingConfigError struct {
	Missing []string
	Found   []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("config is missing required keys %v, found %v", e.Missing, e.Found)
}

// Load reads and validates the configuration file at path. Format is chosen
// by extension: .yaml/.yml parse as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Parse(b, "yaml")
	default:
		return Parse(b, "json")
	}
}

// Parse decodes and validates configuration bytes in the given format
// ("json" or "yaml").
func Parse(b []byte, format string) (*Config, error) {
	raw := make(map[string]any)
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse config JSON: %w", err)
		}
	}

	values := make(map[string]string, len(raw))
	for key, v := range raw {
		values[key] = scalarString(v)
	}

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(values[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingConfigError{Missing: missing, Found: sortedKeys(values)}
	}

	cfg := &Config{
		APIURL:         values["api_url"],
		CompanyID:      values["company_id"],
		SenderID:       values["sender_id"],
		SenderPassword: values["sender_password"],
		UserID:         values["user_id"],
		UserPassword:   values["user_password"],
		EntityID:       values["entity_id"],
		UserAgent:      values["user_agent"],
		ObjectName:     values["object_name"],
		BatchTitle:     values["batch_title"],
		values:         values,
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = intacct.DefaultAPIURL
	}
	if strings.TrimSpace(cfg.BatchTitle) == "" {
		cfg.BatchTitle = cfg.ObjectName
	}
	if v := strings.TrimSpace(values["rate_limit_rps"]); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate_limit_rps=%q: %w", v, err)
		}
		cfg.RateLimitRPS = rps
	}
	return cfg, nil
}

// Value returns the raw string form of any configured key.
func (c *Config) Value(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns every configured key name, sorted.
func (c *Config) Keys() []string {
	return sortedKeys(c.values)
}

// AccountNumbers returns the configured accountno_* keys and values, sorted
// by key.
func (c *Config) AccountNumbers() [][2]string {
	var keys []string
	for key := range c.values {
		if strings.HasPrefix(key, "accountno") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, [2]string{key, c.values[key]})
	}
	return out
}

// ClientConfig maps the configuration onto the gateway client config.
func (c *Config) ClientConfig() intacct.Config {
	return intacct.Config{
		APIURL:         c.APIURL,
		SenderID:       c.SenderID,
		SenderPassword: c.SenderPassword,
		CompanyID:      c.CompanyID,
		UserID:         c.UserID,
		UserPassword:   c.UserPassword,
		EntityID:       c.EntityID,
		UserAgent:      c.UserAgent,
		RateLimitRPS:   c.RateLimitRPS,
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

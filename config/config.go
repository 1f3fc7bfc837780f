// Package config loads the read-only tenant configuration snapshot that
// every session.Session reads once at init. Loading goes through
// spf13/viper for the JSON parse, after a hand-rolled environment
// substitution pass over the raw file bytes (viper's own env binding
// has no equivalent of the "${NAME-DEFAULT}" default-value syntax this
// format requires).
package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// ModifierCategory is one of the suppressible sort-index-modifier
// categories named in the config's OmitSortIndexModifiers map.
type ModifierCategory string

const (
	ModifierMissing  ModifierCategory = "missing"
	ModifierRelation ModifierCategory = "relation"
	ModifierCase     ModifierCategory = "case"
)

// Config is the read-only snapshot of one tenant's configuration. It is
// constructed once per session init and never mutated afterwards.
type Config struct {
	// BaseURL is the back-end's base URL.
	BaseURL string `mapstructure:"back_end_url" json:"back_end_url"`

	// QueryURL, if set, is a distinct URL used for the search endpoint
	// instead of BaseURL. Login always uses BaseURL.
	QueryURL string `mapstructure:"query_url" json:"query_url"`

	// Tenant is the X-Okapi-tenant header value.
	Tenant string `mapstructure:"tenant" json:"tenant"`

	// Username and Password are default credentials, used when a session
	// init does not carry its own.
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`

	// IndexMap maps a BIB-1 use-attribute value (as a decimal string) to a
	// CQL index expression. A mapped expression may be a comma-joined list
	// of index names, each optionally carrying one "/modifier=value" suffix.
	// A nil IndexMap means "no map configured": use attributes are taken as
	// raw index names instead of looked up.
	IndexMap map[string]string `mapstructure:"index_map" json:"index_map"`

	// QueryFilter, if non-blank, is and-joined to every translated query.
	QueryFilter string `mapstructure:"query_filter" json:"query_filter"`

	// ChunkSize is the number of records fetched per back-end search call.
	ChunkSize int `mapstructure:"chunk_size" json:"chunk_size"`

	// OmitSortIndexModifiers maps a CQL index name to the set of modifier
	// categories that may be suppressed for that index.
	OmitSortIndexModifiers map[string][]ModifierCategory `mapstructure:"omit_sort_index_modifiers" json:"omit_sort_index_modifiers"`
}

// DefaultChunkSize is used when a loaded config does not set chunk_size.
const DefaultChunkSize = 10

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)((?:-[^}]*)?)\}`)

// substituteEnv resolves every "${NAME}" and "${NAME-DEFAULT}" placeholder
// in raw against the process environment. A "${NAME}" with no default and
// no matching environment variable is a fatal configuration error.
func substituteEnv(raw []byte) ([]byte, error) {
	var firstErr error
	out := placeholderPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		sub := placeholderPattern.FindSubmatch(match)
		name := string(sub[1])
		defaultClause := string(sub[2])

		if val, ok := os.LookupEnv(name); ok {
			return []byte(val)
		}
		if defaultClause != "" {
			return []byte(strings.TrimPrefix(defaultClause, "-"))
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("unresolved environment variable %q with no default", name)
		}
		return match
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Load reads the JSON config file at path, applies environment
// substitution to every string value, and parses the result into a
// Config. ChunkSize defaults to DefaultChunkSize when absent or non-positive.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse applies environment substitution to raw JSON config bytes and
// unmarshals the result into a Config. Exported separately from Load so
// callers that already hold the bytes (e.g. tests, or config delivered
// out-of-band) don't need a filesystem round trip.
func Parse(raw []byte) (*Config, error) {
	substituted, err := substituteEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("substituting environment placeholders: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(substituted)); err != nil {
		return nil, fmt.Errorf("parsing config json: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	return &cfg, nil
}

// SearchBaseURL returns the URL the search operation should hit: QueryURL
// when configured, otherwise BaseURL.
func (c *Config) SearchBaseURL() string {
	if c.QueryURL != "" {
		return c.QueryURL
	}
	return c.BaseURL
}

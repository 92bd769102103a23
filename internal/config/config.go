// Package config holds the shape of config.json5: connection settings and
// the institution profiles every flow is parameterized by.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"lendingops/lib/configutil"
	"lendingops/lib/telemetry"
)

const DefaultFile = "config.json5"

type HttpConfig struct {
	TimeoutSeconds int `json:"timeout_seconds"`
	// VerifyTLS turns on certificate verification, the non-production
	// lending gateways serve self-signed certificates.
	VerifyTLS bool `json:"verify_tls"`
	// DumpDir, when set, receives one file per HTTP exchange.
	DumpDir string `json:"dump_dir"`
}

func (c HttpConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StateConfig points at the store of values that outlive one invocation.
// Url takes precedence over File and is opened with the libsql driver.
type StateConfig struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

type WikiConfig struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	ApiToken string `json:"api_token"`
	SpaceKey string `json:"space_key"`
	// Env selects the table row, ex. "sit" matches a row mentioning SIT.
	Env       string `json:"env"`
	PageId    string `json:"page_id"`
	PageTitle string `json:"page_title"`
}

type ErrorLogConfig struct {
	File       string `json:"file"`
	ArchiveDir string `json:"archive_dir"`
	// ArchiveOnError archives and clears the log every time a command
	// fails, leaving one archive file per failure.
	ArchiveOnError bool `json:"archive_on_error"`
}

type Config struct {
	Http         HttpConfig              `json:"http"`
	Telemetry    telemetry.Config        `json:"telemetry"`
	State        StateConfig             `json:"state"`
	Wiki         WikiConfig              `json:"wiki"`
	ErrorLog     ErrorLogConfig          `json:"error_log"`
	Institutions map[string]*Institution `json:"institutions"`
}

// Read loads `name` merged with its .local override.
func Read(name string) (Config, []string, error) {
	if name == "" {
		name = DefaultFile
	}
	cfg, sources, err := configutil.ReadConfig[Config](name)
	if err != nil {
		return Config{}, nil, err
	}
	for key, inst := range cfg.Institutions {
		if inst == nil {
			continue
		}
		inst.Name = key
	}
	return cfg, sources, nil
}

// Institution returns the profile named `name` (case insensitive).
func (c Config) Institution(name string) (*Institution, error) {
	inst, ok := c.Institutions[strings.ToLower(name)]
	if !ok || inst == nil {
		return nil, &ConfigError{
			Key:    fmt.Sprintf("institutions.%s", strings.ToLower(name)),
			Reason: fmt.Sprintf("not configured (known: %s)", strings.Join(c.InstitutionNames(), ", ")),
		}
	}
	return inst, nil
}

func (c Config) InstitutionNames() []string {
	names := make([]string, 0, len(c.Institutions))
	for name := range c.Institutions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigError is a missing or invalid configuration value, it is always
// fatal to the flow that hit it.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

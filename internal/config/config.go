// Package config loads corvid's runtime configuration: flag defaults
// overridden by environment variables, following
// cmd/smd-init/smd-init.go's parseCmdLine pattern exactly (flag default,
// then an os.Getenv override table).
package config

import (
	"flag"
	"fmt"
	"os"
	"regexp"
)

// Config is the resolved set of knobs every corvid subcommand needs.
type Config struct {
	ModulesRoot    string
	DataDir        string
	DBName         string
	ScriptExt      string
	DNSServer      string
	GeoIPDBPath    string
	HTTPMaxRetries int
}

// dbNamePattern restricts DBName to a safe identifier since it is
// interpolated into a filesystem path (<data_dir>/<db_name>.db), not
// passed as a bind parameter.
var dbNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ConfigError reports a bad or missing configuration value.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Parse registers corvid's flags against fs, parses args, and applies
// the CORVID_* environment variable overrides for any flag left at its
// default.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	var c Config

	fs.StringVar(&c.ModulesRoot, "modules-root", "", "Directory modules are loaded from")
	fs.StringVar(&c.DataDir, "data-dir", "", "Directory the asset database lives in")
	fs.StringVar(&c.DBName, "db-name", "", "Asset database file name, without extension")
	fs.StringVar(&c.ScriptExt, "script-ext", "", "Module script file extension (module discovery always scans for .lua)")
	fs.StringVar(&c.DNSServer, "dns-server", "", "Upstream DNS server for the dns binding (host:port)")
	fs.StringVar(&c.GeoIPDBPath, "geoip-db", "", "Path to a MaxMind GeoLite2-City database")
	fs.IntVar(&c.HTTPMaxRetries, "http-max-retries", 0, "Retry ceiling for the http binding")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	applyStringEnv(&c.ModulesRoot, "CORVID_MODULES_ROOT")
	applyStringEnv(&c.DataDir, "CORVID_DATA_DIR")
	applyStringEnv(&c.DBName, "CORVID_DB_NAME")
	applyStringEnv(&c.ScriptExt, "CORVID_SCRIPT_EXT")
	applyStringEnv(&c.DNSServer, "CORVID_DNS_SERVER")
	applyStringEnv(&c.GeoIPDBPath, "CORVID_GEOIP_DB")
	if c.HTTPMaxRetries == 0 {
		if val := os.Getenv("CORVID_HTTP_MAX_RETRIES"); val != "" {
			if _, err := fmt.Sscanf(val, "%d", &c.HTTPMaxRetries); err != nil {
				return Config{}, &ConfigError{Field: "http-max-retries", Msg: fmt.Sprintf("bad integer %q", val)}
			}
		}
	}

	if c.ModulesRoot == "" {
		c.ModulesRoot = "./modules"
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.DBName == "" {
		c.DBName = "corvid"
	}
	if c.ScriptExt == "" {
		c.ScriptExt = ".lua"
	}
	if c.DNSServer == "" {
		c.DNSServer = "1.1.1.1:53"
	}
	if c.HTTPMaxRetries == 0 {
		c.HTTPMaxRetries = 3
	}

	if err := ValidateDBName(c.DBName); err != nil {
		return Config{}, err
	}

	return c, nil
}

func applyStringEnv(dst *string, envvar string) {
	if *dst == "" {
		if val := os.Getenv(envvar); val != "" {
			*dst = val
		}
	}
}

// ValidateDBName rejects database names that aren't safe path
// components, since DBName is interpolated directly into a filesystem
// path rather than bound as a query parameter.
func ValidateDBName(name string) error {
	if !dbNamePattern.MatchString(name) {
		return &ConfigError{Field: "db-name", Msg: fmt.Sprintf("must match %s, got %q", dbNamePattern.String(), name)}
	}
	return nil
}

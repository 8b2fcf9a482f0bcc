package config

import (
	"flag"
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"CORVID_MODULES_ROOT", "CORVID_DATA_DIR", "CORVID_DB_NAME",
		"CORVID_SCRIPT_EXT", "CORVID_DNS_SERVER", "CORVID_GEOIP_DB",
		"CORVID_HTTP_MAX_RETRIES",
	} {
		old, had := os.LookupEnv(v)
		os.Unsetenv(v)
		t.Cleanup(func() {
			if had {
				os.Setenv(v, old)
			}
		})
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	clearEnv(t)
	fs := flag.NewFlagSet("test", flag.ContinueOnError)

	c, err := Parse(fs, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.DBName != "corvid" || c.ScriptExt != ".lua" || c.HTTPMaxRetries != 3 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestParseEnvOverridesDefault(t *testing.T) {
	clearEnv(t)
	os.Setenv("CORVID_DB_NAME", "scratch")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)

	c, err := Parse(fs, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.DBName != "scratch" {
		t.Fatalf("want env override \"scratch\", got %q", c.DBName)
	}
}

func TestParseFlagWinsOverEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("CORVID_DB_NAME", "fromenv")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)

	c, err := Parse(fs, []string{"-db-name", "fromflag"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.DBName != "fromflag" {
		t.Fatalf("want flag to win, got %q", c.DBName)
	}
}

func TestValidateDBNameRejectsPathSeparators(t *testing.T) {
	clearEnv(t)
	fs := flag.NewFlagSet("test", flag.ContinueOnError)

	_, err := Parse(fs, []string{"-db-name", "../escape"})
	if err == nil {
		t.Fatal("expected rejection of a db name containing path separators")
	}
}

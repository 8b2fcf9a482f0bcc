// Command corvid is the CLI entrypoint: it loads configuration, opens
// the Asset Store, scans the Module Registry, and dispatches to one of
// the run/sandbox/mod/db subcommands. Structured the way
// cmd/smd-init/smd-init.go lays out a single-binary CLI: a bootstrap
// *log.Logger for use before configuration is parsed, then a
// *logrus.Logger threaded through everything else once it is.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/corvidrecon/corvid/internal/config"
	"github.com/corvidrecon/corvid/internal/geoip"
	"github.com/corvidrecon/corvid/internal/netutil"
	"github.com/corvidrecon/corvid/internal/orchestrator"
	"github.com/corvidrecon/corvid/internal/registry"
	"github.com/corvidrecon/corvid/internal/store"
	"github.com/corvidrecon/corvid/internal/term"
)

// bootLog is used only before the logrus logger is constructed -
// argument parsing failures, mostly - matching smd-init.go's package
// level `lg` bootstrap logger.
var bootLog = log.New(os.Stderr, "", log.Lshortfile|log.LstdFlags)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "sandbox":
		if err := runSandbox(os.Args[2:]); err != nil {
			bootLog.Fatal(err)
		}
	case "run":
		if err := runModule(os.Args[2:]); err != nil {
			bootLog.Fatal(err)
		}
	case "mod":
		if err := runMod(os.Args[2:]); err != nil {
			bootLog.Fatal(err)
		}
	case "db":
		if err := runDB(os.Args[2:]); err != nil {
			bootLog.Fatal(err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: corvid <run|sandbox|mod|db> ...")
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	formatter := new(logrus.TextFormatter)
	formatter.FullTimestamp = true
	logger.SetFormatter(formatter)
	return logger
}

// bootstrap parses the shared Config flags/env and opens the Store and
// Registry for the run and db subcommands.
func bootstrap(args []string, logger *logrus.Logger) (config.Config, store.Store, *registry.Registry, error) {
	fs := flag.NewFlagSet("corvid", flag.ContinueOnError)
	cfg, err := config.Parse(fs, args)
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	dbPath := cfg.DataDir + string(os.PathSeparator) + cfg.DBName + ".db"
	s, err := store.Open(context.Background(), dbPath, logger)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("opening store: %w", err)
	}

	reg, err := registry.New(cfg.ModulesRoot)
	if err != nil {
		s.Close()
		return config.Config{}, nil, nil, fmt.Errorf("loading modules: %w", err)
	}

	return cfg, s, reg, nil
}

// parseRunArgs splits "corvid run <author/name> [arg-json] [config flags...]"
// into the module reference, its JSON argument (defaulting to "{}" when
// omitted), and whatever's left over for bootstrap's flag set. The
// arg-json positional is optional, so the slice handed to bootstrap must
// be sized off how much was actually consumed here, not a fixed offset.
func parseRunArgs(args []string) (reference string, argJSON []byte, rest []string, err error) {
	if len(args) < 1 {
		return "", nil, nil, fmt.Errorf("usage: corvid run <author/name> [arg-json]")
	}
	reference = args[0]
	rest = args[1:]
	if len(rest) > 0 {
		argJSON = []byte(rest[0])
		rest = rest[1:]
	} else {
		argJSON = []byte("{}")
	}
	return reference, argJSON, rest, nil
}

func runModule(args []string) error {
	reference, argJSON, rest, err := parseRunArgs(args)
	if err != nil {
		return err
	}

	logger := newLogger()
	_, s, reg, err := bootstrap(rest, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	mod, err := reg.Get(reference)
	if err != nil {
		return err
	}

	orch := orchestrator.New(s, logger)
	ui := term.NewPrinter(os.Stdout)
	return orch.RunWithUI(context.Background(), mod, argJSON, ui)
}

func runMod(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: corvid mod <list|reload>")
	}

	logger := newLogger()
	fs := flag.NewFlagSet("corvid-mod", flag.ContinueOnError)
	cfg, err := config.Parse(fs, args[1:])
	if err != nil {
		return err
	}

	reg, err := registry.New(cfg.ModulesRoot)
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		for _, mod := range reg.List() {
			fmt.Printf("%s\t%s\n", mod.Canonical(), mod.Description)
		}
	case "reload":
		if err := reg.Reload(); err != nil {
			return err
		}
		logger.Info("registry reloaded")
	default:
		return fmt.Errorf("usage: corvid mod <list|reload>")
	}
	return nil
}

// geoipAndNet builds the Script Runtime's external collaborators from
// config. The geoip resolver is left nil when no database is configured
// or it fails to open, so geoip_lookup reports a clear error instead of
// the runtime refusing to start; the DNS resolver and HTTP client are
// always built, from config defaults when unset.
func geoipAndNet(cfg config.Config) (*geoip.Resolver, *netutil.Resolver, *netutil.Client) {
	var resolver *geoip.Resolver
	if cfg.GeoIPDBPath != "" {
		if r, err := geoip.Open(cfg.GeoIPDBPath); err == nil {
			resolver = r
		}
	}
	dns := netutil.NewResolver(cfg.DNSServer)
	httpClient := netutil.NewClient(cfg.HTTPMaxRetries)
	return resolver, dns, httpClient
}

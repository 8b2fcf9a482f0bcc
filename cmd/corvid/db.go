package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/corvidrecon/corvid/internal/store"
)

// runDB implements the Asset Store's list/filter surface from the
// command line: `corvid db <domains|subdomains|ipaddrs|links> [where ...]`.
func runDB(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: corvid db <domains|subdomains|ipaddrs|links> [where <filter terms>...]")
	}
	entity := args[0]
	filterArgs := args[1:]

	logger := newLogger()
	_, s, reg, err := bootstrap(nil, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	_ = reg // the db subcommand doesn't touch the registry, but bootstrap always opens it

	f, err := store.ParseFilter(filterArgs)
	if err != nil {
		return err
	}

	ctx := context.Background()
	enc := json.NewEncoder(os.Stdout)

	switch entity {
	case "domains":
		rows, err := s.FilterDomains(ctx, f)
		if err != nil {
			return err
		}
		return enc.Encode(rows)
	case "subdomains":
		rows, err := s.FilterSubdomains(ctx, f, store.FieldAll)
		if err != nil {
			return err
		}
		return enc.Encode(rows)
	case "ipaddrs":
		rows, err := s.FilterIpAddrs(ctx, f, store.FieldAll)
		if err != nil {
			return err
		}
		return enc.Encode(rows)
	case "links":
		rows, err := s.FilterLinks(ctx, f)
		if err != nil {
			return err
		}
		return enc.Encode(rows)
	default:
		return fmt.Errorf("unknown entity %q, want one of domains|subdomains|ipaddrs|links", entity)
	}
}

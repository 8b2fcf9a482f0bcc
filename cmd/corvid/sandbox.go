package main

import (
	"flag"
	"os"

	"github.com/corvidrecon/corvid/internal/config"
	"github.com/corvidrecon/corvid/internal/isolation"
	"github.com/corvidrecon/corvid/internal/script"
)

// runSandbox is the child-process entry point: re-exec'd by
// isolation.Setup as "corvid sandbox <author/name>". The module body
// itself travels over the wire in the Start frame (internal/isolation's
// StartCommand), so the reference argument here is informational only -
// useful for `ps` output and panic messages, not for re-loading the
// module from disk.
func runSandbox(args []string) error {
	fs := flag.NewFlagSet("corvid-sandbox", flag.ContinueOnError)
	cfg, err := config.Parse(fs, nil)
	if err != nil {
		return err
	}

	resolver, dns, httpClient := geoipAndNet(cfg)
	if resolver != nil {
		defer resolver.Close()
	}

	runner := script.New(resolver, dns, httpClient)
	return isolation.RunChild(os.Stdin, os.Stdout, runner)
}

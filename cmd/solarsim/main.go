package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/solarsim/solarsim/internal/app"
	"github.com/solarsim/solarsim/internal/log"
	"github.com/solarsim/solarsim/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source (YAML file or SQLite database)")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' or 'sqlite'")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("solarsim %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfgPath, err := filepath.Abs(*cfgFile)
	if err != nil {
		log.Fatalf("invalid config path %s: %v", *cfgFile, err)
	}

	provider, err := config.NewProvider(*cfgBackend, cfgPath)
	if err != nil {
		log.Fatalf("failed to create config provider: %v", err)
	}

	a := app.New(provider, log.GetSugaredLogger())
	if err := a.Run(context.Background()); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

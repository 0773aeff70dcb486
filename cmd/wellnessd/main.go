package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/yishaik/winter-wellness-bot/internal/app"
	"github.com/yishaik/winter-wellness-bot/internal/log"
	"github.com/yishaik/winter-wellness-bot/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", ".env", "Path to configuration source:\n\t\t\t  env: .env file plus process environment\n\t\t\t  YAML: wellness.yaml")
	cfgBackend := flag.String("config-backend", "env", "Configuration backend type: 'env' for dotenv files, 'yaml' for YAML files")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("wellnessd %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	provider, err := newProvider(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	// Create and run the application
	application := app.New(provider, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}

func newProvider(cfgFile, cfgBackend string) (config.ConfigProvider, error) {
	filename, _ := filepath.Abs(cfgFile)

	switch cfgBackend {
	case "env":
		return config.NewEnvProvider(filename), nil
	case "yaml":
		return config.NewYAMLProvider(filename), nil
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'env' or 'yaml'", cfgBackend)
	}
}

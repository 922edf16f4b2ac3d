package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"purepresenter/internal/app"
	"purepresenter/internal/config"
	"purepresenter/internal/infrastructure"
)

const usage = `Usage: licensectl [flags] <command>

Commands:
  status                 print the current license verdict
  activate KEY [LABEL]   verify and store a license key
  show                   print the stored activation record
  delete                 remove the stored license file
`

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		fmt.Fprintln(flag.CommandLine.Output(), "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configFile == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFrom(*configFile)
	}
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// stdout carries the JSON result only
	cfg.Logging.Output = "file"
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		logger = infrastructure.NewJSONLogger(os.Stderr, "warn")
	}

	core, err := app.NewCore(cfg.License, logger)
	if err != nil {
		logger.Error("Failed to initialize license core", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	c := &ctl{core: core, out: os.Stdout}
	code, err := c.run(context.Background(), flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if code == 2 {
			flag.Usage()
		}
	}
	_ = infrastructure.CloseLogFile()
	os.Exit(code)
}

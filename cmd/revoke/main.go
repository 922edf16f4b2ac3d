package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"purepresenter/internal/config"
	"purepresenter/internal/infrastructure"
	"purepresenter/internal/license"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	file := flag.String("file", "", "revocation list to edit (defaults to the configured revocation file)")
	copyTo := flag.String("copy", "", "distribution copy (defaults to app/"+config.RevocationFileName+" next to -file, \"none\" disables)")
	reason := flag.String("reason", "", "reason recorded with a revocation")
	xlsxOut := flag.String("xlsx", "", "with export: also write an Excel report")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		fmt.Fprintln(flag.CommandLine.Output(), "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cfg.Logging.Output = "file"
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		logger = infrastructure.NewJSONLogger(os.Stderr, "warn")
	}
	defer infrastructure.CloseLogFile()

	if *file == "" {
		*file = cfg.License.RevocationFile
	}

	t := &tool{
		list:   license.NewRevocationList(*file, logger),
		copies: distributionCopies(*file, *copyTo),
		out:    os.Stdout,
		now:    time.Now,
	}

	if err := t.run(context.Background(), flag.Args(), *reason, *xlsxOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if flag.NArg() == 0 {
			flag.Usage()
		}
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// distributionCopies resolves the -copy flag against the list path
func distributionCopies(file, copyTo string) []string {
	switch copyTo {
	case "none":
		return nil
	case "":
		return []string{filepath.Join(filepath.Dir(file), "app", config.RevocationFileName)}
	default:
		return []string{copyTo}
	}
}

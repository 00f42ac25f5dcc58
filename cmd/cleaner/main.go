package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/aluiziolira/go-books-api/cleaner"
	"github.com/aluiziolira/go-books-api/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	bronzeDir := flag.String("bronze-dir", cfg.Data.BronzeDir, "Bronze input directory")
	silverDir := flag.String("silver-dir", cfg.Data.SilverDir, "Silver output directory")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	level := &slog.LevelVar{}
	if *verbose {
		level.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	job := cleaner.NewJob(*bronzeDir, *silverDir)
	summary, err := job.Run()
	if err != nil {
		slog.Error("cleaning failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("silver written",
		slog.String("input", summary.InputPath),
		slog.Int("input_rows", summary.InputRows),
		slog.Int("output_rows", summary.OutputRows),
		slog.String("csv", summary.CSVPath),
	)
	if summary.ParquetErr != nil {
		slog.Warn("parquet output failed, csv only",
			slog.String("path", summary.ParquetPath),
			slog.Any("error", summary.ParquetErr),
		)
	} else {
		slog.Info("parquet written", slog.String("path", summary.ParquetPath))
	}
}

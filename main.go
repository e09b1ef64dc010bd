package main

import (
	"flag"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"attractions-scraper/api"
	"attractions-scraper/config"
	"attractions-scraper/jobs"
	"attractions-scraper/scraper/chrome"
	"attractions-scraper/services"
	"attractions-scraper/storage"
)

func main() {
	var (
		inputPath  = flag.String("input", "", "input file (.csv, .txt or .json)")
		outputName = flag.String("output", "", "output name (defaults to a timestamped run id)")
		mode       = flag.String("mode", "", "job mode: url_batch, search_first or search_all")
		serve      = flag.Bool("serve", false, "run the HTTP API instead of a one-shot job")
	)
	flag.Parse()

	log := newLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	var sink storage.RecordWriter
	if cfg.Postgres.Enabled {
		pw, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			log.Fatal("postgres unavailable", zap.Error(err))
		}
		defer pw.Close()
		sink = pw
		log.Info("postgres sink enabled", zap.String("db", cfg.Postgres.DB))
	}

	sessions := func() (jobs.DriverSession, error) {
		return chrome.NewSession(cfg, log)
	}
	manager := jobs.NewManager(cfg, sessions, sink, log)

	if *serve {
		server := &api.Server{Jobs: manager, Log: log}
		log.Info("api listening", zap.String("addr", cfg.APIAddr))
		if err := server.Router().Run(cfg.APIAddr); err != nil {
			log.Fatal("api server stopped", zap.Error(err))
		}
		return
	}

	if *inputPath == "" {
		log.Fatal("either -input or -serve is required")
	}

	path := *inputPath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if alt := filepath.Join(cfg.Output.InputDir, path); fileExists(alt) {
			path = alt
		}
	}

	set, err := services.NewInputProcessor(log).Load(path)
	if err != nil {
		log.Fatal("could not load input", zap.Error(err))
	}

	jobID, err := manager.SubmitInput(set, jobs.Mode(*mode), *outputName)
	if err != nil {
		log.Fatal("could not submit job", zap.Error(err))
	}
	manager.Wait()

	p, err := manager.Progress(jobID)
	if err != nil {
		log.Fatal("job vanished", zap.Error(err))
	}
	if p.Status != jobs.StatusCompleted {
		log.Error("job did not complete",
			zap.String("status", string(p.Status)),
			zap.String("error", p.Error))
		os.Exit(1)
	}
	log.Info("job completed",
		zap.String("job_id", jobID),
		zap.String("output", p.OutputName),
		zap.Int("records", p.Succeeded),
		zap.Int("failed", p.Failed))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func newLogger() *zap.Logger {
	if os.Getenv("APP_ENV") == "production" {
		log, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return log
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return log
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/lib/pq"

	"github.com/mohafarman/filmlibrary/internal/data"
	"github.com/mohafarman/filmlibrary/internal/jsonlog"
	"github.com/mohafarman/filmlibrary/internal/mailer"
	"github.com/mohafarman/filmlibrary/internal/metrics"
	"github.com/mohafarman/filmlibrary/internal/vcs"
)

var version = vcs.Version()

// digestMailer is the part of mailer.Mailer the handlers use.
type digestMailer interface {
	Send(recipient, templateFile string, data any) error
	State() string
}

type application struct {
	config config
	logger *jsonlog.Logger
	models data.Models
	// mailer is nil when no digest recipient is configured.
	mailer     digestMailer
	retryDelay time.Duration
	wg         sync.WaitGroup
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		jsonlog.New(os.Stdout, jsonlog.LevelInfo).Fatal(err, nil)
	}

	logger := jsonlog.New(os.Stdout, jsonlog.ParseLevel(cfg.Log.Level))

	db, err := openDB(cfg)
	if err != nil {
		logger.Fatal(err, map[string]string{"driver": cfg.DB.Driver})
	}
	defer db.Close()

	logger.Info("database connection pool established", map[string]string{"driver": cfg.DB.Driver})

	if err := metrics.RegisterDB(db); err != nil {
		logger.Fatal(err, nil)
	}

	app := &application{
		config:     cfg,
		logger:     logger,
		models:     data.NewModels(db, cfg.DB.Timeout),
		retryDelay: 500 * time.Millisecond,
	}

	if cfg.Digest.Recipient != "" {
		app.mailer = mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)
	}

	err = app.serve()
	if err != nil {
		logger.Fatal(err, nil)
	}
}

// openDB opens the pool for the configured driver, checks it answers and
// makes sure the films table exists.
func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.DB.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	err = data.EnsureSchema(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

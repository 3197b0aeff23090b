package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "FILMS_"
	configPathEnv = envPrefix + "CONFIG"
)

type config struct {
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Env     string        `koanf:"env" validate:"oneof=development staging production"`
	DB      dbConfig      `koanf:"db"`
	Limiter limiterConfig `koanf:"limiter"`
	SMTP    smtpConfig    `koanf:"smtp"`
	Digest  digestConfig  `koanf:"digest"`
	CORS    corsConfig    `koanf:"cors"`
	Log     logConfig     `koanf:"log"`
}

type dbConfig struct {
	Driver       string        `koanf:"driver" validate:"oneof=postgres duckdb"`
	DSN          string        `koanf:"dsn" validate:"required_if=Driver postgres"`
	MaxOpenConns int           `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns int           `koanf:"max_idle_conns" validate:"min=0,ltefield=MaxOpenConns"`
	MaxIdleTime  time.Duration `koanf:"max_idle_time" validate:"gt=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
}

type limiterConfig struct {
	RPS     float64 `koanf:"rps" validate:"gt=0"`
	Burst   int     `koanf:"burst" validate:"min=1"`
	Enabled bool    `koanf:"enabled"`
}

type smtpConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"min=1,max=65535"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Sender   string `koanf:"sender"`
}

type digestConfig struct {
	Recipient string `koanf:"recipient" validate:"omitempty,email"`
}

type corsConfig struct {
	TrustedOrigins []string `koanf:"trusted_origins" validate:"dive,http_url"`
}

type logConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn warning error fatal off"`
}

func defaultConfig() config {
	return config{
		Port: 4000,
		Env:  "development",
		DB: dbConfig{
			Driver:       "postgres",
			MaxOpenConns: 25,
			MaxIdleConns: 25,
			MaxIdleTime:  15 * time.Minute,
			Timeout:      3 * time.Second,
		},
		Limiter: limiterConfig{
			RPS:     2,
			Burst:   4,
			Enabled: true,
		},
		SMTP: smtpConfig{
			Host:   "localhost",
			Port:   25,
			Sender: "Film Library <no-reply@films.local>",
		},
		Log: logConfig{Level: "info"},
	}
}

// flagKeys maps each command-line flag to the config key it overrides.
var flagKeys = map[string]string{
	"port":                 "port",
	"env":                  "env",
	"db-driver":            "db.driver",
	"db-dsn":               "db.dsn",
	"db-max-open-conns":    "db.max_open_conns",
	"db-max-idle-conns":    "db.max_idle_conns",
	"db-max-idle-time":     "db.max_idle_time",
	"db-timeout":           "db.timeout",
	"limiter-rps":          "limiter.rps",
	"limiter-burst":        "limiter.burst",
	"limiter-enabled":      "limiter.enabled",
	"smtp-host":            "smtp.host",
	"smtp-port":            "smtp.port",
	"smtp-username":        "smtp.username",
	"smtp-password":        "smtp.password",
	"smtp-sender":          "smtp.sender",
	"digest-recipient":     "digest.recipient",
	"cors-trusted-origins": "cors.trusted_origins",
	"log-level":            "log.level",
}

// envKey turns FILMS_DB_MAX_OPEN_CONNS into db.max_open_conns. Only known
// keys are accepted; anything else under the prefix is ignored.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	for _, k := range flagKeys {
		if strings.ReplaceAll(k, ".", "_") == key {
			return k
		}
	}
	return ""
}

type options struct {
	configPath  string
	showVersion bool
	overrides   map[string]string
}

func parseFlags(args []string, output io.Writer) (options, error) {
	opts := options{overrides: make(map[string]string)}
	defaults := defaultConfig()

	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.configPath, "config", os.Getenv(configPathEnv), "Path to a YAML config file")
	fs.BoolVar(&opts.showVersion, "version", false, "Display version and exit")

	fs.Int("port", defaults.Port, "API server port")
	fs.String("env", defaults.Env, "Environment (development|staging|production)")

	fs.String("db-driver", defaults.DB.Driver, "Database driver (postgres|duckdb)")
	fs.String("db-dsn", "", "Database DSN (empty DuckDB DSN means in-memory)")
	fs.Int("db-max-open-conns", defaults.DB.MaxOpenConns, "Database max open connections")
	fs.Int("db-max-idle-conns", defaults.DB.MaxIdleConns, "Database max idle connections")
	fs.Duration("db-max-idle-time", defaults.DB.MaxIdleTime, "Database max connection idle time")
	fs.Duration("db-timeout", defaults.DB.Timeout, "Timeout for a single storage call")

	fs.Float64("limiter-rps", defaults.Limiter.RPS, "Rate limiter maximum requests per second")
	fs.Int("limiter-burst", defaults.Limiter.Burst, "Rate limiter maximum burst")
	fs.Bool("limiter-enabled", defaults.Limiter.Enabled, "Enable rate limiter")

	fs.String("smtp-host", defaults.SMTP.Host, "SMTP host")
	fs.Int("smtp-port", defaults.SMTP.Port, "SMTP port")
	fs.String("smtp-username", "", "SMTP username")
	fs.String("smtp-password", "", "SMTP password")
	fs.String("smtp-sender", defaults.SMTP.Sender, "SMTP sender")
	fs.String("digest-recipient", "", "Address that receives film digests")

	fs.String("cors-trusted-origins", "", "Trusted CORS origins (space separated)")
	fs.String("log-level", defaults.Log.Level, "Minimum log level (debug|info|warn|error|fatal|off)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	// Only flags given on the command line override the other layers.
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			opts.overrides[key] = f.Value.String()
		}
	})

	return opts, nil
}

// loadConfig layers defaults, the optional YAML file, FILMS_* environment
// variables and finally explicit flags, then validates the result.
func loadConfig(opts options) (config, error) {
	var cfg config

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}

	if opts.configPath != "" {
		if err := k.Load(file.Provider(opts.configPath), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", opts.configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return cfg, fmt.Errorf("load environment: %w", err)
	}

	for key, value := range opts.overrides {
		if err := k.Set(key, value); err != nil {
			return cfg, fmt.Errorf("apply flag %s: %w", key, err)
		}
	}

	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToFieldsHook,
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// stringToFieldsHook splits a string destined for a []string on commas and
// whitespace, so "a b" and "a,b" both work for list keys.
func stringToFieldsHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
		return data, nil
	}

	return strings.FieldsFunc(data.(string), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}), nil
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func validateConfig(cfg config) error {
	err := configValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}

	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

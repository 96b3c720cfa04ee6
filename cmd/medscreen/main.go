package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/medscreen/medscreen/internal/api"
	"github.com/medscreen/medscreen/internal/eligibility"
	"github.com/medscreen/medscreen/internal/genai"
	"github.com/medscreen/medscreen/internal/notify"
	"github.com/medscreen/medscreen/internal/store"
	"github.com/medscreen/medscreen/internal/study"
	"github.com/medscreen/medscreen/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for screening service state.
	DefaultStateDir = "/var/lib/medscreen"
	// DefaultDBFileName is the default SQLite database filename.
	DefaultDBFileName = "medscreen.db"
	// DefaultCatalogPath is the default study catalog file.
	DefaultCatalogPath = "studies.json"
	// DefaultAPIAddr is the default HTTP listen address.
	DefaultAPIAddr = ":8000"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	catalog, err := study.LoadCatalog(*flags.catalogPath)
	if err != nil {
		slog.Error("Failed to load study catalog", "error", err, "path", *flags.catalogPath)
		os.Exit(1)
	}

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		slog.Error("Failed to create GenAI client", "error", err)
		os.Exit(1)
	}

	evaluator := eligibility.NewEvaluator(eligibility.NewLLMJudge(client))

	apiOpts := []api.Option{api.WithAddr(*flags.apiAddr)}
	if config.NotifyEnabled {
		notifier, err := notify.NewTwilioNotifier()
		if err != nil {
			slog.Error("Failed to create staff notifier", "error", err)
			os.Exit(1)
		}
		apiOpts = append(apiOpts, api.WithNotifier(notifier))
	}

	slog.Info("Bootstrapping medscreen",
		"catalog", *flags.catalogPath, "api_addr", *flags.apiAddr,
		"db_driver", *flags.dbDriver, "notify", config.NotifyEnabled)
	server := api.NewServer(catalog, client, st, evaluator, apiOpts...)
	if err := server.Run(); err != nil {
		slog.Error("medscreen failed to run", "error", err)
		os.Exit(1)
	}
}

// Config holds environment configuration.
type Config struct {
	DbDriver      string
	DatabaseURL   string
	StateDir      string
	CatalogPath   string
	OpenAIKey     string
	APIAddr       string
	NotifyEnabled bool
}

// Flags holds command line flag values.
type Flags struct {
	stateDir    *string
	dbDriver    *string
	dbDSN       *string
	catalogPath *string
	openaiKey   *string
	apiAddr     *string
}

// initializeLogger sets up structured logging with debug level.
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and
// the .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DbDriver:      os.Getenv("MEDSCREEN_DB_DRIVER"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("MEDSCREEN_STATE_DIR"),
		CatalogPath:   os.Getenv("MEDSCREEN_CATALOG"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		APIAddr:       os.Getenv("API_ADDR"),
		NotifyEnabled: util.ParseBoolEnv("STAFF_NOTIFICATIONS_ENABLED", false),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	if config.CatalogPath == "" {
		config.CatalogPath = DefaultCatalogPath
	}
	if config.APIAddr == "" {
		config.APIAddr = DefaultAPIAddr
	}

	slog.Debug("environment variables loaded",
		"MEDSCREEN_DB_DRIVER", config.DbDriver,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"MEDSCREEN_STATE_DIR", config.StateDir,
		"MEDSCREEN_CATALOG", config.CatalogPath,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"STAFF_NOTIFICATIONS_ENABLED", config.NotifyEnabled)

	return config
}

// parseCommandLineFlags parses command line arguments with environment
// defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "Directory for service state (SQLite database)"),
		dbDriver:    flag.String("db-driver", config.DbDriver, "Database driver: sqlite3, postgres, or memory"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "Database DSN (SQLite file path or Postgres URL)"),
		catalogPath: flag.String("catalog", config.CatalogPath, "Path to the study catalog JSON file"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key"),
		apiAddr:     flag.String("addr", config.APIAddr, "HTTP listen address"),
	}
	flag.Parse()
	return flags
}

// openStore selects the store backend from the driver flag, inferring it
// from the DSN shape when unset.
func openStore(flags Flags) (store.Store, error) {
	driver := *flags.dbDriver
	dsn := *flags.dbDSN

	if driver == "" {
		switch {
		case dsn == "":
			driver = "sqlite3"
		case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
			driver = "postgres"
		default:
			driver = "sqlite3"
		}
	}

	switch driver {
	case "memory":
		return store.NewInMemoryStore(), nil
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(dsn))
	default:
		if dsn == "" {
			dsn = filepath.Join(*flags.stateDir, DefaultDBFileName)
			slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", dsn)
		}
		return store.NewSQLiteStore(store.WithDSN(dsn))
	}
}

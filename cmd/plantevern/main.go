package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/plantevern/internal/application"
	"github.com/eugenenazirov/plantevern/internal/calculator"
	"github.com/eugenenazirov/plantevern/internal/config"
	"github.com/eugenenazirov/plantevern/internal/export"
	"github.com/eugenenazirov/plantevern/internal/logging"
	"github.com/eugenenazirov/plantevern/internal/report"
	"github.com/eugenenazirov/plantevern/internal/units"
)

var signalNotify = signal.Notify

// errReportNeedsStorage is returned by report when the plan would come from
// a fresh in-memory store.
var errReportNeedsStorage = errors.New("report reads the stored plan; run it with --storage=sqlite")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "plantevern: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	app *kingpin.Application

	configFile     *string
	envFile        *string
	port           *string
	rateLimitRPS   *float64
	rateLimitBurst *int
	logLevel       *string
	storageDriver  *string
	databasePath   *string
	productsURL    *string

	report       *kingpin.CmdClause
	reportFormat *string
	reportOut    *string

	pack         *kingpin.CmdClause
	packQuantity *float64
	packUnit     *string
}

func newCLI(out io.Writer) *cli {
	app := kingpin.New("plantevern", "Crop-protection purchase planner - totals product needs per plot and plans containers to buy")
	app.UsageWriter(out)
	app.ErrorWriter(out)

	c := &cli{app: app}
	c.configFile = app.Flag("config", "Path to YAML configuration file").String()
	c.envFile = app.Flag("env-file", "Path to a .env file (default .env when present)").String()
	c.port = app.Flag("port", "HTTP port exposed by the service").String()
	c.rateLimitRPS = app.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	c.rateLimitBurst = app.Flag("rate-limit-burst", "Burst capacity for rate limiter").Default("-1").Int()
	c.logLevel = app.Flag("log-level", "Log level (debug, info, warn, error)").String()
	c.storageDriver = app.Flag("storage", "Plan storage backend").Enum(config.StorageMemory, config.StorageSQLite)
	c.databasePath = app.Flag("db", "SQLite database path").String()
	c.productsURL = app.Flag("products-url", "URL of the approved products registry (JSON)").String()

	app.Command("serve", "Start the HTTP API").Default()

	c.report = app.Command("report", "Render the shopping list of the plan stored in SQLite (requires --storage=sqlite)")
	c.reportFormat = c.report.Flag("format", "Output format").Default("text").Enum("text", "xlsx", "pdf")
	c.reportOut = c.report.Flag("out", "Output file (- for stdout)").Short('o').Default("-").String()

	c.pack = app.Command("pack", "Plan containers for a total quantity")
	c.packQuantity = c.pack.Arg("quantity", "Total quantity in ml or g").Required().Float64()
	c.packUnit = c.pack.Flag("unit", "Dose unit of the quantity").Default(string(units.Milliliters)).Enum(string(units.Milliliters), string(units.Grams))

	return c
}

func (c *cli) overrides() *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: *c.configFile,
		EnvFile:    *c.envFile,
	}
	if *c.port != "" {
		overrides.Port = c.port
	}
	if *c.rateLimitRPS >= 0 {
		overrides.RateLimitRPS = c.rateLimitRPS
	}
	if *c.rateLimitBurst >= 0 {
		overrides.RateLimitBurst = c.rateLimitBurst
	}
	if *c.logLevel != "" {
		overrides.LogLevel = c.logLevel
	}
	if *c.storageDriver != "" {
		overrides.StorageDriver = c.storageDriver
	}
	if *c.databasePath != "" {
		overrides.DatabasePath = c.databasePath
	}
	if *c.productsURL != "" {
		overrides.ProductsURL = c.productsURL
	}
	return overrides
}

func run(args []string, out io.Writer) error {
	c := newCLI(out)
	command, err := c.app.Parse(args)
	if err != nil {
		return err
	}

	// pack is pure and needs neither configuration nor storage.
	if command == c.pack.FullCommand() {
		unit, _ := units.ParseDoseUnit(*c.packUnit)
		return runPack(out, *c.packQuantity, unit)
	}

	cfg, err := config.Load(c.overrides())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if command == c.report.FullCommand() && cfg.StorageDriver != config.StorageSQLite {
		return errReportNeedsStorage
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()

	switch command {
	case c.report.FullCommand():
		return runReport(app, *c.reportFormat, *c.reportOut, out)
	default:
		if err := app.Start(); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
		shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
		return nil
	}
}

func runPack(out io.Writer, quantity float64, unit units.DoseUnit) error {
	result, err := calculator.New().Pack(quantity, unit.Kind())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Totalt behov: %s\nAnbefalt innkjøp: %s\n",
		report.Quantity(result), report.Packages(result))
	return err
}

func runReport(app *application.App, format, path string, stdout io.Writer) (err error) {
	items, err := app.ShoppingList()
	if err != nil {
		return fmt.Errorf("build shopping list: %w", err)
	}

	out := stdout
	if path != "" && path != "-" {
		f, createErr := os.Create(path)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", path, createErr)
		}
		defer func() {
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
		}()
		out = f
	}

	switch format {
	case "xlsx":
		return export.WriteXLSX(out, items)
	case "pdf":
		return export.WritePDF(out, items)
	default:
		_, err = io.WriteString(out, report.Format(items)+"\n")
		return err
	}
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}

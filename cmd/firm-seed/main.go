// Command firm-seed prepares a firmcore store: it applies the configured
// backend's schema, seeds the first employees on an empty store and can
// check a login against the stored credential hashes.
package main

import (
	"context"
	"errors"
	"firmcore/internal/auth"
	"firmcore/internal/bootstrap"
	"firmcore/internal/config"
	"firmcore/internal/core"
	"firmcore/internal/logging"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type verifyRequest struct {
	id       int
	password string
}

func parseVerify(s string) (verifyRequest, error) {
	rawID, password, ok := strings.Cut(s, ":")
	if !ok {
		return verifyRequest{}, fmt.Errorf("invalid --verify %q: want id:password", s)
	}
	id, err := strconv.Atoi(strings.TrimSpace(rawID))
	if err != nil || id <= 0 {
		return verifyRequest{}, fmt.Errorf("invalid --verify id %q", rawID)
	}
	return verifyRequest{id: id, password: password}, nil
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("firm-seed", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.StringP("config", "c", "", "path to a TOML config file")
	employees := fs.StringArrayP("employee", "e", nil, "employee to seed as name:password (repeatable)")
	verify := fs.String("verify", "", "check a login as id:password after seeding")
	trace := fs.Bool("trace", false, "write handler spans as JSON lines to stderr")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	seeds := make([]bootstrap.Seed, 0, len(*employees))
	for _, raw := range *employees {
		seed, err := bootstrap.ParseSeed(raw)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 2
		}
		seeds = append(seeds, seed)
	}
	var check *verifyRequest
	if *verify != "" {
		req, err := parseVerify(*verify)
		if err != nil {
			_, _ = fmt.Fprintln(stderr, err)
			return 2
		}
		check = &req
	}

	if err := run(context.Background(), *configPath, seeds, check, *trace, stdout, stderr); err != nil {
		_, _ = fmt.Fprintf(stderr, "firm-seed: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, configPath string, seeds []bootstrap.Seed, check *verifyRequest, trace bool, stdout, stderr io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logger = logger.With("driver", string(cfg.Storage.Driver))

	store, err := core.OpenPersistentStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("close store failed", "error", cerr)
		}
	}()

	argon := auth.NewArgon2()
	report, err := bootstrap.SeedEmployees(ctx, store, argon, seeds, core.WithLogger(logger))
	if err != nil {
		return err
	}
	switch {
	case report.AlreadySeeded:
		_, _ = fmt.Fprintln(stdout, "store already seeded")
	default:
		for _, emp := range report.Created {
			_, _ = fmt.Fprintf(stdout, "created employee %d %s\n", emp.ID, emp.Name)
		}
		for _, name := range report.Duplicates {
			_, _ = fmt.Fprintf(stdout, "skipped existing employee %s\n", name)
		}
	}

	if check == nil {
		return nil
	}
	metrics, err := core.NewMetricsRecorder(cfg.Metrics, nil)
	if err != nil {
		return err
	}
	opts := []core.Option{
		core.WithLogger(logger),
		core.WithMetrics(metrics),
		core.WithHashCacheSize(cfg.Cache.EmployeeHashCapacity),
	}
	if trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(stderr)))
	}
	employees, err := core.NewEmployeeHandler(store, opts...)
	if err != nil {
		return err
	}
	login := auth.NewLogin(employees, argon, cfg.Auth.MaxAttempts)
	ok, err := login.Attempt(ctx, check.id, check.password)
	if err != nil {
		return fmt.Errorf("verify employee %d: %w", check.id, err)
	}
	if !ok {
		return fmt.Errorf("login rejected for employee %d", check.id)
	}
	_, _ = fmt.Fprintf(stdout, "login ok for employee %d\n", check.id)
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/db"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/migrate"
)

const usage = `usage: migrate -cmd <up|down|status|version|to|create|validate> [flags]

  up        apply pending migrations
  down      roll back the latest migration
  status    list migrations and when they were applied
  version   print the current schema version
  to        move to -version (YYYYMMDDHHMMSS), up or down
  create    write an empty migration named -name into -dir
  validate  check file names and goose markers
`

func main() {
	cmd := flag.String("cmd", "up", "migration command")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version for -cmd=to")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	_ = godotenv.Load()

	if err := run(*cmd, *dir, *name, *version); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func run(cmd, dir, name, version string) error {
	// file-only commands need neither config nor a database
	switch cmd {
	case "create":
		if name == "" {
			return errors.New("-name is required")
		}
		target := dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		source, err := migrate.Source(dir)
		if err != nil {
			return err
		}
		if err := migrate.ValidateFS(source); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return err
	}
	source, err := migrate.Source(dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, source)
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		applied, err := runner.Up(ctx)
		printResults(os.Stdout, applied)
		return err
	case "down":
		res, err := runner.Down(ctx)
		if err != nil {
			return err
		}
		printResults(os.Stdout, []migrate.Result{res})
		return nil
	case "to":
		target, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			return fmt.Errorf("-version %q: want YYYYMMDDHHMMSS", version)
		}
		moved, err := runner.To(ctx, target)
		printResults(os.Stdout, moved)
		return err
	case "version":
		current, err := runner.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(current)
		return nil
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, st := range statuses {
			applied := "-"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func printResults(w io.Writer, results []migrate.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no migrations to run")
		return
	}
	for _, res := range results {
		fmt.Fprintf(w, "%-4s %d %s\n", res.Direction, res.Version, res.Path)
	}
}

// Command docstore runs CRUD operations against a schema-bound collection.
//
// Usage:
//
//	docstore -schema user.yaml -collection User create '{"name":"John","age":30}'
//	docstore -schema user.yaml -collection User find-all '{"age":30}'
//	docstore -backend sqlite -db app.db -schema user.yaml -collection User watch
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/maruel/docstore/internal/model"
	"github.com/maruel/docstore/internal/schema"
	"github.com/maruel/docstore/internal/storage"
	"github.com/maruel/docstore/internal/storage/jsonl"
	"github.com/maruel/docstore/internal/storage/sqlite"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "docstore: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	backend := flag.String("backend", "jsonl", "Storage backend (jsonl, sqlite)")
	db := flag.String("db", "", "Data directory for jsonl, database file for sqlite (default ./data or ./docstore.db)")
	schemaPath := flag.String("schema", "", "YAML schema file")
	collection := flag.String("collection", "", "Collection name")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: docstore [flags] <command> [args]\n\ncommands:\n%s\nflags:\n", usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		printVersion()
		return nil
	}
	if flag.NArg() == 0 {
		flag.Usage()
		return errors.New("a command is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	if err := ll.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid -log-level: %w", err)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			switch t := a.Value.Any().(type) {
			case string:
				if t == "" {
					return slog.Attr{}
				}
			case time.Duration:
				if t == 0 {
					return slog.Attr{}
				}
			case nil:
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if *schemaPath == "" {
		return errors.New("-schema is required")
	}
	if *collection == "" {
		return errors.New("-collection is required")
	}
	raw, err := os.ReadFile(*schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	def, err := schema.ParseYAML(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", *schemaPath, err)
	}
	s, err := schema.New(def)
	if err != nil {
		return fmt.Errorf("%s: %w", *schemaPath, err)
	}

	store, watchPath, err := openStore(*backend, *db, *collection)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close store", "err", err)
		}
	}()
	m, err := model.New(store, *collection, s)
	if err != nil {
		return err
	}
	c := &cli{model: m, store: store, watchPath: watchPath, out: os.Stdout}
	return c.run(ctx, flag.Args())
}

// openStore opens the backend and returns the file a watcher should follow
// for the collection.
func openStore(backend, db, collection string) (storage.Store, string, error) {
	switch backend {
	case "jsonl":
		if db == "" {
			db = "./data"
		}
		s, err := jsonl.Open(db)
		if err != nil {
			return nil, "", err
		}
		slog.Debug("opened jsonl store", "dir", db)
		return s, s.Path(collection), nil
	case "sqlite":
		if db == "" {
			db = "./docstore.db"
		}
		s, err := sqlite.Open(db)
		if err != nil {
			return nil, "", err
		}
		slog.Debug("opened sqlite store", "path", db)
		return s, db, nil
	default:
		return nil, "", fmt.Errorf("unknown backend %q", backend)
	}
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("docstore %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

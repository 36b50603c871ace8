package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/maruel/docstore/internal/match"
	"github.com/maruel/docstore/internal/model"
	"github.com/maruel/docstore/internal/storage"
)

const usage = `  create <json>                  insert a document
  find-one <conds>               print the first matching record
  find-all [conds]               print every matching record
  find                           print every record
  get <id>                       print the record with this id
  count [conds]                  print the number of matching records
  update <conds> <json>          merge json into every matching record
  delete <conds>                 delete every matching record
  watch [conds]                  print matching records on every change
`

// watchDebounce coalesces the burst of events a single write produces.
const watchDebounce = 100 * time.Millisecond

type cli struct {
	model     *model.Model
	store     storage.Store
	watchPath string
	out       io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	cmd, args := args[0], args[1:]
	want := func(lo, hi int) error {
		if len(args) < lo || len(args) > hi {
			return fmt.Errorf("%s: wrong number of arguments\n%s", cmd, usage)
		}
		return nil
	}
	switch cmd {
	case "create":
		if err := want(1, 1); err != nil {
			return err
		}
		doc, err := c.document(args[0])
		if err != nil {
			return err
		}
		r, err := c.model.Create(doc)
		if err != nil {
			return err
		}
		return c.print(r)
	case "find-one":
		if err := want(1, 1); err != nil {
			return err
		}
		conds, err := c.conditions(args)
		if err != nil {
			return err
		}
		r, err := c.model.FindOne(conds)
		if err != nil {
			return err
		}
		return c.print(r)
	case "find-all", "find":
		if cmd == "find" {
			if err := want(0, 0); err != nil {
				return err
			}
		} else if err := want(0, 1); err != nil {
			return err
		}
		conds, err := c.conditions(args)
		if err != nil {
			return err
		}
		return c.findAll(conds)
	case "get":
		if err := want(1, 1); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		r, err := c.model.FindByID(id)
		if err != nil {
			return err
		}
		return c.print(r)
	case "count":
		if err := want(0, 1); err != nil {
			return err
		}
		conds, err := c.conditions(args)
		if err != nil {
			return err
		}
		n, err := c.model.Count(conds)
		if err != nil {
			return err
		}
		return c.print(map[string]int{"count": n})
	case "update":
		if err := want(2, 2); err != nil {
			return err
		}
		conds, err := c.conditions(args[:1])
		if err != nil {
			return err
		}
		doc, err := c.document(args[1])
		if err != nil {
			return err
		}
		n, err := c.model.Update(conds, doc)
		if err != nil {
			return err
		}
		return c.print(map[string]int{"updated": n})
	case "delete":
		if err := want(1, 1); err != nil {
			return err
		}
		conds, err := c.conditions(args)
		if err != nil {
			return err
		}
		n, err := c.model.Delete(conds)
		if err != nil {
			return err
		}
		return c.print(map[string]int{"deleted": n})
	case "watch":
		if err := want(0, 1); err != nil {
			return err
		}
		conds, err := c.conditions(args)
		if err != nil {
			return err
		}
		return c.watch(ctx, conds)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

// document parses a JSON object and restores the schema types, so that
// RFC 3339 strings become timestamps and integral numbers become int64.
func (c *cli) document(arg string) (map[string]any, error) {
	d := json.NewDecoder(strings.NewReader(arg))
	d.UseNumber()
	var doc map[string]any
	if err := d.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON document: %w", err)
	}
	if doc == nil {
		return nil, errors.New("expected a JSON object")
	}
	return c.model.Schema().Decode(doc), nil
}

// conditions parses the optional first argument as literal conditions.
func (c *cli) conditions(args []string) (match.Conditions, error) {
	if len(args) == 0 {
		return nil, nil
	}
	doc, err := c.document(args[0])
	if err != nil {
		return nil, err
	}
	return match.Conditions(doc), nil
}

func (c *cli) findAll(conds match.Conditions) error {
	records, err := c.model.FindAll(conds)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := c.print(r); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) print(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := c.out.Write(buf.Bytes())
	return err
}

// reloader is implemented by stores that cache rows and must reread them to
// see writes made by other processes.
type reloader interface {
	Reload(name string) error
}

// watch prints the matching records, then again after every change to the
// backing file, until ctx is canceled.
func (c *cli) watch(ctx context.Context, conds match.Conditions) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	// Watch the directory: rewrites replace the file through a rename, which
	// would drop a watch set on the file itself.
	dir := filepath.Dir(c.watchPath)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	base := filepath.Base(c.watchPath)
	slog.InfoContext(ctx, "Watching", "path", c.watchPath)

	refresh := func() error {
		if r, ok := c.store.(reloader); ok {
			if err := r.Reload(c.model.Name()); err != nil {
				return err
			}
		}
		return c.findAll(conds)
	}
	if err := refresh(); err != nil {
		return err
	}

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			// Matches the SQLite journal files too.
			if !strings.HasPrefix(filepath.Base(event.Name), base) || strings.HasSuffix(event.Name, ".tmp") {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(watchDebounce)
			}
		case <-timer.C:
			if err := refresh(); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Error watching", "err", err)
		}
	}
}

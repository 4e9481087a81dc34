package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/clothhaven/storefront/internal/backend"
	"github.com/clothhaven/storefront/internal/inventory"
	"github.com/clothhaven/storefront/internal/platform/observability"
)

// storeFactory opens the variant store for one invocation.
type storeFactory func(c *cli.Context, logger *zap.Logger) (inventory.Store, error)

// recordLookup reads single records without touching the console's working set.
type recordLookup interface {
	GetVariant(ctx context.Context, id int64) (backend.VariantRecord, error)
	VariantExists(ctx context.Context, id int64) (bool, error)
}

type session struct {
	console *inventory.Console
	lookup  recordLookup
	in      *bufio.Reader
	out     io.Writer
}

func newApp(in io.Reader, out io.Writer, open storeFactory) *cli.App {
	if open == nil {
		open = openStore
	}
	reader := bufio.NewReader(in)

	var current *session
	withSession := func(action func(c *cli.Context, s *session) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			return action(c, current)
		}
	}

	return &cli.App{
		Name:      "inventoryctl",
		Usage:     "manage storefront variant inventory",
		Writer:    out,
		ErrWriter: out,

		// main decides the exit code; keep RunContext from calling os.Exit.
		ExitErrHandler: func(*cli.Context, error) {},

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "backend-url",
				Usage:   "base URL of the product service; empty uses the demo catalog",
				EnvVars: []string{"STOREFRONT_BACKEND_BASE_URL"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Value:   backend.DefaultTimeout,
				EnvVars: []string{"STOREFRONT_BACKEND_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "error",
				EnvVars: []string{"STOREFRONT_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print records as JSON",
			},
		},
		Before: func(c *cli.Context) error {
			logger, err := observability.NewLoggerWithLevel(c.String("log-level"))
			if err != nil {
				return err
			}
			store, err := open(c, logger)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			console, err := inventory.NewConsole(store, logger)
			if err != nil {
				return err
			}
			lookup, _ := store.(recordLookup)
			current = &session{console: console, lookup: lookup, in: reader, out: out}
			return nil
		},
		After: func(*cli.Context) error {
			if current != nil {
				current.console.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list variant records",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "product", Usage: "only records of this product"},
				},
				Action: withSession(listAction),
			},
			{
				Name:      "show",
				Usage:     "print one record",
				ArgsUsage: "ID",
				Action:    withSession(showAction),
			},
			{
				Name:      "exists",
				Usage:     "exit 0 when the record exists, 1 otherwise",
				ArgsUsage: "ID",
				Action:    withSession(existsAction),
			},
			{
				Name:  "create",
				Usage: "create one variant record",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "product", Required: true},
					&cli.StringFlag{Name: "color"},
					&cli.StringFlag{Name: "size"},
					&cli.IntFlag{Name: "quantity"},
					&cli.BoolFlag{Name: "available", Value: true},
				},
				Action: withSession(createAction),
			},
			{
				Name:  "batch",
				Usage: "create records from a JSON or YAML list",
				Flags: []cli.Flag{
					&cli.PathFlag{Name: "file", Aliases: []string{"f"}, Required: true},
				},
				Action: withSession(batchAction),
			},
			{
				Name:      "update",
				Usage:     "update fields of one record",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "quantity"},
					&cli.BoolFlag{Name: "available"},
					&cli.StringFlag{Name: "color"},
					&cli.StringFlag{Name: "size"},
				},
				Action: withSession(updateAction),
			},
			{
				Name:      "delete",
				Usage:     "delete one record",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip the confirmation prompt"},
				},
				Action: withSession(deleteAction),
			},
		},
	}
}

func openStore(c *cli.Context, logger *zap.Logger) (inventory.Store, error) {
	baseURL := strings.TrimSpace(c.String("backend-url"))
	if baseURL == "" {
		fmt.Fprintln(c.App.ErrWriter, "backend URL not set; using the demo catalog")
		return backend.NewDemoMemory(), nil
	}
	return backend.NewClient(baseURL, c.Duration("timeout"),
		backend.WithLogger(logger.Named("backend")),
		backend.WithInstruments(observability.NewClientInstruments(logger.Named("backend"))),
	)
}

func listAction(c *cli.Context, s *session) error {
	var filter *int64
	if c.IsSet("product") {
		id := c.Int64("product")
		filter = &id
	}
	return s.report(c, s.console.List(c.Context, filter))
}

func showAction(c *cli.Context, s *session) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	if s.lookup == nil {
		return cli.Exit("this store does not support record lookups", 1)
	}
	rec, err := s.lookup.GetVariant(c.Context, id)
	if err != nil {
		return cli.Exit(backend.OperatorMessage(err), 1)
	}
	return s.print(c, []backend.VariantRecord{rec})
}

func existsAction(c *cli.Context, s *session) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	if s.lookup == nil {
		return cli.Exit("this store does not support record lookups", 1)
	}
	ok, err := s.lookup.VariantExists(c.Context, id)
	if err != nil {
		return cli.Exit(backend.OperatorMessage(err), 1)
	}
	fmt.Fprintln(s.out, ok)
	if !ok {
		return cli.Exit("", 1)
	}
	return nil
}

func createAction(c *cli.Context, s *session) error {
	draft := inventory.NewDraft(c.Int64("product"), c.String("color"), c.String("size"))
	draft.Quantity = c.Int("quantity")
	draft.Availability = c.Bool("available")
	return s.report(c, s.console.Create(c.Context, draft))
}

func batchAction(c *cli.Context, s *session) error {
	raw, err := readBatchFile(c.Path("file"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return s.report(c, s.console.BatchCreate(c.Context, raw))
}

func updateAction(c *cli.Context, s *session) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	var patch backend.VariantPatch
	if c.IsSet("quantity") {
		q := c.Int("quantity")
		patch.Quantity = &q
	}
	if c.IsSet("available") {
		v := c.Bool("available")
		patch.Availability = &v
	}
	if c.IsSet("color") {
		v := strings.TrimSpace(c.String("color"))
		patch.Color = &v
	}
	if c.IsSet("size") {
		v := strings.TrimSpace(c.String("size"))
		patch.Size = &v
	}
	if patch.Empty() {
		return cli.Exit("nothing to update: pass --quantity, --available, --color or --size", 2)
	}
	return s.report(c, s.console.Update(c.Context, id, patch))
}

func deleteAction(c *cli.Context, s *session) error {
	id, err := recordID(c)
	if err != nil {
		return err
	}
	confirm := s.prompt
	if c.Bool("yes") {
		confirm = inventory.Confirmed
	}
	err = s.console.Delete(c.Context, id, confirm)
	if errors.Is(err, inventory.ErrNotConfirmed) {
		fmt.Fprintln(s.out, "aborted")
		return nil
	}
	return s.report(c, err)
}

func (s *session) prompt(id int64) bool {
	fmt.Fprintf(s.out, "Delete variant %d? [y/N]: ", id)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// report prints the working set after a successful operation, or the operator message.
func (s *session) report(c *cli.Context, err error) error {
	state := s.console.Snapshot()
	if err != nil {
		msg := state.ErrorMessage()
		if msg == "" {
			msg = err.Error()
		}
		return cli.Exit(msg, 1)
	}
	return s.print(c, state.Entries)
}

func (s *session) print(c *cli.Context, records []backend.VariantRecord) error {
	if c.Bool("json") {
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return writeTable(s.out, records)
}

func writeTable(out io.Writer, records []backend.VariantRecord) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tCOLOR\tSIZE\tQUANTITY\tAVAILABLE")
	for _, rec := range records {
		id := "-"
		if rec.ID != nil {
			id = strconv.FormatInt(*rec.ID, 10)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\t%t\n", id, rec.ProductID, rec.Color, rec.Size, rec.Quantity, rec.Availability)
	}
	return tw.Flush()
}

func recordID(c *cli.Context) (int64, error) {
	raw := strings.TrimSpace(c.Args().First())
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, cli.Exit(fmt.Sprintf("record ID must be a positive number, got %q", raw), 2)
	}
	return id, nil
}

// readBatchFile returns the file as JSON. YAML files are converted so that the console
// validates both formats the same way.
func readBatchFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse batch yaml: %w", err)
		}
		return json.Marshal(doc)
	default:
		return raw, nil
	}
}

// enrollctl is the operator tool for an enrollment data root. It reads the
// enrollment ledger, previews how an email maps to a storage location, and
// runs one staging cleanup pass without starting the server.
//
// Usage:
//
//	enrollctl list    [--ledger PATH] [--group CS] [--json]
//	enrollctl resolve [--domain nmamit.in] EMAIL...
//	enrollctl sweep   [--root DIR] [--ttl 1h]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/zynqcloud/face-enroll/internal/cleanup"
	"github.com/zynqcloud/face-enroll/internal/identity"
	"github.com/zynqcloud/face-enroll/internal/ledger"
	"github.com/zynqcloud/face-enroll/internal/store"
)

const defaultRoot = "enrollment_data"

var errUsage = errors.New("usage: enrollctl <list|resolve|sweep> [flags]")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch cmd, rest := args[0], args[1:]; cmd {
	case "list":
		return runList(ctx, rest, out)
	case "resolve":
		return runResolve(rest, out)
	case "sweep":
		return runSweep(rest, out)
	default:
		return fmt.Errorf("unknown command %q; %w", cmd, errUsage)
	}
}

func runList(ctx context.Context, args []string, out io.Writer) error {
	var ledgerPath, group string
	var asJSON bool
	fs := pflag.NewFlagSet("enrollctl list", pflag.ContinueOnError)
	fs.StringVar(&ledgerPath, "ledger", filepath.Join(defaultRoot, ".ledger.db"), "enrollment ledger database path")
	fs.StringVar(&group, "group", "", "only list this storage group")
	fs.BoolVar(&asJSON, "json", false, "print entries as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(ledgerPath); err != nil {
		return fmt.Errorf("ledger %s: %w", ledgerPath, err)
	}

	led, err := ledger.Open(ledgerPath)
	if err != nil {
		return err
	}
	defer led.Close() //nolint:errcheck

	entries, err := led.List(ctx, group)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tKEY\tEMAIL\tIMAGES\tCOUNT\tENROLLED AT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			e.Group, e.Key, e.Email, e.Images, e.Count, e.EnrolledAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func runResolve(args []string, out io.Writer) error {
	var domain string
	fs := pflag.NewFlagSet("enrollctl resolve", pflag.ContinueOnError)
	fs.StringVar(&domain, "domain", identity.DefaultDomain, "institution email domain")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("resolve: at least one email is required")
	}

	r := identity.NewResolver(domain)
	for _, email := range fs.Args() {
		group, key := r.Resolve(email)
		fmt.Fprintf(out, "%s\t%s/%s\n", email, group, key)
	}
	return nil
}

func runSweep(args []string, out io.Writer) error {
	var root string
	var ttl time.Duration
	fs := pflag.NewFlagSet("enrollctl sweep", pflag.ContinueOnError)
	fs.StringVar(&root, "root", defaultRoot, "enrollment data root directory")
	fs.DurationVar(&ttl, "ttl", time.Hour, "remove staging entries older than this")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	n := cleanup.NewSweeper(filepath.Join(root, store.StagingDir), ttl, logger).Sweep()
	fmt.Fprintf(out, "removed %d staging entries\n", n)
	return nil
}

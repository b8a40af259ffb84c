// Command assessctl imports assessment definitions and prints results
// against the store configured by the same environment as the gateway.
//
//	assessctl import -file defs.yaml [-deploy] [-author fac-1]
//	assessctl list -type quiz
//	assessctl summary -id comp_...
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mind-engage/pcbuild-assess/internal/app"
	"github.com/mind-engage/pcbuild-assess/internal/assessment"
	"github.com/mind-engage/pcbuild-assess/internal/authoring"
	"github.com/mind-engage/pcbuild-assess/internal/config"
	"github.com/mind-engage/pcbuild-assess/internal/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "assessctl:", err)
		os.Exit(1)
	}
}

func usage() error {
	return fmt.Errorf("usage: assessctl <import|list|summary> [flags]")
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return usage()
	}
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "import", "list", "summary":
	default:
		return usage()
	}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var (
		file   = fs.String("file", "", "YAML definition file (import)")
		deploy = fs.Bool("deploy", false, "deploy every imported assessment (import)")
		author = fs.String("author", "", "facilitator id recorded as author (import)")
		typ    = fs.String("type", "", "assessment type (list)")
		id     = fs.String("id", "", "assessment id (summary)")
	)
	if err := fs.Parse(rest); err != nil {
		return err
	}

	engine, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	switch cmd {
	case "import":
		if *file == "" {
			return fmt.Errorf("import: -file is required")
		}
		f, err := authoring.LoadFile(*file)
		if err != nil {
			return err
		}
		created, err := authoring.Import(ctx, engine.Controller, f, authoring.ImportOptions{Author: *author, Deploy: *deploy})
		for _, a := range created {
			fmt.Fprintf(out, "%s\t%s\t%s\t%d items\n", a.ID, a.Type, a.Status, len(a.Items))
		}
		return err

	case "list":
		types := assessment.Types
		if *typ != "" {
			t, ok := assessment.ParseType(*typ)
			if !ok {
				return fmt.Errorf("list: unknown type %q", *typ)
			}
			types = []assessment.Type{t}
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tITEMS\tSUBMISSIONS\tTITLE")
		for _, t := range types {
			list, err := engine.Controller.ListByType(ctx, t)
			if err != nil {
				return err
			}
			for _, a := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", a.ID, a.Type, a.Status, len(a.Items), len(a.Submissions), a.Title)
			}
		}
		return tw.Flush()

	case "summary":
		if *id == "" {
			return fmt.Errorf("summary: -id is required")
		}
		list, err := engine.Results.AssessmentSummary(ctx, *id)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PARTICIPANT\tSCORE\tPERCENT\tSTATUS\tSUBMITTED")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", s.ParticipantID, s.Display, s.Percentage, s.Status, s.SubmittedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	}
	return nil
}

package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/checklinks/internal/config"
	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
	"git.home.luguber.info/inful/checklinks/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int    `short:"n" default:"10" help:"Number of runs to list"`
	RunID string `name:"run" help:"List the broken links of this run ID instead"`
}

func (h *HistoryCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	path := cfg.History.Path
	if path == "" {
		if path, err = config.DefaultHistoryPath(); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryHistory, "failed to resolve history path").Build()
		}
	}
	store, err := history.Open(path)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "failed to open run history").
			WithContext("path", path).
			Build()
	}
	defer func() { _ = store.Close() }()

	tw := tabwriter.NewWriter(g.Stdout, 0, 0, 2, ' ', 0)
	if h.RunID != "" {
		links, err := store.BrokenLinks(ctx, h.RunID)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryHistory, "failed to read broken links").Build()
		}
		_, _ = fmt.Fprintln(tw, "LOCATION\tLINK\tRESULT\tDETAIL")
		for _, b := range links {
			_, _ = fmt.Fprintf(tw, "%s:%d:%d\t%s\t%s\t%s\n", b.File, b.Line, b.Column, b.Raw, b.Result, b.Detail)
		}
		return tw.Flush()
	}

	runs, err := store.Recent(ctx, h.Limit)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "failed to read run history").Build()
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(g.Stdout, "No runs recorded.")
		return nil
	}
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tELAPSED\tLINKS\tBROKEN\tWARNINGS\tSKIPPED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Elapsed.Round(time.Millisecond),
			r.TotalOccurrences, r.Broken, r.Warnings, r.Skipped)
	}
	return tw.Flush()
}

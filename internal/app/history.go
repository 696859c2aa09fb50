package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/rbright/rehearse/internal/cli"
	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/mcpserver"
	"github.com/rbright/rehearse/internal/results"
	"github.com/rbright/rehearse/internal/store"
	"github.com/rbright/rehearse/internal/transcript"
	"github.com/rbright/rehearse/internal/version"
)

func (r Runner) commandHistory(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	st, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	switch parsed.Action {
	case cli.HistoryImport:
		id, err := results.NewService(st, analysisClient(cfg), logger).Import(ctx, parsed.Target)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintf(r.Stdout, "imported session %s\n", id)
		return 0
	case cli.HistoryDelete:
		if err := st.Delete(ctx, parsed.Target); err != nil {
			return r.storeError(parsed.Target, err)
		}
		fmt.Fprintf(r.Stdout, "deleted session %s\n", parsed.Target)
		return 0
	}

	records, err := st.List(ctx, parsed.Limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(records) == 0 {
		fmt.Fprintln(r.Stdout, "no stored sessions")
		return 0
	}

	tw := tabwriter.NewWriter(r.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSCORE\tANSWERED\tTOPIC")
	for _, rec := range records {
		answered, _, _ := transcript.Counts(rec.Answers)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d/%d\t%s\n",
			rec.ID,
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.OverallScore,
			answered,
			len(rec.Answers),
			rec.Topic,
		)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) commandShow(ctx context.Context, id string, cfg config.Config) int {
	st, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	rec, err := st.Get(ctx, id)
	if err != nil {
		return r.storeError(id, err)
	}

	fmt.Fprintf(r.Stdout, "%s (%s)\n", rec.Topic, rec.Modality)
	fmt.Fprintf(r.Stdout, "recorded %s", rec.CreatedAt.Local().Format(time.RFC1123))
	if rec.Early {
		fmt.Fprint(r.Stdout, ", finished early")
	}
	fmt.Fprintf(r.Stdout, "\noverall score %d\n\n%s\n\n", rec.OverallScore, rec.Summary)
	if err := transcript.Render(r.Stdout, rec.Answers); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (r Runner) storeError(id string, err error) int {
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(r.Stderr, "error: session %s not found\n", id)
		return 1
	}
	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	return 1
}

// commandMCP serves history tools on stdin/stdout until the client disconnects.
func (r Runner) commandMCP(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	st, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = st.Close() }()

	srv := mcpserver.New(st, version.Short(), logger)
	if err := mcpserver.Serve(ctx, srv, r.Stdin, r.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

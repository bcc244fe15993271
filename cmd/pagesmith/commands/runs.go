package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/eventstore"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// RunsCmd implements the 'runs' command.
type RunsCmd struct {
	Journal string `required:"" env:"JOURNAL_PATH" type:"existingfile" help:"Run journal database"`
	Limit   int    `short:"n" default:"20" help:"Number of runs to show"`
	JSON    bool   `help:"Print JSON instead of a table"`
}

func (c *RunsCmd) Run(g *Global, _ *CLI) error {
	journal, err := eventstore.OpenJournal(context.Background(), c.Journal, g.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	runs := journal.Recent(c.Limit)
	if c.JSON {
		out, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "failed to encode runs").Build()
		}
		fmt.Println(string(out))
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tTASK\tROUND\tREPOSITORY\tDETAIL")
	for _, r := range runs {
		detail := r.PagesURL
		if r.Status == eventstore.RunStatusFailed {
			detail = r.ErrorStage + ": " + r.ErrorMessage
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.StartedAt.Format(time.RFC3339), r.Status, r.Task, r.Round, r.Repository, detail)
	}
	return tw.Flush()
}

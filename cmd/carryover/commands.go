package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/clive/sprint-carryover/internal/carryover"
	"github.com/clive/sprint-carryover/internal/journal"
	"github.com/clive/sprint-carryover/internal/model"
)

var (
	fromSprint   string
	toSprint     string
	excludeIDs   []int
	dryRun       bool
	historyLimit int
)

var sprintsCmd = &cobra.Command{
	Use:   "sprints",
	Short: "List the team's sprints, most recent first",
	Long: `List the team's sprints, most recent first.

The sprints that would be preselected as source (<) and destination (>) are marked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()

		s := a.newSession(carryover.WithAutoLoad(false))
		a.runner.Drive(ctx, s, s.Load())
		if err := loadError(s); err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(os.Stdout, s.Iterations())
		}
		printSprints(os.Stdout, s)
		return nil
	},
}

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List the open work items of a sprint",
	Long: `List the open work items of a sprint. Items in Closed, Done or Removed
are never listed.

Without --from the preselected source sprint is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		a, err := newApp(cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := prepareSession(ctx, a, fromSprint, "")
		if err != nil {
			return err
		}
		if err := loadError(s); err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(os.Stdout, s.Items())
		}
		src, _ := s.Source()
		fmt.Printf("%s: %d open work items\n\n", src.Label(), len(s.Items()))
		printItems(os.Stdout, s.Items())
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Carry open work items over to another sprint",
	Long: `Move every open work item of the source sprint to the destination sprint.

Sprints are matched by id, name or path. Without --from and --to the
preselected sprints are used. Items are moved one at a time and a failed
item does not stop the rest.

Examples:
  carryover run
  carryover run --from "Sprint 11" --to "Sprint 12" --exclude 4711,4712
  carryover run --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		out := io.Writer(os.Stdout)
		if jsonOutput {
			out = io.Discard
		}
		printer := &logPrinter{w: out}

		a, err := newApp(cfg, logger, dryRun, carryover.WithObserver(printer.observe))
		if err != nil {
			return err
		}
		defer a.Close()

		printer.session = a.newSession(carryover.WithAutoLoad(fromSprint == ""))
		s, err := loadSession(ctx, a, printer.session, fromSprint, toSprint)
		if err != nil {
			return err
		}
		if err := loadError(s); err != nil {
			return err
		}

		for _, id := range excludeIDs {
			if err := s.Toggle(id, false); err != nil {
				return fmt.Errorf("exclude #%d: %w", id, err)
			}
		}

		effects, err := s.StartCarryOver()
		printer.flush()
		if err != nil {
			return err
		}

		finished := a.runner.Drive(ctx, s, effects)
		if finished == nil {
			return errors.New("carry-over did not finish")
		}

		if jsonOutput {
			res := runResult{RunID: finished.RunID, DryRun: dryRun, Report: finished.Report}
			if err := outputJSON(os.Stdout, res); err != nil {
				return err
			}
		}
		if n := finished.Report.Failed(); n > 0 {
			return fmt.Errorf("%d of %d work items could not be moved", n, finished.Report.Attempted)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past carry-over runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		j, err := openJournal(cfg)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer j.Close()

		if len(args) == 1 {
			entry, err := j.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(os.Stdout, entry)
			}
			printEntry(os.Stdout, entry)
			return nil
		}

		entries, err := j.Recent(ctx, historyLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(os.Stdout, entries)
		}
		if len(entries) == 0 {
			fmt.Println("No carry-over runs recorded yet")
			return nil
		}
		printHistory(os.Stdout, entries)
		return nil
	},
}

func init() {
	itemsCmd.Flags().StringVar(&fromSprint, "from", "", "Source sprint (id, name or path)")

	runCmd.Flags().StringVar(&fromSprint, "from", "", "Source sprint (id, name or path)")
	runCmd.Flags().StringVar(&toSprint, "to", "", "Destination sprint (id, name or path)")
	runCmd.Flags().IntSliceVar(&excludeIDs, "exclude", nil, "Work item ids to leave behind")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would move without changing anything")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show")
}

// prepareSession loads sprints and applies the requested source and destination
func prepareSession(ctx context.Context, a *app, from, to string) (*carryover.Session, error) {
	return loadSession(ctx, a, a.newSession(carryover.WithAutoLoad(from == "")), from, to)
}

func loadSession(ctx context.Context, a *app, s *carryover.Session, from, to string) (*carryover.Session, error) {
	a.runner.Drive(ctx, s, s.Load())
	if len(s.Iterations()) == 0 {
		if err := loadError(s); err != nil {
			return nil, err
		}
		return nil, errors.New("the team has no sprints")
	}

	if from != "" {
		it, err := findIteration(s.Iterations(), from)
		if err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		a.runner.Drive(ctx, s, s.SelectSource(it.ID))
	}
	if to != "" {
		it, err := findIteration(s.Iterations(), to)
		if err != nil {
			return nil, fmt.Errorf("destination: %w", err)
		}
		s.SelectDestination(it.ID)
	}
	return s, nil
}

// findIteration matches key against id, then path, then name (case-insensitive)
func findIteration(iterations []model.Iteration, key string) (model.Iteration, error) {
	for _, it := range iterations {
		if it.ID == key || it.Path == key {
			return it, nil
		}
	}
	var found []model.Iteration
	for _, it := range iterations {
		if strings.EqualFold(it.Name, key) {
			found = append(found, it)
		}
	}
	switch len(found) {
	case 0:
		return model.Iteration{}, fmt.Errorf("%w: %s", carryover.ErrUnknownIteration, key)
	case 1:
		return found[0], nil
	default:
		return model.Iteration{}, fmt.Errorf("%q matches %d sprints, use the path instead", key, len(found))
	}
}

// loadError returns the most recent error logged by the session, if any
func loadError(s *carryover.Session) error {
	log := s.Log()
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Severity == model.SeverityError {
			return errors.New(log[i].Message)
		}
	}
	return nil
}

type runResult struct {
	RunID  string           `json:"run_id"`
	DryRun bool             `json:"dry_run,omitempty"`
	Report carryover.Report `json:"report"`
}

// logPrinter writes session log lines as they are appended
type logPrinter struct {
	w       io.Writer
	session *carryover.Session
	printed int
}

func (p *logPrinter) observe(carryover.Event) {
	p.flush()
}

func (p *logPrinter) flush() {
	if p.session == nil {
		return
	}
	log := p.session.Log()
	if p.printed > len(log) {
		p.printed = 0
	}
	for _, e := range log[p.printed:] {
		fmt.Fprintln(p.w, e.String())
	}
	p.printed = len(log)
}

func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printSprints(w io.Writer, s *carryover.Session) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tNAME\tSTART\tFINISH\tPATH")
	for _, it := range s.Iterations() {
		marker := ""
		switch it.ID {
		case s.SourceID():
			marker = "<"
		case s.DestinationID():
			marker = ">"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", marker, it.Name, dateOrNA(it.StartDate), dateOrNA(it.FinishDate), it.Path)
	}
	_ = tw.Flush()
}

func dateOrNA(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return model.FormatDate(t)
}

func printItems(w io.Writer, items []model.WorkItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "Nothing to carry over")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATE\tTITLE")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", it.ID, it.WorkItemType, it.State, it.Title)
	}
	_ = tw.Flush()
}

func printHistory(w io.Writer, entries []journal.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tFROM\tTO\tMOVED\tFAILED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%d\n",
			e.ID, e.StartedAt.Local().Format("2006-01-02 15:04"), e.SourceName, e.DestinationName,
			e.Succeeded, e.Attempted, e.Failed())
	}
	_ = tw.Flush()
}

func printEntry(w io.Writer, e journal.Entry) {
	fmt.Fprintf(w, "Run %s\n", e.ID)
	fmt.Fprintf(w, "  Started:  %s\n", e.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Finished: %s\n", e.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  From:     %s (%s)\n", e.SourceName, e.SourcePath)
	fmt.Fprintf(w, "  To:       %s (%s)\n", e.DestinationName, e.DestinationPath)
	fmt.Fprintf(w, "  Moved:    %d/%d\n\n", e.Succeeded, e.Attempted)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOUTCOME\tTITLE\tDETAIL")
	for _, it := range e.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", it.ID, it.Outcome, it.Title, it.Detail)
	}
	_ = tw.Flush()
}

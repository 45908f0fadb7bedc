package main

import (
	"fmt"

	"github.com/fwojciec/crawlfront/sqlite"
)

// Run executes the queue command.
func (c *QueueCmd) Run(deps *Dependencies) error {
	frontier := sqlite.NewFrontier(deps.DB)

	counts, err := frontier.Counts(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "queued     %d\n", counts.Queued)
	fmt.Fprintf(deps.Stdout, "in_flight  %d\n", counts.InFlight)
	fmt.Fprintf(deps.Stdout, "crawled    %d\n", counts.Crawled)
	fmt.Fprintf(deps.Stdout, "failed     %d\n", counts.Failed)
	fmt.Fprintf(deps.Stdout, "total      %d\n", counts.Total())

	if c.Limit <= 0 {
		return nil
	}

	filter := sqlite.EntryFilter{Limit: c.Limit}
	switch c.State {
	case "":
	case sqlite.StateQueued, sqlite.StateInFlight, sqlite.StateCrawled, sqlite.StateFailed:
		filter.State = &c.State
	default:
		err := fmt.Errorf("unknown state %q", c.State)
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}
	entries, err := frontier.FindEntries(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}
	fmt.Fprintln(deps.Stdout)
	for _, e := range entries {
		outcome := ""
		switch {
		case e.ErrorKind != "":
			outcome = e.ErrorKind
		case e.StatusCode != 0:
			outcome = fmt.Sprint(e.StatusCode)
		}
		fmt.Fprintf(deps.Stdout, "%s  %-9s  %4d  %-12s  %s\n", e.Fingerprint, e.State, e.Priority, outcome, TruncateURL(e.URL, 80))
	}
	return nil
}

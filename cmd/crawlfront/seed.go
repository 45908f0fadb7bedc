package main

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/fwojciec/crawlfront"
	"github.com/fwojciec/crawlfront/sqlite"
)

// Run executes the seed command.
func (c *SeedCmd) Run(deps *Dependencies) error {
	if len(c.URLs) == 0 && c.Sitemap == "" {
		err := errors.New("no URLs or sitemap given")
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	var include *regexp.Regexp
	if c.Include != "" {
		var err error
		if include, err = regexp.Compile(c.Include); err != nil {
			fmt.Fprintf(deps.Stderr, "error: invalid include pattern %q: %v\n", c.Include, err)
			return err
		}
	}

	seeds := make([]*crawlfront.FrontierRequest, 0, len(c.URLs))
	for _, u := range c.URLs {
		fr, err := seedRequest(u, c.Priority)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
			return err
		}
		seeds = append(seeds, fr)
	}

	if c.Sitemap != "" {
		reqs, err := deps.Sitemaps.Seeds(deps.Ctx, c.Sitemap, include)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: sitemap %s: %s\n", c.Sitemap, errorText(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "Found %d URLs in sitemap\n", len(reqs))
		for _, req := range reqs {
			fr, err := seedRequest(req.URL, req.Priority)
			if err != nil {
				fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
				return err
			}
			seeds = append(seeds, fr)
		}
	}

	frontier := sqlite.NewFrontier(deps.DB)
	before, err := frontier.Counts(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}
	if err := frontier.AddSeeds(deps.Ctx, seeds); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}
	after, err := frontier.Counts(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", errorText(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Added %d URLs (%d queued)\n", after.Total()-before.Total(), after.Queued)
	return nil
}

// seedRequest builds the frontier request for a seed URL.
func seedRequest(url string, priority int) (*crawlfront.FrontierRequest, error) {
	var qdata map[string]any
	if priority != 0 {
		qdata = map[string]any{"request": map[string]any{"priority": priority}}
	}
	return crawlfront.MakeRequest(url, qdata)
}

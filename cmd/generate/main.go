// Command generate prints Lotto Max tickets drawn from historical
// statistics. Values not given as flags are asked for interactively.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/alan-saberi/lotomax-canada/internal/stats"
	"github.com/alan-saberi/lotomax-canada/internal/tickets"
	"github.com/alan-saberi/lotomax-canada/pkg/config"
	"github.com/alan-saberi/lotomax-canada/pkg/logger"
)

type options struct {
	tickets        int
	damping        string
	lucky          string
	extras         int
	seed           uint64
	statsFile      string
	explain        bool
	nonInteractive bool
	verbose        bool
}

// staticStatistics serves one pre-loaded value.
type staticStatistics struct {
	stats *lotto.Statistics
}

func (s staticStatistics) Current() (*lotto.Statistics, error) {
	return s.stats, nil
}

func main() {
	var opts options
	flag.IntVar(&opts.tickets, "tickets", 0, "number of tickets to generate (prompted when 0)")
	flag.StringVar(&opts.damping, "damping", "", "damping factor in (0, 1] (prompted when empty)")
	flag.StringVar(&opts.lucky, "lucky", "", `lucky numbers for every ticket, e.g. "7,14,21"`)
	flag.IntVar(&opts.extras, "extras", -1, "number of Extra sets (prompted when negative)")
	flag.Uint64Var(&opts.seed, "seed", 0, "random seed (random when 0)")
	flag.StringVar(&opts.statsFile, "stats-file", "", "read statistics from a YAML or JSON file instead of scraping")
	flag.BoolVar(&opts.explain, "explain", false, "show where each ticket's numbers came from")
	flag.BoolVar(&opts.nonInteractive, "non-interactive", false, "never prompt; use defaults for missing values")
	flag.BoolVar(&opts.verbose, "v", false, "log every step of every draw")
	flag.Parse()

	if err := run(context.Background(), opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, in io.Reader, out io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logger.InitLogger(level, true)
	log.SetOutput(os.Stderr)

	var provider stats.Provider
	switch {
	case opts.statsFile != "":
		provider = stats.NewFileProvider(opts.statsFile, log)
	case cfg.StatsSource == "file":
		provider = stats.NewFileProvider(cfg.StatsFile, log)
	default:
		provider = stats.NewScraper(stats.ScraperConfig{
			BaseURL:          cfg.StatsBaseURL,
			Timeout:          cfg.ExternalAPITimeout,
			RateLimit:        cfg.ScraperRateLimit,
			BreakerThreshold: cfg.CircuitBreakerThreshold,
		}, log)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	current, err := provider.Fetch(fetchCtx)
	if err != nil {
		return fmt.Errorf("loading statistics: %w", err)
	}

	service := tickets.NewService(staticStatistics{stats: current}, tickets.Config{
		MaxTickets:           cfg.MaxTickets,
		MaxExtraSets:         cfg.MaxExtraSets,
		DefaultDampingFactor: cfg.DefaultDampingFactor,
	}, log)

	req, err := buildRequest(opts, service.Config(), newPrompter(in, out))
	if err != nil {
		return err
	}

	batch, err := service.GenerateBatch(ctx, req)
	if err != nil {
		return err
	}

	printBatch(out, batch, opts.explain)
	return nil
}

// buildRequest fills every value missing from the flags, prompting unless
// running non-interactively.
func buildRequest(opts options, limits tickets.Config, p *prompter) (tickets.BatchRequest, error) {
	var req tickets.BatchRequest
	var err error

	req.Count = opts.tickets
	if req.Count == 0 {
		if opts.nonInteractive {
			req.Count = 1
		} else if req.Count, err = p.ticketCount(limits.MaxTickets); err != nil {
			return req, err
		}
	}

	switch {
	case opts.damping != "":
		d, err := lotto.ParseDamping(opts.damping)
		if err != nil {
			return req, err
		}
		req.DampingFactor = &d
	case !opts.nonInteractive:
		d, err := p.damping()
		if err != nil {
			return req, err
		}
		req.DampingFactor = &d
	}

	switch {
	case opts.lucky != "":
		if req.LuckyNumbers, err = lotto.ParseLuckyNumbers(opts.lucky); err != nil {
			return req, err
		}
	case !opts.nonInteractive:
		if err := askLuckyNumbers(&req, p); err != nil {
			return req, err
		}
	}

	req.ExtraSets = opts.extras
	if req.ExtraSets < 0 {
		req.ExtraSets = 0
		if !opts.nonInteractive {
			if req.ExtraSets, err = p.extraSets(limits.MaxExtraSets); err != nil {
				return req, err
			}
		}
	}

	if opts.seed != 0 {
		seed := opts.seed
		req.Seed = &seed
	}
	return req, nil
}

func askLuckyNumbers(req *tickets.BatchRequest, p *prompter) error {
	want, err := p.confirm("Do you want to add lucky numbers?", false)
	if err != nil || !want {
		return err
	}

	same := true
	if req.Count > 1 {
		if same, err = p.confirm("Use the same lucky numbers for every ticket?", true); err != nil {
			return err
		}
	}
	if same {
		req.LuckyNumbers, err = p.luckyNumbers("Lucky numbers (up to 7, comma separated): ")
		return err
	}

	req.TicketLuckyNumbers = make([][]int, req.Count)
	for i := range req.TicketLuckyNumbers {
		question := fmt.Sprintf("Lucky numbers for ticket %d (blank for none): ", i+1)
		if req.TicketLuckyNumbers[i], err = p.luckyNumbers(question); err != nil {
			return err
		}
	}
	return nil
}

func printBatch(out io.Writer, batch *tickets.Batch, explain bool) {
	fmt.Fprintf(out, "\nStatistics: %s (fetched %s)\n", batch.Source, batch.FetchedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "Damping factor: %.2f   Seed: %d\n\n", batch.DampingFactor, batch.Seed)

	for _, ticket := range batch.Tickets {
		fmt.Fprintf(out, "Ticket %2d: %s\n", ticket.Line, formatNumbers(ticket.Numbers))
		if !explain {
			continue
		}
		for _, c := range ticket.Contributions {
			fmt.Fprintf(out, "           %-22s %s\n", c.Source, formatNumbers(c.Numbers))
		}
	}

	if len(batch.Extras) > 0 {
		fmt.Fprintln(out, "\nExtra:")
		for i, set := range batch.Extras {
			fmt.Fprintf(out, "  Set %2d: %s\n", i+1, formatNumbers(set))
		}
	}
}

func formatNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, " ")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/batch"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/cliinput"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/config"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/console"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/ledger"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/roster"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/telemetry"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/weekly"
)

type options struct {
	Args struct {
		Weeks   string `positional-arg-name:"weeks" description:"Number of weeks to process (1-10)"`
		Batches string `positional-arg-name:"batches" description:"Batches per week (number or 'all')"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	caller, err := cfg.Caller(batch.DefaultTimeout)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "weekly-news")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer shutdown(context.Background())

	ros, err := roster.Load(cfg.CompaniesFile)
	if err != nil {
		log.Fatalf("load roster: %v", err)
	}
	led, err := ledger.Load(cfg.NewsFile)
	if err != nil {
		log.Fatalf("load ledger: %v", err)
	}

	prompter := cliinput.NewPrompter(os.Stdin, os.Stdout)
	var weeks int
	if opts.Args.Weeks != "" {
		weeks = cliinput.ParseWeeks(opts.Args.Weeks)
	} else {
		weeks = prompter.Weeks()
	}
	// The operator answers once; the answer is resolved against every week.
	var choice *cliinput.BatchChoice
	chooseBatches := func(total int) int {
		if total == 0 {
			return 0
		}
		if choice == nil {
			var c cliinput.BatchChoice
			if opts.Args.Batches != "" {
				c = cliinput.ParseBatchChoice(opts.Args.Batches, total)
			} else {
				c = prompter.BatchChoice(total)
			}
			choice = &c
		}
		return choice.Resolve(total)
	}

	orch := batch.NewOrchestrator(batch.Config{
		Caller:        caller,
		StageDelay:    batch.DefaultStageDelay,
		BatchDelay:    batch.DefaultBatchDelay,
		RateLimitWait: batch.DefaultRateLimitWait,
	})
	runner := weekly.NewRunner(weekly.Config{
		RosterPath:      cfg.CompaniesFile,
		LedgerPath:      cfg.NewsFile,
		BatchSize:       cfg.BatchSize,
		RequireCategory: cfg.RequireCategory,
		Orchestrator:    orch,
	}, ros, led)

	fmt.Println(console.Title("Weekly bioplastic news"))
	fmt.Println(console.KeyValues([][2]string{
		{"Model", caller.ModelName()},
		{"Companies", strconv.Itoa(ros.Len())},
		{"Weeks", strconv.Itoa(weeks)},
		{"Run ID", runner.RunID()},
	}))

	log.Printf("weekly-news start weeks=%d companies=%d run_id=%s", weeks, ros.Len(), runner.RunID())
	stats, err := runner.Run(ctx, weeks, chooseBatches)
	printSummary(stats)
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Println(console.Err("Interrupted. Weeks completed so far are saved."))
		return
	case errors.Is(err, llm.ErrUnauthorized):
		log.Fatalf("authentication failed, check the API key: %v", err)
	case err != nil:
		log.Fatal(err)
	}
	fmt.Println(console.OK("Done."))
}

func printSummary(stats []weekly.WeekStats) {
	if len(stats) == 0 {
		return
	}
	rows := make([][]string, 0, len(stats)+1)
	var total weekly.WeekStats
	for _, s := range stats {
		rows = append(rows, statRow(s.Week, s))
		total.Batches += s.Batches
		total.Companies += s.Companies
		total.APICalls += s.APICalls
		total.NewsFound += s.NewsFound
		total.NoNews += s.NoNews
		total.Errors += s.Errors
		total.NewCompanies += s.NewCompanies
	}
	rows = append(rows, statRow("Total", total))
	fmt.Println(console.Table(
		[]string{"Week", "Batches", "Companies", "API calls", "News", "No news", "Errors", "New companies"},
		rows,
	))
}

func statRow(label string, s weekly.WeekStats) []string {
	return []string{
		label,
		strconv.Itoa(s.Batches),
		strconv.Itoa(s.Companies),
		strconv.Itoa(s.APICalls),
		strconv.Itoa(s.NewsFound),
		strconv.Itoa(s.NoNews),
		strconv.Itoa(s.Errors),
		strconv.Itoa(s.NewCompanies),
	}
}

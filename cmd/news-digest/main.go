package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/config"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/console"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/digest"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/render"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/telemetry"
)

type options struct {
	Days     int  `long:"days" description:"Days to look back (defaults to NEWSGEN_DAYS_TO_SEARCH)"`
	MaxItems int  `long:"max-items" default:"10" description:"Maximum news items to request"`
	PDF      bool `long:"pdf" description:"Also render the digest page to PDF in the output dir"`
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
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatal(err)
	}
	caller, err := cfg.Caller(digest.DefaultTimeout)
	if err != nil {
		log.Fatal(err)
	}
	days := opts.Days
	if days <= 0 {
		days = cfg.DaysToSearch
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "news-digest")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer shutdown(context.Background())

	gen := digest.NewGenerator(digest.Config{
		Caller:     caller,
		RosterPath: cfg.CompaniesFile,
		DigestPath: cfg.DigestFile,
		Days:       days,
		MaxItems:   opts.MaxItems,
	})
	rep, err := gen.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Println(console.Err("Interrupted."))
		return
	case errors.Is(err, llm.ErrUnauthorized):
		log.Fatalf("authentication failed, check the API key: %v", err)
	case err != nil:
		log.Fatal(err)
	}

	fmt.Println(console.Title("Bioplastic news digest"))
	fmt.Println(console.KeyValues([][2]string{
		{"Window", rep.From.Format("2006-01-02") + " to " + rep.To.Format("2006-01-02")},
		{"Week", rep.Week.String()},
		{"Received", strconv.Itoa(rep.Received)},
		{"Rejected", strconv.Itoa(len(rep.Rejected))},
		{"Appended", strconv.Itoa(rep.Appended)},
		{"Duplicates", strconv.Itoa(rep.Duplicates)},
		{"New companies", strings.Join(rep.NewCompanies, ", ")},
		{"Run ID", rep.RunID},
	}))
	if len(rep.Published()) == 0 {
		fmt.Println(console.Err("No new items this run."))
		return
	}
	printCategories(rep.Categories())

	mdPath, err := digest.WriteMarkdown(cfg.HugoContentDir, rep)
	if err != nil {
		log.Fatalf("write markdown: %v", err)
	}
	fmt.Println(console.OK("Markdown written to " + mdPath))

	if opts.PDF {
		doc, err := os.ReadFile(mdPath)
		if err != nil {
			log.Fatalf("read markdown: %v", err)
		}
		pdf, err := render.NewRenderer().PDF(ctx, string(doc))
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		pdfPath := filepath.Join(cfg.OutputDir, strings.TrimSuffix(filepath.Base(mdPath), ".md")+".pdf")
		if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
		fmt.Println(console.OK("PDF written to " + pdfPath))
	}
}

func printCategories(counts map[string]int) {
	names := make([]string, 0, len(counts))
	for c := range counts {
		names = append(names, c)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	rows := make([][]string, len(names))
	for i, c := range names {
		rows[i] = []string{c, strconv.Itoa(counts[c])}
	}
	fmt.Println(console.Table([]string{"Category", "Items"}, rows))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/config"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/console"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/enrich"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/roster"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/sheet"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/telemetry"
)

type options struct {
	File string `long:"file" description:"Company workbook (defaults to NEWSGEN_COMPANIES_FILE)"`
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
	path := opts.File
	if path == "" {
		path = cfg.CompaniesFile
	}
	caller, err := cfg.Caller(enrich.DefaultTimeout)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "enrich-companies")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer shutdown(context.Background())

	ros, err := roster.Load(path)
	if err != nil {
		log.Fatalf("load roster: %v", err)
	}
	backup, err := sheet.Backup(path)
	if err != nil {
		log.Fatalf("backup roster: %v", err)
	}
	log.Printf("enrich-companies backup path=%s", backup)

	sum, runErr := enrich.New(enrich.Config{Caller: caller}).Run(ctx, ros)
	if errors.Is(runErr, llm.ErrUnauthorized) {
		log.Fatalf("authentication failed, check the API key: %v", runErr)
	}
	// Whatever was researched before an interrupt is kept.
	if err := ros.Save(path); err != nil {
		log.Fatalf("save roster: %v", err)
	}
	if err := sheet.Format(path, sheet.CompanyLayout); err != nil {
		log.Printf("enrich-companies format_failed err=%q", err.Error())
	}

	fmt.Println(console.Title("Company enrichment"))
	fmt.Println(console.KeyValues([][2]string{
		{"Processed", strconv.Itoa(sum.Processed)},
		{"Enriched", strconv.Itoa(sum.Enriched)},
		{"Errors", strconv.Itoa(sum.Errors)},
		{"Removed (Unknown type)", strings.Join(sum.Removed, ", ")},
		{"Companies", strconv.Itoa(ros.Len())},
		{"Backup", backup},
	}))
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Println(console.Err("Interrupted. Progress so far is saved."))
			return
		}
		log.Fatal(runErr)
	}
	fmt.Println(console.OK("Saved " + path))
}

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
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/checkapi"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/config"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/console"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/telemetry"
)

type options struct {
	Timeout time.Duration `long:"timeout" default:"30s" description:"Per-request timeout"`
	NoSave  bool          `long:"no-save" description:"Do not write raw responses to the output dir"`
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
	fmt.Println(console.Title("API configuration"))
	fmt.Println(console.KeyValues(cfg.Describe()))

	caller, err := cfg.Caller(opts.Timeout)
	if err != nil {
		fmt.Println(console.Err(err.Error()))
		os.Exit(1)
	}
	outDir := cfg.OutputDir
	if opts.NoSave {
		outDir = ""
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "check-api")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer shutdown(context.Background())

	results := checkapi.Run(ctx, caller, outDir, time.Now())
	failed := false
	for _, r := range results {
		if !r.OK() {
			failed = true
			console.Section(os.Stdout, "Query: "+r.Query, console.Err(checkapi.Explain(r.Err)))
			continue
		}
		console.Section(os.Stdout, "Query: "+r.Query, r.Completion.Content)
		pairs := [][2]string{
			{"Citations", strconv.Itoa(len(r.Completion.Citations))},
			{"Prompt tokens", strconv.Itoa(r.Completion.Usage.PromptTokens)},
			{"Completion tokens", strconv.Itoa(r.Completion.Usage.CompletionTokens)},
			{"Total tokens", strconv.Itoa(r.Completion.Usage.TotalTokens)},
		}
		if r.RawPath != "" {
			pairs = append(pairs, [2]string{"Raw response", r.RawPath})
		}
		fmt.Println(console.KeyValues(pairs))
	}
	if failed {
		fmt.Println(console.Err("API check failed."))
		shutdown(context.Background())
		os.Exit(1)
	}
	fmt.Println(console.OK("API check passed."))
}

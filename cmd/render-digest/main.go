package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/render"
)

type options struct {
	Output string `short:"o" long:"output" description:"Output path (defaults to the input with .pdf or .html)"`
	HTML   bool   `long:"html" description:"Write HTML instead of PDF"`
	Args   struct {
		Input string `positional-arg-name:"markdown" required:"yes" description:"Digest markdown file"`
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

	in, err := os.ReadFile(opts.Args.Input)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}
	ext := ".pdf"
	if opts.HTML {
		ext = ".html"
	}
	out := opts.Output
	if out == "" {
		out = strings.TrimSuffix(opts.Args.Input, filepath.Ext(opts.Args.Input)) + ext
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r := render.NewRenderer()
	var data []byte
	if opts.HTML {
		page, err := r.HTML(string(in))
		if err != nil {
			log.Fatalf("render html: %v", err)
		}
		data = []byte(page)
	} else {
		data, err = r.PDF(ctx, string(in))
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		log.Fatalf("write output: %v", err)
	}
	log.Printf("render-digest wrote path=%s bytes=%d", out, len(data))
}

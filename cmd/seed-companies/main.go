package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/config"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/console"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/roster"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/sheet"
)

type options struct {
	File  string `long:"file" description:"Company workbook (defaults to NEWSGEN_COMPANIES_FILE)"`
	Force bool   `long:"force" description:"Overwrite an existing workbook"`
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
	if _, err := os.Stat(path); err == nil && !opts.Force {
		log.Fatalf("%s already exists, pass --force to overwrite", path)
	}

	ros := roster.New()
	now := time.Now()
	for _, c := range roster.Seed {
		ros.Add(c, now)
	}
	if err := ros.Save(path); err != nil {
		log.Fatalf("save roster: %v", err)
	}
	if err := sheet.Format(path, sheet.CompanyLayout); err != nil {
		log.Printf("seed-companies format_failed err=%q", err.Error())
	}
	log.Printf("seed-companies saved path=%s companies=%d", path, ros.Len())
	fmt.Println(console.OK(fmt.Sprintf("Created %s with %d companies", path, ros.Len())))
}

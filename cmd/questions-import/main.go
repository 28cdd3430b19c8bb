package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mind-engage/assessment-engine/internal/config"
	"github.com/mind-engage/assessment-engine/internal/db"
	"github.com/mind-engage/assessment-engine/internal/questionbank"
)

func main() {
	cfg := config.Load()

	file := flag.String("file", "", "question file (.xlsx, .csv, .yaml)")
	sheet := flag.String("sheet", "", "xlsx sheet name (default: first sheet)")
	dryRun := flag.Bool("dry-run", false, "validate without writing")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: questions-import -file bank.xlsx [-sheet Sheet1] [-dry-run]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var (
		res *questionbank.ImportResult
		err error
	)
	if *dryRun {
		res, err = validate(*file, *sheet)
	} else {
		driver := db.Driver(cfg.DBDriver)
		dbh, oerr := db.Open(ctx, driver, cfg.DBDSN)
		if oerr != nil {
			log.Fatalf("db open failed: %v", oerr)
		}
		defer dbh.Close()
		im := questionbank.NewImporter(questionbank.NewRepository(dbh, driver))
		im.Sheet = *sheet
		res, err = im.ImportFile(ctx, *file)
	}
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	fmt.Printf("processed=%d created=%d updated=%d skipped=%d\n", res.Processed, res.Created, res.Updated, res.Skipped)
	for _, e := range res.Errors {
		fmt.Println("  " + e)
	}
	if res.Skipped > 0 {
		os.Exit(1)
	}
}

func validate(path, sheet string) (*questionbank.ImportResult, error) {
	format, err := questionbank.FormatFromName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	_, res, err := questionbank.Parse(f, format, sheet)
	return res, err
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/EmpoweredVote/ward-backend/internal/cache"
	"github.com/EmpoweredVote/ward-backend/internal/config"
	"github.com/EmpoweredVote/ward-backend/internal/db"
	"github.com/EmpoweredVote/ward-backend/internal/logging"
	"github.com/EmpoweredVote/ward-backend/internal/pdftext"
	"github.com/EmpoweredVote/ward-backend/internal/rollparse"
	"github.com/EmpoweredVote/ward-backend/internal/voters"
)

func main() {
	var (
		pdfPath = flag.String("pdf", "", "path to the voter roll PDF")
		dsn     = flag.String("dsn", "", "DATABASE_URL (defaults to the environment)")
		admin   = flag.String("admin", "cli", "admin id recorded in the import history")
		dryRun  = flag.Bool("dry-run", false, "parse and print counts without writing")
	)
	flag.Parse()

	if *pdfPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if *dsn != "" {
		cfg.Database.URL = *dsn
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	data, err := os.ReadFile(*pdfPath)
	if err != nil {
		log.Fatalf("read %s: %v", *pdfPath, err)
	}

	ctx := context.Background()
	extractor := pdftext.NewExtractor(logger)

	if *dryRun {
		if err := cfg.ValidateOffline(); err != nil {
			log.Fatal(err)
		}
		if err := preview(ctx, extractor, data, cfg.Ward); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	gdb, err := db.Connect(cfg.Database, logger)
	if err != nil {
		log.Fatal(err)
	}
	if err := voters.Init(gdb); err != nil {
		log.Fatal(err)
	}

	var c cache.Cache = cache.Nop{}
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.URL, cfg.Redis.Prefix, cfg.Redis.TTL)
		if err != nil {
			logger.Warn("redis unavailable; cached verifications will expire on their own", zap.Error(err))
		} else {
			defer rc.Close()
			c = rc
		}
	}

	im := voters.NewImporter(voters.NewGormStore(gdb), extractor, c, cfg.Ward, cfg.Import, logger)
	sum, err := im.Import(ctx, voters.Source{Data: data, Name: filepath.Base(*pdfPath), AdminID: *admin})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("✓ Imported %d of %d voters from %d pages (new: %d, failed batches: %d)\n",
		sum.Count, sum.TotalFound, sum.Pages, sum.NewVoters, sum.FailedBatches)
	fmt.Printf("  run id: %s\n", sum.RunID)
}

func preview(ctx context.Context, ex pdftext.Extractor, data []byte, ward string) error {
	doc, err := ex.Extract(ctx, data)
	if err != nil {
		return err
	}
	res, err := rollparse.Parse(doc.Text, ward)
	if errors.Is(err, rollparse.ErrNoVotersFound) {
		fmt.Printf("No voters found in %d pages. Is the PDF a scanned image?\n", doc.PageCount)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Pages: %d\nEPIC numbers seen: %d\nVoters parsed: %d\n\n", doc.PageCount, res.EPICsSeen, len(res.Records))
	for i, r := range res.Records {
		if i == 10 {
			fmt.Printf("  ... %d more\n", len(res.Records)-i)
			break
		}
		fmt.Printf("  %s | %s | %s\n", r.EPIC, r.Name, r.FatherOrHusband)
	}
	return nil
}

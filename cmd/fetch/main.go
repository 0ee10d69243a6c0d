// Command fetch searches the archive for a target's pixel files and
// downloads them into the local cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/skywatch-data/lightcurve.report/internal/archive"
)

func main() {
	var target string
	var mission string
	var archiveURL string
	var cacheDir string
	var quarter, sector, campaign int
	var limit int
	var listOnly bool

	flag.StringVar(&target, "target", "", "target identifier, e.g. 'Kepler-8' or 'KIC 6922244'")
	flag.StringVar(&mission, "mission", "", "restrict to one mission (Kepler, K2, TESS)")
	flag.StringVar(&archiveURL, "archive-url", "https://archive.stsci.edu/missions/api", "archive API base URL")
	flag.StringVar(&cacheDir, "cache-dir", "cache", "directory to download into")
	flag.IntVar(&quarter, "quarter", 0, "Kepler quarter (0 = any)")
	flag.IntVar(&sector, "sector", 0, "TESS sector (0 = any)")
	flag.IntVar(&campaign, "campaign", 0, "K2 campaign (0 = any)")
	flag.IntVar(&limit, "limit", 10, "maximum number of products")
	flag.BoolVar(&listOnly, "list", false, "list matching products without downloading")
	flag.Parse()

	if target == "" {
		log.Fatalf("a -target must be provided")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := archive.NewClient(archiveURL, nil)
	products, err := client.Search(ctx, target, archive.SearchOptions{
		Mission:  mission,
		Quarter:  quarter,
		Sector:   sector,
		Campaign: campaign,
		Limit:    limit,
	})
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}

	fmt.Printf("found %d product(s) for %s\n", len(products), target)
	for _, p := range products {
		period := ""
		switch {
		case p.Quarter > 0:
			period = fmt.Sprintf(" quarter %d", p.Quarter)
		case p.Sector > 0:
			period = fmt.Sprintf(" sector %d", p.Sector)
		case p.Campaign > 0:
			period = fmt.Sprintf(" campaign %d", p.Campaign)
		}
		fmt.Printf("  %s (%s%s, %d bytes)\n", p.Filename, p.Mission, period, p.Size)
	}

	if listOnly {
		return
	}

	dl := client.NewDownloader(cacheDir)
	for _, p := range products {
		path, err := dl.Download(ctx, p)
		if err != nil {
			log.Fatalf("download of %s failed: %v", p.Filename, err)
		}
		fmt.Printf("downloaded %s\n", path)
	}
}

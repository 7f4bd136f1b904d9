package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"itpulse/internal/importer"
	"itpulse/internal/seed"
	"itpulse/pkg/models"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "import-rss",
		Usage: "Build a seed catalogue from RSS and Atom feeds",
		Description: `Fetches every --feed, merges stories that share a title and writes a
		TOML catalogue that "api-server serve --seed" starts sessions from.

		A feed may name its fallback category: --feed https://example.com/rss=Security`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "feed",
				Aliases:  []string{"f"},
				Usage:    "Feed URL, optionally suffixed with =Category",
				Required: true,
				EnvVars:  []string{"ITPULSE_IMPORT_FEEDS"},
			},
			&cli.StringFlag{
				Name:    "category",
				Aliases: []string{"c"},
				Value:   models.DefaultDraftCategory,
				Usage:   "Category for items that name none of ours",
			},
			&cli.IntFlag{
				Name:  "max",
				Value: 20,
				Usage: "Items to keep per feed, 0 keeps all",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Articles to keep overall, newest first, 0 keeps all",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 60 * time.Second,
				Usage: "Overall time budget",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Value:   "-",
				Usage:   "Output file, - for stdout",
			},
		},
		Action: func(ctx *cli.Context) error {
			sources, err := buildSources(ctx.StringSlice("feed"), ctx.String("category"), ctx.Int("max"))
			if err != nil {
				return err
			}

			runCtx, cancel := context.WithTimeout(ctx.Context, ctx.Duration("timeout"))
			defer cancel()

			articles, err := importer.NewAggregator(sources...).FetchAndMerge(runCtx)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			if limit := ctx.Int("limit"); limit > 0 && len(articles) > limit {
				articles = articles[:limit]
			}
			log.WithField("articles", len(articles)).Info("Merged feeds")

			return writeCatalogue(ctx.String("out"), ctx.App.Writer, articles)
		},
	}
}

func buildSources(feeds []string, category string, max int) ([]importer.Source, error) {
	if !models.IsArticleCategory(category) {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	sources := make([]importer.Source, 0, len(feeds))
	for _, f := range feeds {
		url, cat := f, category
		if i := strings.LastIndex(f, "="); i > 0 && models.IsArticleCategory(f[i+1:]) {
			url, cat = f[:i], f[i+1:]
		}
		src := importer.NewRSSSource(url, cat)
		src.Max = max
		sources = append(sources, src)
	}
	return sources, nil
}

func writeCatalogue(path string, stdout io.Writer, articles []models.Article) error {
	if path == "-" {
		return seed.Encode(stdout, articles)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := seed.Encode(file, articles); err != nil {
		return err
	}
	log.WithField("path", path).Info("Catalogue written")
	return nil
}

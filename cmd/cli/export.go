package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"itpulse/internal/seed"
	"itpulse/pkg/models"
)

func exportCmd() *cli.Command {
	flags := func(def string) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: def, Usage: "Output path"},
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}},
			&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Value: string(models.SortNewest)},
		}
	}
	run := func(write func(string, []models.Article) error) cli.ActionFunc {
		return func(ctx *cli.Context) error {
			api := clientFrom(ctx)
			if err := ensureSession(ctx, api); err != nil {
				return err
			}
			feed, err := fetchFeed(ctx, api, ctx.String("category"), "", ctx.String("sort"), 0)
			if err != nil {
				return err
			}
			out := ctx.String("out")
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			if err := write(out, feed.Items); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			log.WithFields(log.Fields{"articles": len(feed.Items), "path": out}).Info("Exported feed")
			return nil
		}
	}

	return &cli.Command{
		Name:  "export",
		Usage: "Export the feed of the current session",
		Subcommands: []*cli.Command{
			{Name: "json", Flags: flags("data/articles.json"), Action: run(writeJSON)},
			{Name: "csv", Flags: flags("data/articles.csv"), Action: run(writeCSV)},
			{Name: "toml", Usage: "Write a seed catalogue for api-server --seed", Flags: flags("data/articles.toml"), Action: run(writeTOML)},
		},
	}
}

func writeJSON(path string, items []models.Article) error {
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeCSV(path string, items []models.Article) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"id", "title", "summary", "category", "author", "published", "views", "read_time", "tags", "comments",
	}); err != nil {
		return err
	}
	for _, a := range items {
		if err := writer.Write([]string{
			a.ID,
			a.Title,
			a.Summary,
			a.Category,
			a.Author.DisplayName,
			a.PublishedLabel,
			strconv.Itoa(a.ViewCount),
			a.ReadTimeLabel,
			strings.Join(a.Tags, ","),
			strconv.Itoa(len(a.Comments)),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTOML(path string, items []models.Article) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return seed.Encode(file, items)
}

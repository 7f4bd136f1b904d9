package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"itpulse/internal/auth"
	"itpulse/internal/composer"
	"itpulse/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Theme     string `json:"theme"`
}

type feedResponse struct {
	Total int              `json:"total"`
	Items []models.Article `json:"items"`
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "itpulse",
		Usage: "Read and publish IT Pulse news from the terminal",
		Description: `Talks to a running api-server. A session is opened on first use and
		its token kept in the token file, so commands can be chained:

		itpulse signin --email ada@example.com
		itpulse feed --sort popular
		itpulse publish --title "..." --summary "..." --block "paragraph:..."`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Value:   defaultBaseURL,
				Usage:   "API base URL",
				EnvVars: []string{"ITPULSE_API"},
			},
			&cli.StringFlag{
				Name:    "token",
				Value:   defaultTokenPath(),
				Usage:   "Token file path",
				EnvVars: []string{"ITPULSE_TOKEN_FILE"},
			},
		},
		Commands: []*cli.Command{
			sessionCmd(),
			signinCmd(),
			signoutCmd(),
			feedCmd(),
			showCmd(),
			subscribeCmd(),
			commentCmd(),
			publishCmd(),
			themeCmd(),
			exportCmd(),
		},
	}
}

func clientFrom(ctx *cli.Context) *apiClient {
	return &apiClient{
		BaseURL:   strings.TrimRight(ctx.String("api"), "/"),
		TokenPath: ctx.String("token"),
		HTTP:      &http.Client{Timeout: 60 * time.Second},
	}
}

// startSession opens a new session and stores its token, keeping the
// client id the server handed out.
func startSession(ctx *cli.Context, api *apiClient) (sessionResponse, error) {
	td, _ := readToken(api.TokenPath)
	td.Token = ""

	var out sessionResponse
	resp, err := api.do(ctx.Context, http.MethodPost, "/api/session", td, nil, &out)
	if err != nil {
		return out, fmt.Errorf("start session: %w", err)
	}
	for _, c := range resp.Cookies() {
		if c.Name == auth.ClientCookie {
			td.ClientID = c.Value
		}
	}
	td.Token = out.Token
	if err := saveToken(api.TokenPath, td); err != nil {
		return out, fmt.Errorf("save token: %w", err)
	}
	return out, nil
}

// ensureSession starts a session unless the token file has a live one.
func ensureSession(ctx *cli.Context, api *apiClient) error {
	if td, err := readToken(api.TokenPath); err == nil && td.Token != "" {
		if err := api.doJSON(ctx.Context, http.MethodGet, "/auth/me", nil, nil); err == nil {
			return nil
		}
	}
	_, err := startSession(ctx, api)
	return err
}

func sessionCmd() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Start or end the reading session",
		Subcommands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start a fresh session",
				Action: func(ctx *cli.Context) error {
					out, err := startSession(ctx, clientFrom(ctx))
					if err != nil {
						return err
					}
					fmt.Fprintf(ctx.App.Writer, "session %s started (theme %s, expires %s)\n", out.SessionID, out.Theme, out.ExpiresAt)
					return nil
				},
			},
			{
				Name:  "end",
				Usage: "End the current session",
				Action: func(ctx *cli.Context) error {
					api := clientFrom(ctx)
					if err := api.doJSON(ctx.Context, http.MethodDelete, "/api/session", nil, nil); err != nil {
						log.WithError(err).Warn("Server did not end the session")
					}
					return clearToken(api.TokenPath)
				},
			},
		},
	}
}

func signinCmd() *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "Sign in with an email address",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Email address; `name@` lists common domains"},
		},
		Action: func(ctx *cli.Context) error {
			api := clientFrom(ctx)
			email := ctx.String("email")

			if strings.HasSuffix(email, "@") {
				var out struct {
					Suggestions []string `json:"suggestions"`
				}
				if err := api.doJSON(ctx.Context, http.MethodGet, "/auth/suggest?email="+url.QueryEscape(email), nil, &out); err != nil {
					return err
				}
				fmt.Fprintln(ctx.App.Writer, strings.Join(out.Suggestions, "\n"))
				return nil
			}

			if err := ensureSession(ctx, api); err != nil {
				return err
			}
			var out struct {
				User models.User `json:"user"`
			}
			if err := api.doJSON(ctx.Context, http.MethodPost, "/auth/signin", map[string]string{"email": email}, &out); err != nil {
				return fmt.Errorf("signin failed: %w", err)
			}
			fmt.Fprintf(ctx.App.Writer, "signed in as %s\n", out.User.Name)
			return nil
		},
	}
}

func signoutCmd() *cli.Command {
	return &cli.Command{
		Name:  "signout",
		Usage: "Sign out, keeping the session",
		Action: func(ctx *cli.Context) error {
			return clientFrom(ctx).doJSON(ctx.Context, http.MethodPost, "/auth/signout", nil, nil)
		},
	}
}

func feedCmd() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "List articles",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "All, AI, Dev, Hardware, Security or Cloud"},
			&cli.StringFlag{Name: "q", Usage: "Search title and summary"},
			&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Value: string(models.SortNewest), Usage: "newest, popular or trending"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Show at most n articles"},
			&cli.BoolFlag{Name: "json", Usage: "Print raw JSON"},
		},
		Action: func(ctx *cli.Context) error {
			api := clientFrom(ctx)
			if err := ensureSession(ctx, api); err != nil {
				return err
			}
			out, err := fetchFeed(ctx, api, ctx.String("category"), ctx.String("q"), ctx.String("sort"), ctx.Int("limit"))
			if err != nil {
				return err
			}
			if ctx.Bool("json") {
				return printJSON(ctx.App.Writer, out)
			}
			for _, a := range out.Items {
				fmt.Fprintf(ctx.App.Writer, "%-14s %-9s %7d views  %s\n", a.ID, a.Category, a.ViewCount, a.Title)
			}
			fmt.Fprintf(ctx.App.Writer, "%d of %d articles\n", len(out.Items), out.Total)
			return nil
		},
	}
}

func fetchFeed(ctx *cli.Context, api *apiClient, category, q, sort string, limit int) (feedResponse, error) {
	qv := url.Values{}
	if category != "" {
		qv.Set("category", category)
	}
	if q != "" {
		qv.Set("q", q)
	}
	if sort != "" {
		qv.Set("sort", sort)
	}
	if limit > 0 {
		qv.Set("limit", strconv.Itoa(limit))
	}

	var out feedResponse
	if err := api.doJSON(ctx.Context, http.MethodGet, "/api/feed?"+qv.Encode(), nil, &out); err != nil {
		return out, fmt.Errorf("feed failed: %w", err)
	}
	return out, nil
}

func showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Open an article",
		ArgsUsage: "<article id>",
		Action: func(ctx *cli.Context) error {
			id := ctx.Args().First()
			if id == "" {
				return fmt.Errorf("article id is required")
			}
			api := clientFrom(ctx)
			if err := ensureSession(ctx, api); err != nil {
				return err
			}
			var a models.Article
			if err := api.doJSON(ctx.Context, http.MethodGet, "/api/articles/"+url.PathEscape(id), nil, &a); err != nil {
				return fmt.Errorf("show failed: %w", err)
			}
			return printArticle(ctx, a)
		},
	}
}

func printArticle(ctx *cli.Context, a models.Article) error {
	w := ctx.App.Writer
	fmt.Fprintf(w, "%s\n%s · %s · %s · %d views\n\n", a.Title, a.Author.DisplayName, a.PublishedLabel, a.ReadTimeLabel, a.ViewCount)
	fmt.Fprintf(w, "%s\n\n%s\n", a.Summary, a.Body)
	if len(a.Tags) > 0 {
		fmt.Fprintf(w, "\ntags: %s\n", strings.Join(a.Tags, ", "))
	}
	for _, c := range a.Comments {
		fmt.Fprintf(w, "\n%s (%s): %s\n", c.AuthorName, c.CreatedLabel, c.Text)
	}
	return nil
}

func subscribeCmd() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Toggle the subscription to an author",
		ArgsUsage: "<author id>",
		Action: func(ctx *cli.Context) error {
			id := ctx.Args().First()
			if id == "" {
				return fmt.Errorf("author id is required")
			}
			var out struct {
				Author models.Author `json:"author"`
			}
			if err := clientFrom(ctx).doJSON(ctx.Context, http.MethodPost, "/api/authors/"+url.PathEscape(id)+"/subscribe", nil, &out); err != nil {
				return err
			}
			state := "unsubscribed from"
			if out.Author.IsSubscribed {
				state = "subscribed to"
			}
			fmt.Fprintf(ctx.App.Writer, "%s %s (%d subscribers)\n", state, out.Author.DisplayName, out.Author.SubscriberCount)
			return nil
		},
	}
}

func commentCmd() *cli.Command {
	return &cli.Command{
		Name:      "comment",
		Usage:     "Comment on an article",
		ArgsUsage: "<article id> <text>",
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() < 2 {
				return fmt.Errorf("article id and text are required")
			}
			id := ctx.Args().First()
			text := strings.Join(ctx.Args().Tail(), " ")
			return clientFrom(ctx).doJSON(ctx.Context, http.MethodPost, "/api/articles/"+url.PathEscape(id)+"/comments", map[string]string{"text": text}, nil)
		},
	}
}

func publishCmd() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Compose and publish an article",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
			&cli.StringFlag{Name: "summary", Aliases: []string{"s"}},
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Value: models.DefaultDraftCategory},
			&cli.StringSliceFlag{Name: "block", Aliases: []string{"b"}, Usage: "kind:value, kind is heading, paragraph or image; repeat in order"},
			&cli.BoolFlag{Name: "improve", Usage: "Let the AI editor rewrite title, summary and body before publishing"},
		},
		Action: func(ctx *cli.Context) error {
			specs, err := parseBlocks(ctx.StringSlice("block"))
			if err != nil {
				return err
			}
			api := clientFrom(ctx)

			var st composer.State
			if err := api.doJSON(ctx.Context, http.MethodPost, "/api/drafts", nil, &st); err != nil {
				return err
			}
			patch := map[string]string{
				"title":    ctx.String("title"),
				"summary":  ctx.String("summary"),
				"category": ctx.String("category"),
			}
			if err := api.doJSON(ctx.Context, http.MethodPatch, "/api/drafts/current", patch, nil); err != nil {
				return err
			}
			if err := fillBlocks(ctx, api, st.Blocks[0].ID, specs); err != nil {
				return err
			}

			if ctx.Bool("improve") {
				if err := api.doJSON(ctx.Context, http.MethodPost, "/api/drafts/current/improve", nil, &st); err != nil {
					return fmt.Errorf("improve failed, draft kept: %w", err)
				}
				fmt.Fprintf(ctx.App.Writer, "improved title: %s\n", st.Title)
			}

			var a models.Article
			if err := api.doJSON(ctx.Context, http.MethodPost, "/api/drafts/current/publish", nil, &a); err != nil {
				return fmt.Errorf("publish failed, draft kept: %w", err)
			}
			fmt.Fprintf(ctx.App.Writer, "published %s: %s\n", a.ID, a.Title)
			return nil
		},
	}
}

type blockSpec struct {
	Kind  models.BlockKind
	Value string
}

func parseBlocks(raw []string) ([]blockSpec, error) {
	specs := make([]blockSpec, 0, len(raw))
	for _, r := range raw {
		k, v, ok := strings.Cut(r, ":")
		kind, known := models.ParseBlockKind(k)
		if !ok || !known {
			return nil, fmt.Errorf("block %q: want kind:value", r)
		}
		specs = append(specs, blockSpec{Kind: kind, Value: v})
	}
	return specs, nil
}

// fillBlocks writes specs into the draft. The draft starts with one empty
// paragraph which takes the first entry when that is a paragraph too.
func fillBlocks(ctx *cli.Context, api *apiClient, firstID string, specs []blockSpec) error {
	for i, blk := range specs {
		id := firstID
		if i > 0 || blk.Kind != models.BlockParagraph {
			var out struct {
				Block models.ContentBlock `json:"block"`
			}
			if err := api.doJSON(ctx.Context, http.MethodPost, "/api/drafts/current/blocks", map[string]string{"kind": string(blk.Kind)}, &out); err != nil {
				return err
			}
			id = out.Block.ID
		}
		if err := api.doJSON(ctx.Context, http.MethodPut, "/api/drafts/current/blocks/"+url.PathEscape(id), map[string]string{"value": blk.Value}, nil); err != nil {
			return err
		}
	}
	if len(specs) > 0 && specs[0].Kind != models.BlockParagraph {
		return api.doJSON(ctx.Context, http.MethodDelete, "/api/drafts/current/blocks/"+url.PathEscape(firstID), nil, nil)
	}
	return nil
}

func themeCmd() *cli.Command {
	show := func(ctx *cli.Context, method, path string, payload any) error {
		api := clientFrom(ctx)
		if err := ensureSession(ctx, api); err != nil {
			return err
		}
		var out struct {
			Theme string `json:"theme"`
		}
		if err := api.doJSON(ctx.Context, method, path, payload, &out); err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, out.Theme)
		return nil
	}

	return &cli.Command{
		Name:  "theme",
		Usage: "Show or change the color theme",
		Action: func(ctx *cli.Context) error {
			return show(ctx, http.MethodGet, "/api/theme", nil)
		},
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				ArgsUsage: "<dark|light>",
				Action: func(ctx *cli.Context) error {
					return show(ctx, http.MethodPut, "/api/theme", map[string]string{"theme": ctx.Args().First()})
				},
			},
			{
				Name: "toggle",
				Action: func(ctx *cli.Context) error {
					return show(ctx, http.MethodPost, "/api/theme/toggle", nil)
				},
			},
		},
	}
}

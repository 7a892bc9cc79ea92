package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/eringen/shortpost"
	"github.com/eringen/shortpost/composer"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shortpost",
		Short:         "Short-video upload server",
		Long:          "shortpost serves the create-post screen of a short-video app and stores the posts it publishes.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", shortpost.EnvOr("SHORTPOST_CONFIG", ""), "YAML config file")

	root.AddCommand(newServeCmd(), newPostsCmd(), newVersionCmd())
	return root
}

// loadConfig reads the optional config file and applies environment overrides.
func loadConfig(cmd *cobra.Command) (shortpost.Config, error) {
	var cfg shortpost.Config
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		loaded, err := shortpost.LoadConfigFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	shortpost.ApplyEnv(&cfg)
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Addr = addr
			}
			if cfg.SessionSecret == "" {
				cfg.SessionSecret = shortpost.MustEnv("SHORTPOST_SESSION_SECRET")
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides config)")
	return cmd
}

func serve(ctx context.Context, cfg shortpost.Config) error {
	app := shortpost.New(cfg)
	defer app.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- app.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	app.Logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func newPostsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Inspect stored posts",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			user, _ := cmd.Flags().GetString("user")
			tag, _ := cmd.Flags().GetString("tag")
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")
			if user != "" && tag != "" {
				return errors.New("--user and --tag cannot be combined")
			}

			repo, err := shortpost.OpenRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			var posts []composer.Post
			if user != "" {
				posts, err = repo.ListPostsByUser(cmd.Context(), user, limit)
			} else {
				posts, err = repo.ListPublicPosts(cmd.Context(), tag, limit)
			}
			if err != nil {
				return err
			}
			log.Debug().Int("count", len(posts)).Msg("listed posts")
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(posts)
			}
			return printPosts(cmd.OutOrStdout(), posts)
		},
	}
	list.Flags().String("user", "", "list every post of this user, private ones included")
	list.Flags().String("tag", "", "only public posts carrying this hashtag")
	list.Flags().Int("limit", 20, "maximum number of posts")
	list.Flags().Bool("json", false, "print JSON")
	cmd.AddCommand(list)
	return cmd
}

func printPosts(w io.Writer, posts []composer.Post) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tPRIVATE\tHASHTAGS\tVIDEO")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%s\n",
			p.ID, p.CreatedAt.Local().Format("2006-01-02 15:04"), p.IsPrivate, strings.Join(p.Hashtags, ","), p.VideoURL)
	}
	return tw.Flush()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the shortpost version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "shortpost %s\n", version)
		},
	}
}

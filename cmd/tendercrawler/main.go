package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/lazuli-inc/tendercrawler"
	"github.com/spf13/cobra"
)

const previewLength = 500

var (
	keywords []string
	days     int
	headed   bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tendercrawler",
		Short:         "KEPCO coal tender crawler",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringArrayVarP(&keywords, "keyword", "k", nil, "search keyword, repeatable (default 유연탄, 석탄, 연료탄)")
	root.PersistentFlags().IntVarP(&days, "days", "d", tendercrawler.DefaultSearchDays, "search window in days")
	root.PersistentFlags().BoolVar(&headed, "headed", false, "show the browser window")

	root.AddCommand(crawlCommand(), serveCommand(), scheduleCommand(), parseCommand())
	return root
}

func newCrawler(ctx context.Context) (*tendercrawler.Crawler, error) {
	app := tendercrawler.NewKepcoCrawler()
	if headed {
		app.SetHeadless(false)
	}
	if err := app.ConnectBackends(ctx); err != nil {
		_ = app.Close(context.Background())
		return nil, err
	}
	return app, nil
}

func crawlCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Search KEPCO SRM once and analyse the attachments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newCrawler(ctx)
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			report, err := app.Run(ctx, tendercrawler.NewSearchRequest(keywords, days))
			if err != nil {
				return err
			}
			for _, rec := range report.Announcements {
				fmt.Printf("[%s] %s (%s, closes %s)\n", rec.AnnouncementNo, rec.Title, rec.Organization, rec.CloseDate)
			}
			_, err = app.Publish(ctx, report, output)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "output", "directory for kepco_results.json and .csv")
	return cmd
}

func serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the crawl API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newCrawler(ctx)
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			if addr == "" {
				addr = app.Config.GetString("HTTP_ADDR")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           tendercrawler.NewRouter(tendercrawler.NewCrawlHandler(app, app.Logger)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				app.Logger.Info("Listening on %s", addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR)")
	return cmd
}

func scheduleCommand() *cobra.Command {
	var (
		spec   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the crawl on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newCrawler(ctx)
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			scheduler := tendercrawler.NewScheduler(func(ctx context.Context, req tendercrawler.SearchRequest) error {
				report, err := app.Run(ctx, req)
				if err != nil {
					return err
				}
				_, err = app.Publish(ctx, report, output)
				return err
			}, app.Logger)
			if _, err := scheduler.AddJob(spec, keywords, days); err != nil {
				return err
			}

			scheduler.Start()
			<-ctx.Done()
			scheduler.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "0 6 * * *", "cron expression (minute hour dom month dow)")
	cmd.Flags().StringVarP(&output, "output", "o", "output", "directory for exported results")
	return cmd
}

func parseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE",
		Short: "Decode a local .hwp/.hwpx file and print its specification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			app := tendercrawler.NewKepcoCrawler()
			defer app.Close(context.Background())

			res := app.AnalyzeDocument(tendercrawler.RawDocument{Name: filepath.Base(args[0]), Data: data})
			if res.Err != nil {
				return res.Err
			}

			fmt.Printf("Extracted %d characters\n\n%s\n\n", utf8.RuneCountInString(res.Text), preview(res.Text))
			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

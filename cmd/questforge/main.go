package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zen-systems/questforge/pkg/adapter"
	"github.com/zen-systems/questforge/pkg/config"
	"github.com/zen-systems/questforge/pkg/generator"
	"github.com/zen-systems/questforge/pkg/httpapi"
	"github.com/zen-systems/questforge/pkg/prompt"
)

var (
	configFile  string
	verbose     bool
	modelFlag   string
	fallbackArg []string
	catalogFlag bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "questforge",
		Short: "Generate multiple-choice questions with LLM provider fallback",
		Long: `Questforge sends generation requests to LLM providers, retries transient
	failures with backoff, and falls back along an ordered list of models until
	one of them returns a usable answer.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to settings file (default ~/.questforge/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(questionCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&modelFlag, "model", "m", "", "model or alias to call first")
	cmd.Flags().StringSliceVar(&fallbackArg, "fallback", nil, "fallback models, in order")
	cmd.Flags().BoolVar(&catalogFlag, "catalog-fallback", false, "fall back along the catalog's TPM order")
}

func generateCmd() *cobra.Command {
	var systemPrompt string
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Send a prompt through the fallback chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, err := setup()
			if err != nil {
				return err
			}

			req := adapter.Request{
				Model:        modelFlag,
				Prompt:       args[0],
				SystemPrompt: systemPrompt,
				MaxTokens:    maxTokens,
			}
			res, err := svc.GenerateWithFallback(cmd.Context(), req, fallbacks(cfg, svc, req))
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Answered by %s/%s in %dms\n", res.Provider, res.Model, res.ResponseTimeMs)
			fmt.Println(res.Content)
			return nil
		},
	}

	addModelFlags(cmd)
	cmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "completion token limit")
	return cmd
}

func questionCmd() *cobra.Command {
	var content prompt.Content
	var instructions, additional string

	cmd := &cobra.Command{
		Use:   "question",
		Short: "Generate one validated multiple-choice question",
		Long: `Builds the question prompt from the given content, generates through the
	fallback chain, and prints the validated question as JSON. Models whose
	output does not parse or validate are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(content.Text) == "" && strings.TrimSpace(content.Topic) == "" {
				return errors.New("--text or --topic is required")
			}
			cfg, svc, err := setup()
			if err != nil {
				return err
			}

			req := adapter.Request{
				Model:  modelFlag,
				Prompt: prompt.Question(content, instructions, additional),
			}
			res, err := svc.GenerateQuestion(cmd.Context(), req, fallbacks(cfg, svc, req))
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Generated by %s/%s in %dms (%d candidate(s))\n",
				res.Provider, res.Model, res.ResponseTimeMs, len(res.Attempts))
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Parsed)
		},
	}

	addModelFlags(cmd)
	cmd.Flags().StringVar(&content.Category, "category", "", "content category")
	cmd.Flags().StringVar(&content.Subject, "subject", "", "content subject")
	cmd.Flags().StringVar(&content.Lesson, "lesson", "", "content lesson")
	cmd.Flags().StringVar(&content.Topic, "topic", "", "content topic")
	cmd.Flags().StringVar(&content.Text, "text", "", "source text for the question")
	cmd.Flags().StringVar(&instructions, "instructions", "", "extra instructions")
	cmd.Flags().StringVar(&additional, "context", "", "additional context")
	return cmd
}

func modelsCmd() *cobra.Command {
	var showAliases bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List catalog models and which providers have keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			if showAliases {
				fmt.Fprintln(w, "ALIAS\tMODEL")
				for alias, model := range cfg.Catalog.Aliases {
					fmt.Fprintf(w, "%s\t%s\n", alias, model)
				}
				return w.Flush()
			}

			fmt.Fprintln(w, "MODEL\tPROVIDER\tTPM\tSTATUS")
			for _, m := range cfg.Catalog.Models {
				status := "no key"
				switch {
				case !m.Available:
					status = "disabled"
				case cfg.HasProvider(m.Provider):
					status = "ready"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", m.ID, m.Provider, m.TPMLimit, status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&showAliases, "aliases", false, "show aliases and what they resolve to")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generation API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, err := setup()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Settings.Server.Addr
			}

			logger := newLogger()
			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewServer(svc, cfg.Catalog, cfg, logger).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from settings, :8080)")
	return cmd
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load()
}

func setup() (*config.Config, *generator.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	registry, err := cfg.Registry()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create adapters: %w", err)
	}

	policy := cfg.RetryPolicy()
	svc, err := generator.New(generator.Options{
		Adapters:     registry,
		Keys:         cfg,
		Catalog:      cfg.Catalog,
		Retry:        &policy,
		DefaultModel: cfg.Settings.DefaultModel,
		Logger:       newLogger(),
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, svc, nil
}

// fallbacks picks the fallback list: explicit flags first, then the
// catalog order, then the settings file.
func fallbacks(cfg *config.Config, svc *generator.Service, req adapter.Request) []string {
	primary := req.Model
	if primary == "" {
		primary = svc.DefaultModel()
	}
	switch {
	case len(fallbackArg) > 0:
		return fallbackArg
	case catalogFlag:
		return svc.CatalogFallbacks(primary)
	default:
		return cfg.FallbackModels(primary)
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sealor/closet-whisperer/pkg/api"
	"github.com/sealor/closet-whisperer/pkg/config"
	"github.com/sealor/closet-whisperer/pkg/conversation"
	"github.com/sealor/closet-whisperer/pkg/gateway"
	"github.com/sealor/closet-whisperer/pkg/imagestore"
	"github.com/sealor/closet-whisperer/pkg/logging"
	"github.com/sealor/closet-whisperer/pkg/store"
	"github.com/sealor/closet-whisperer/pkg/stylist"
	"github.com/sealor/closet-whisperer/pkg/tooling"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	configFile string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "closet-whisperer",
	Short: "Personal wardrobe backend with an AI stylist",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Env != config.EnvProduction, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API",
	RunE:  serve,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [prompt]",
	Short: "Ask the stylist for outfits; without a prompt an interactive session starts",
	RunE:  suggest,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image-file>",
	Short: "Classify a garment photo without storing it",
	Args:  cobra.ExactArgs(1),
	RunE:  analyze,
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript <file>",
	Short: "Print a stored stylist transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  printTranscript,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.GetEnv("CLOSET_CONFIG", ""), "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd, suggestCmd, analyzeCmd, transcriptCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newGateway() *gateway.Gateway {
	return gateway.New(gateway.Config{
		BaseURL: cfg.OpenRouter.BaseURL,
		APIKey:  cfg.OpenRouter.APIKey,
		Model:   cfg.OpenRouter.Model,
		Referer: cfg.OpenRouter.Referer,
		Title:   cfg.OpenRouter.Title,
		Debug:   verbose,
	}, logger.Named("gateway"))
}

func newStylist(gw *gateway.Gateway, st *store.Store) *stylist.Orchestrator {
	opts := []stylist.Option{
		stylist.WithMaxRounds(cfg.Stylist.MaxRounds),
		stylist.WithLogger(logger.Named("stylist")),
	}
	if cfg.Stylist.TranscriptDir != "" {
		opts = append(opts, stylist.WithTranscripts(conversation.NewTranscriptWriter(cfg.Stylist.TranscriptDir)))
	}
	return stylist.New(gw, tooling.NewToolbox(tooling.NewFacade(st)), opts...)
}

func serve(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(true); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	gw := newGateway()
	handler := api.NewServer(api.Deps{
		Wardrobe: st,
		Images:   imagestore.New(cfg.ImageStoreURL),
		Analyzer: gw,
		Stylist:  newStylist(gw, st),
	}, api.Options{
		Log:           logger.Named("api"),
		DevMode:       cfg.Env != config.EnvProduction,
		AllowedOrigin: cfg.AllowedOrigin,
		PublicBaseURL: cfg.PublicBaseURL,
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Port), zap.String("env", string(cfg.Env)))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func suggest(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(true); err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	orchestrator := newStylist(newGateway(), st)
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		return runPrompt(cmd.Context(), out, orchestrator, strings.Join(args, " "))
	}

	t := term.NewTerminal(os.Stdin, "> ")
	for {
		fd := int(os.Stdin.Fd())
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}

		width, height, err := term.GetSize(fd)
		if err != nil {
			term.Restore(fd, oldState)
			return err
		}
		t.SetSize(width, height)

		prompt, err := t.ReadLine()
		restoreErr := term.Restore(fd, oldState)

		if err != nil {
			if err != io.EOF {
				return err
			}
			return nil
		}
		if restoreErr != nil {
			return restoreErr
		}

		if strings.TrimSpace(prompt) == "" {
			continue
		}
		if err := runPrompt(cmd.Context(), out, orchestrator, prompt); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}
}

func runPrompt(ctx context.Context, w io.Writer, orchestrator *stylist.Orchestrator, prompt string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	suggestions, err := orchestrator.Suggest(ctx, prompt)
	if err != nil {
		return err
	}
	return printJSON(w, suggestions)
}

func analyze(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(true); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	mimeType := http.DetectContentType(data)
	if !imagestore.ValidType(mimeType) {
		return fmt.Errorf("%s: unsupported image type %s", args[0], mimeType)
	}

	analysis, err := newGateway().AnalyzeGarment(cmd.Context(), gateway.DataURL(mimeType, data))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), analysis)
}

func printTranscript(cmd *cobra.Command, args []string) error {
	session, err := conversation.LoadSession(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, message := range session.Messages {
		switch {
		case len(message.ToolCalls) > 0:
			for _, call := range message.ToolCalls {
				fmt.Fprintf(w, "[%s] Tool Call %s: %s(%s)\n", message.Role, call.ID, call.Name, call.Arguments)
			}
		case message.ToolCallID != "":
			fmt.Fprintf(w, "[%s] Result %s: %s\n", message.Role, message.ToolCallID, message.Content)
		default:
			fmt.Fprintf(w, "[%s] %s\n", message.Role, message.Content)
		}
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

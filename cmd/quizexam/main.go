package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/quizexam/internal/bankapi"
	"github.com/pavelanni/quizexam/internal/exam"
	"github.com/pavelanni/quizexam/internal/handler"
	appI18n "github.com/pavelanni/quizexam/internal/i18n"
	"github.com/pavelanni/quizexam/internal/importer"
	"github.com/pavelanni/quizexam/internal/llm"
	"github.com/pavelanni/quizexam/internal/llm/prompts"
	"github.com/pavelanni/quizexam/internal/model"
	"github.com/pavelanni/quizexam/internal/store"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "quizexam",
		Short:        "Quiz bank service and terminal exam client",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), takeCmd(), banksCmd(), importCmd(), exportCmd())
	return root
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz bank HTTP service",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "quizexam.db", "SQLite database path")
	f.StringSliceP("questions", "q", nil, "Question files (.json, .xlsx) to import at startup (repeatable)")
	f.StringP("lang", "l", appI18n.DefaultLang, "Fallback message language (en, zh)")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (repeatable)")
	f.Bool("request-log", true, "Log every HTTP request")
	addLogFlags(cmd)
	return cmd
}

func takeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take an exam on a quiz bank in the terminal",
		RunE:  runTake,
	}
	f := cmd.Flags()
	f.String("server", bankapi.DefaultBaseURL, "Quiz bank service base URL")
	f.Int64P("bank", "b", 0, "Quiz bank ID")
	f.StringP("lang", "l", appI18n.DefaultLang, "UI language (en, zh)")
	f.Bool("explain", false, "Ask the LLM to explain submitted questions without analysis")
	f.String("prompt-variant", string(prompts.PromptBrief), "Explanation prompt variant (brief, detailed)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	addLogFlags(cmd)
	return cmd
}

func banksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banks",
		Short: "List quiz banks on the service",
		RunE:  runBanks,
	}
	f := cmd.Flags()
	f.String("server", bankapi.DefaultBaseURL, "Quiz bank service base URL")
	f.StringP("search", "s", "", "Only list banks whose name contains this keyword")
	f.StringP("lang", "l", appI18n.DefaultLang, "Message language (en, zh)")
	addLogFlags(cmd)
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import question files into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "quizexam.db", "SQLite database path")
	f.String("bank-name", "", "Target bank name (default: file name without extension)")
	addLogFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a quiz bank as an XLSX workbook",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "quizexam.db", "SQLite database path")
	f.Int64P("bank", "b", 0, "Quiz bank ID (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("bank")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("QUIZEXAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizexam")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizexam")
	v.AddConfigPath("/etc/quizexam")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if files := v.GetStringSlice("questions"); len(files) > 0 {
		if _, err := importer.New(db, nil).ImportFiles(files); err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
	}

	router := handler.Router(handler.New(db, nil), handler.RouterConfig{
		Lang:           lang,
		AllowedOrigins: v.GetStringSlice("cors-origins"),
		RequestLog:     v.GetBool("request-log"),
	})

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "db", v.GetString("db"), "lang", lang)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runTake(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg := model.ExamConfig{
		BankID:        v.GetInt64("bank"),
		Lang:          v.GetString("lang"),
		Explain:       v.GetBool("explain"),
		PromptVariant: strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant"))),
	}
	if err := appI18n.Init(cfg.Lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = appI18n.WithLang(ctx, cfg.Lang)

	var ex explainer
	if cfg.Explain {
		if !prompts.IsValidVariant(cfg.PromptVariant) {
			slog.Warn("invalid prompt-variant, using brief", "variant", cfg.PromptVariant)
			cfg.PromptVariant = string(prompts.PromptBrief)
		}
		client := llm.New(v.GetString("llm-url"), v.GetString("llm-key"), v.GetString("llm-model"), cfg.PromptVariant)
		if err := client.Ping(ctx); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
		ex = client
	}

	api := bankapi.New(v.GetString("server"), bankapi.WithLanguage(cfg.Lang))
	session := exam.New(api, cfg.BankID)
	slog.Debug("starting exam", "session", session.ID(), "bank_id", cfg.BankID, "explain", cfg.Explain)

	return newTerminal(session, cmd.OutOrStdout(), ex).run(ctx, cmd.InOrStdin())
}

func runBanks(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	ctx := context.Background()
	api := bankapi.New(v.GetString("server"), bankapi.WithLanguage(v.GetString("lang")))

	var (
		banks []model.QuizBank
		err   error
	)
	if kw := v.GetString("search"); kw != "" {
		banks, err = api.SearchBanks(ctx, model.QuizBankSearch{Name: kw})
	} else {
		banks, err = api.ListBanks(ctx)
	}
	if err != nil {
		return fmt.Errorf("list banks: %w", err)
	}
	return printBanks(cmd.OutOrStdout(), banks)
}

func printBanks(w io.Writer, banks []model.QuizBank) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
	for _, b := range banks {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", b.ID, b.Name, b.Description)
	}
	return tw.Flush()
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	im := importer.New(db, nil)
	bankName := v.GetString("bank-name")
	for _, path := range args {
		res, err := im.ImportFile(path, bankName)
		if err != nil {
			return err
		}
		if res.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: skipped\n", path)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d questions into bank %d (%s)\n", path, res.Imported, res.Bank.ID, res.Bank.Name)
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	bankID := v.GetInt64("bank")
	if _, err := db.GetBank(bankID); err != nil {
		return fmt.Errorf("bank %d: %w", bankID, err)
	}
	questions, err := db.QuestionsForBank(bankID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := importer.WriteXLSX(w, questions); err != nil {
		return err
	}
	slog.Info("exported quiz bank", "bank_id", bankID, "questions", len(questions), "output", outPath)
	return nil
}

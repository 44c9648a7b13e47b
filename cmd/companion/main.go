// Companion - real-time multilingual voice support sessions
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-companion/internal/app"
	"github.com/teslashibe/go-companion/internal/config"
	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/language"
	"github.com/teslashibe/go-companion/pkg/web"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Multilingual voice companion session engine",
	Long: `Companion runs real-time voice support sessions: speech in, a reply in
the speaker's language out, over a live call.

Configuration:
  1. --config flag (explicit path)
  2. ./companion.yaml (current directory)
  3. COMPANION_* environment variables and a local .env file

Environment Variables:
  OPENAI_API_KEY      - LLM, Whisper and OpenAI voices
  ELEVENLABS_API_KEY  - ElevenLabs voices
  GOOGLE_API_KEY      - Google speech services
  STRIPE_SECRET_KEY   - Subscription gate
  DATABASE_URL        - Postgres checkpoints
  JWT_SECRET          - API authentication`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the session API",
	RunE:  runServe,
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages",
	RunE:  runLanguages,
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue an API token for a user (requires a JWT secret)",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

var tokenTTL time.Duration

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./companion.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(talkCmd)
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.Init(cfg.Log.Level, cfg.Log.Format)

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		a.Shutdown()
		return fmt.Errorf("initialization failed: %w", err)
	}
	runErr := a.Run(ctx)
	if err := a.Shutdown(); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	return runErr
}

func runLanguages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tLOCALE\tGREETING")
	for _, code := range cfg.Language.Supported {
		code = language.Normalize(code)
		info, ok := language.Lookup(code)
		if !ok {
			info = language.Info{Code: code, Name: code}
		}
		marker := ""
		if code == language.Normalize(cfg.Language.Default) {
			marker = "*"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\n", code, marker, info.Name, language.Locale(code), info.Greeting)
	}
	return w.Flush()
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Server.JWTSecret == "" {
		return fmt.Errorf("no JWT secret configured (set JWT_SECRET)")
	}
	token, err := web.IssueToken(cfg.Server.JWTSecret, args[0], tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

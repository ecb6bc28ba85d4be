package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	progressbar "github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	// Filtering
	excludePatterns string
	allowedFormats  string
	languagesFile   string
	maxSizeBytes    int64
	noIgnore        bool

	// Budget / transforms
	tokenLimit     int
	removeComments bool
	minifyCode     bool

	// Remote
	githubToken string

	// Output
	outputFile      string
	copyToClipboard bool
	pdfOutputFile   string

	// Exact token reporting
	exactTokens    bool
	tokenizerType  string
	tokenizerModel string
	tokenizerFile  string

	// Run control
	runTimeout      time.Duration
	interactiveMode bool
	verboseLogging  bool
)

// version is set via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "promptpack [PATHS|URLS...]",
	Short: "promptpack folds a source tree into one prompt-sized text artifact.",
	Long: `promptpack aggregates local directories, GitHub repositories, git remotes,
and web pages into a single bounded text artifact ready to paste into an AI
chat context window. Files are filtered, optionally stripped of comments and
minified, and concatenated until the token budget runs out.`,
	Version: version,
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return run(args)
	},
}

func run(args []string) error {
	logger, err := newLogger(viper.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	inputs := args
	if viper.GetBool("interactive") {
		selected, pickErr := runInteractiveFinder(cfg)
		if pickErr != nil {
			return pickErr
		}
		if selected == nil {
			return nil // user backed out
		}
		inputs = selected
	}
	if len(inputs) == 0 {
		inputs = []string{"."}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	agg := newAggregator(cfg.TokenBudget)

	var tempDirs []string
	defer func() {
		for _, dir := range tempDirs {
			_ = os.RemoveAll(dir)
		}
	}()

	for _, input := range inputs {
		if agg.Truncated() {
			break
		}
		runErr := aggregateInput(ctx, input, cfg, agg, &tempDirs, logger)
		if runErr == nil {
			continue
		}
		// Run-level outcomes abort the whole run; nothing partial is
		// presented as success.
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return fmt.Errorf("run exceeded the %s timeout; processing state discarded", viper.GetDuration("timeout"))
		case errors.Is(runErr, ErrCancelled) || errors.Is(ctx.Err(), context.Canceled):
			return ErrCancelled
		case errors.Is(runErr, ErrNotFound) || errors.Is(runErr, ErrInvalidReference):
			return runErr
		default:
			// Anything else costs one input, not the run.
			logger.Warn("input failed, continuing", zap.String("input", input), zap.Error(runErr))
		}
	}

	result := agg.Result()
	if result.Empty() {
		fmt.Fprintln(os.Stderr, "No files matched the current filters; nothing to aggregate.")
		return nil
	}

	exact := -1
	if viper.GetBool("exact_tokens") {
		tokenizer, tkErr := newTokenizer(viper.GetString("tokenizer"), viper.GetString("model"), viper.GetString("tokenizer_file"), logger)
		if tkErr != nil {
			logger.Warn("exact token counting disabled", zap.Error(tkErr))
		} else {
			exact = tokenizer.CountTokens(result.Content)
			tokenizer.Close()
		}
	}

	if pdfPath := viper.GetString("pdf"); pdfPath != "" {
		if err := generatePDF(agg.Fragments(), result, pdfPath); err != nil {
			return fmt.Errorf("generate PDF: %w", err)
		}
		fmt.Fprintf(os.Stderr, "PDF saved to %s\n", pdfPath)
	} else {
		if err := deliverOutput(result.Content, viper.GetString("file"), viper.GetBool("clipboard")); err != nil {
			return err
		}
	}

	fmt.Fprint(os.Stderr, renderSummary(result, exact))
	return nil
}

// aggregateInput routes one input to the right source: GitHub reference, git
// remote, web page, or local path. All sources share the one aggregator.
func aggregateInput(ctx context.Context, input string, cfg *ProcessConfig, agg *Aggregator, tempDirs *[]string, logger *zap.Logger) error {
	switch {
	case isGitHubURL(input):
		ref, err := parseGitHubURL(input)
		if err != nil {
			return err
		}
		fetcher := newGitHubFetcher(cfg.Credential, logger)
		fetcher.progress = newProgressReporter()
		return fetcher.Fetch(ctx, ref, cfg, agg)

	case isGitURL(input):
		tempDir, err := cloneGitRepo(ctx, input, logger)
		if err != nil {
			return err
		}
		*tempDirs = append(*tempDirs, tempDir)
		return newLocalSource(os.DirFS(tempDir), cfg, !viper.GetBool("no_ignore"), logger).Run(ctx, agg)

	case isWebURL(input):
		return fetchWebPage(ctx, input, cfg, agg, logger)

	default:
		return aggregateLocalPath(ctx, input, cfg, agg, logger)
	}
}

// aggregateLocalPath handles a directory (walked) or a single file (added
// directly, still subject to the size and extension rules).
func aggregateLocalPath(ctx context.Context, path string, cfg *ProcessConfig, agg *Aggregator, logger *zap.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("access %s: %w", path, err)
	}

	if info.IsDir() {
		return newLocalSource(os.DirFS(path), cfg, !viper.GetBool("no_ignore"), logger).Run(ctx, agg)
	}

	name := filepath.ToSlash(filepath.Clean(path))
	if !cfg.allowsFile(name, info.Size()) {
		logger.Debug("filtered out", zap.String("path", name))
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("cannot read file, skipping", zap.String("path", path), zap.Error(err))
		return nil
	}
	addFileFragment(name, raw, cfg, agg)
	return nil
}

// buildConfig assembles the per-run configuration from the final
// flag/config/env values viper resolved.
func buildConfig() (*ProcessConfig, error) {
	allowed := parseFormats(viper.GetString("formats"))
	if langs := viper.GetString("langs"); langs != "" && allowed == nil {
		loaded, err := loadAllowedExtensions(langs)
		if err != nil {
			return nil, err
		}
		allowed = loaded
	}

	return &ProcessConfig{
		AllowedExtensions: allowed,
		SkipPatterns:      parsePatterns(viper.GetString("exclude")),
		MaxFileSize:       viper.GetInt64("max_size"),
		TokenBudget:       viper.GetInt("token_limit"),
		StripComments:     viper.GetBool("remove_comments"),
		Minify:            viper.GetBool("minify"),
		Credential:        viper.GetString("github_token"),
	}, nil
}

// newProgressReporter adapts the fetcher's (done, total) callback to a
// stderr progress bar.
func newProgressReporter() func(done, total int) {
	var bar *progressbar.ProgressBar
	last := 0
	return func(done, total int) {
		if bar == nil {
			if total == 0 {
				return
			}
			bar = progressbar.NewOptions(total, progressbar.OptionSetWriter(os.Stderr))
		}
		if done > last {
			_ = bar.Add(done - last)
			last = done
		}
		if done >= total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Filtering
	rootCmd.Flags().StringVarP(&excludePatterns, "exclude", "e", "", "Additional skip patterns (comma-separated globs)")
	rootCmd.Flags().StringVar(&allowedFormats, "formats", "", "Allowed file extensions (comma- or newline-separated; empty accepts all)")
	rootCmd.Flags().StringVar(&languagesFile, "langs", "", "linguist-style languages.yml whose extensions form the allow list")
	rootCmd.Flags().Int64VarP(&maxSizeBytes, "max-size", "s", 10485760, "Maximum file size in bytes (0 for no limit)")
	rootCmd.Flags().BoolVar(&noIgnore, "no-ignore", false, "Don't respect .gitignore files")

	// Budget / transforms
	rootCmd.Flags().IntVar(&tokenLimit, "token-limit", UnlimitedTokens, "Stop once the estimated token count reaches this (-1 for unlimited)")
	rootCmd.Flags().BoolVar(&removeComments, "remove-comments", false, "Strip comments from file contents")
	rootCmd.Flags().BoolVar(&minifyCode, "minify", false, "Collapse whitespace in file contents")

	// Remote
	rootCmd.Flags().StringVar(&githubToken, "github-token", "", "GitHub API token (raises the rate limit)")

	// Output
	rootCmd.Flags().StringVarP(&outputFile, "file", "f", "", "Save output to the given file")
	rootCmd.Flags().BoolVarP(&copyToClipboard, "clipboard", "c", false, "Copy output to the clipboard")
	rootCmd.Flags().StringVar(&pdfOutputFile, "pdf", "", "Save output as a syntax-highlighted PDF")

	// Exact token reporting
	rootCmd.Flags().BoolVar(&exactTokens, "exact-tokens", false, "Additionally report an exact token count")
	rootCmd.Flags().StringVar(&tokenizerType, "tokenizer", "tiktoken", "Exact tokenizer: tiktoken or huggingface")
	rootCmd.Flags().StringVar(&tokenizerModel, "model", "", "Model name for the exact tokenizer (e.g. gpt-4o, gpt2)")
	rootCmd.Flags().StringVar(&tokenizerFile, "tokenizer-file", "", "Path to a local tokenizer file")

	// Run control
	rootCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "Wall-clock ceiling for the whole run (0 disables)")
	rootCmd.Flags().BoolVar(&interactiveMode, "interactive", false, "Pick local roots with a fuzzy finder")
	rootCmd.Flags().BoolVarP(&verboseLogging, "verbose", "v", false, "Verbose logging (shows per-file skip decisions)")

	for flag, key := range map[string]string{
		"exclude":         "exclude",
		"formats":         "formats",
		"langs":           "langs",
		"max-size":        "max_size",
		"no-ignore":       "no_ignore",
		"token-limit":     "token_limit",
		"remove-comments": "remove_comments",
		"minify":          "minify",
		"github-token":    "github_token",
		"file":            "file",
		"clipboard":       "clipboard",
		"pdf":             "pdf",
		"exact-tokens":    "exact_tokens",
		"tokenizer":       "tokenizer",
		"model":           "model",
		"tokenizer-file":  "tokenizer_file",
		"timeout":         "timeout",
		"interactive":     "interactive",
		"verbose":         "verbose",
	} {
		viper.BindPFlag(key, rootCmd.Flags().Lookup(flag))
	}
}

// initConfig reads the config file and PROMPTPACK_* environment variables.
func initConfig() {
	home, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "promptpack"))
	}
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.SetEnvPrefix("PROMPTPACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, ErrCancelled) {
			fmt.Fprintln(os.Stderr, "Aborted.")
			os.Exit(130)
		}
		os.Exit(1)
	}
}

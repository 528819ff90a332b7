package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/imdouglasoliveira/DownMeets/internal/app"
	"github.com/imdouglasoliveira/DownMeets/internal/config"
	"github.com/imdouglasoliveira/DownMeets/internal/domain"
	"github.com/imdouglasoliveira/DownMeets/internal/utils"
	"github.com/imdouglasoliveira/DownMeets/pkg/version"
)

var (
	cfgFile string
	verbose bool
	log     *utils.Logger

	// Dependencies for testing
	execLookPath = exec.LookPath
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "downmeets [url]",
	Short: "Download Meet recordings from Google Drive",
	Long: `DownMeets downloads Meet recordings from Google Drive share links,
including view-only files where the download button is disabled.

Given a single URL it downloads that recording. With no arguments it
reads URLs from a file (urls.txt by default) and downloads them in
sequence, spacing requests to stay under the rate limits.`,
	Version: version.Short(),
	Args:    cobra.MaximumNArgs(1),
	RunE:    run,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.downmeets/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", config.DefaultOutputDir, "Output directory")
	rootCmd.PersistentFlags().StringP("urls-file", "f", config.DefaultURLFile, "File with one share URL per line")
	rootCmd.PersistentFlags().Duration("delay", config.DefaultDelay, "Delay between batch downloads")
	rootCmd.PersistentFlags().Duration("timeout", config.DefaultTimeout, "Request timeout")
	rootCmd.PersistentFlags().Int("max-retries", config.DefaultMaxRetries, "Max retries for transient failures")
	rootCmd.PersistentFlags().Bool("force", false, "Re-download files that already exist")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable the resolved-URL cache")
	rootCmd.PersistentFlags().Duration("cache-ttl", config.DefaultCacheTTL, "Cache TTL")
	rootCmd.PersistentFlags().String("user-agent", "", "Custom User-Agent")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress the progress bar")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	_ = viper.BindPFlag("output.directory", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("output.overwrite", rootCmd.PersistentFlags().Lookup("force"))
	_ = viper.BindPFlag("download.url_file", rootCmd.PersistentFlags().Lookup("urls-file"))
	_ = viper.BindPFlag("download.delay", rootCmd.PersistentFlags().Lookup("delay"))
	_ = viper.BindPFlag("download.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("download.max_retries", rootCmd.PersistentFlags().Lookup("max-retries"))
	_ = viper.BindPFlag("cache.ttl", rootCmd.PersistentFlags().Lookup("cache-ttl"))
	_ = viper.BindPFlag("stealth.user_agent", rootCmd.PersistentFlags().Lookup("user-agent"))

	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logLevel := "info"
	if verbose {
		logLevel = "debug"
	}
	log = utils.NewLogger(utils.LoggerOptions{
		Level:   logLevel,
		Format:  "pretty",
		Verbose: verbose,
	})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	if noCache {
		cfg.Cache.Enabled = false
	}
	force, _ := cmd.Flags().GetBool("force")
	quiet, _ := cmd.Flags().GetBool("quiet")

	var progress domain.ProgressSink = utils.NewBarSink()
	if quiet {
		progress = utils.NopSink{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down gracefully...")
		cancel()
	}()

	orchestrator, err := app.NewOrchestrator(app.OrchestratorOptions{
		Config:   cfg,
		Logger:   log,
		Progress: progress,
		Force:    force,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	defer orchestrator.Close()

	if len(args) == 1 {
		return runSingle(ctx, orchestrator, args[0])
	}
	return runBatch(ctx, orchestrator, cfg.Download.URLFile)
}

func runSingle(ctx context.Context, orchestrator *app.Orchestrator, url string) error {
	result, err := orchestrator.DownloadOne(ctx, url)
	if err != nil {
		return err
	}
	if !result.Succeeded() {
		return fmt.Errorf("download failed: %w", result.Err)
	}

	log.Info().Str("path", result.Path).Msg("saved recording")
	return nil
}

func runBatch(ctx context.Context, orchestrator *app.Orchestrator, urlFile string) error {
	summary, err := orchestrator.DownloadBatch(ctx, urlFile)
	if err != nil {
		return err
	}

	log.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("batch complete")

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", summary.Failed, summary.Total)
	}
	return nil
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system dependencies",
	Long:  "Verifies that all system dependencies are properly installed and configured.",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Checking system dependencies...")
		allPassed := true

		// Check 1: Internet connection
		fmt.Print("  Internet connection: ")
		if checkInternet() {
			fmt.Println("OK")
		} else {
			fmt.Println("FAILED")
			allPassed = false
		}

		// Check 2: yt-dlp binary
		fmt.Print("  yt-dlp: ")
		if path := checkYtdlp(cmd.Context()); path != "" {
			fmt.Printf("OK (%s)\n", path)
		} else {
			fmt.Println("NOT FOUND (specialized extraction will be unavailable)")
		}

		// Check 3: Write permissions for output dir
		fmt.Print("  Write permissions: ")
		if checkWritePermissions() {
			fmt.Println("OK")
		} else {
			fmt.Println("FAILED")
			allPassed = false
		}

		// Check 4: Config file
		fmt.Print("  Config file: ")
		_, err := config.Load()
		if err != nil {
			fmt.Printf("WARN (%v)\n", err)
		} else {
			fmt.Println("OK")
		}

		// Check 5: Cache directory
		fmt.Print("  Cache directory: ")
		cacheDir := config.CacheDir()
		if checkCacheDir(cacheDir) {
			fmt.Printf("OK (%s)\n", cacheDir)
		} else {
			fmt.Println("WARN (will be created on first use)")
		}

		fmt.Println()
		if allPassed {
			fmt.Println("All critical checks passed!")
		} else {
			fmt.Println("Some checks failed. Please resolve the issues above.")
		}
		return nil
	},
}

// checkInternet checks if there's an internet connection
func checkInternet() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "https://www.google.com", nil)
	if err != nil {
		return false
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

// checkYtdlp locates the yt-dlp binary, downloading it when missing.
func checkYtdlp(ctx context.Context) string {
	if path, err := execLookPath("yt-dlp"); err == nil {
		return path
	}

	if ctx == nil {
		ctx = context.Background()
	}
	installed, err := ytdlp.Install(ctx, nil)
	if err != nil || installed == nil {
		return ""
	}
	return installed.Executable
}

// checkWritePermissions checks if we can write to the current directory
func checkWritePermissions() bool {
	tmpFile := ".downmeets_test_write"
	f, err := os.Create(tmpFile)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(tmpFile)
	return true
}

// checkCacheDir checks if the cache directory exists or can be created
func checkCacheDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}

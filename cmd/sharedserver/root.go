package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/config"
	"github.com/georgeharker/sharedserver/internal/exitcodes"
	ui "github.com/georgeharker/sharedserver/internal/ui"
	"github.com/georgeharker/sharedserver/internal/update"
)

// Version information - set via -ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// updateCheckResult stores the result of the background update check,
// read by PersistentPostRun once the command has finished.
var (
	updateCheckResult *update.CheckResult
	updateCheckMu     sync.Mutex
)

var rootCmd = &cobra.Command{
	Use:   "sharedserver",
	Short: "Supervise long-running shared child server processes",
	Long: "sharedserver supervises long-running child server processes shared by " +
		"multiple clients, tracking each one through a pair of lockfiles instead " +
		"of a resident daemon.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.InitGlobal(ui.Config{
			NoColor: flagNoColor,
			NoEmoji: flagNoEmoji,
			Verbose: flagVerbose,
			Quiet:   flagQuiet,
			Debug:   flagDebug,
		})

		if !shouldSkipUpdateCheck(cmd) {
			go checkForUpdateBackground()
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		updateCheckMu.Lock()
		result := updateCheckResult
		updateCheckMu.Unlock()
		if !shouldSkipUpdateCheck(cmd) && result != nil && result.UpdateAvailable {
			showUpdateNotification(result.LatestVersion)
		}
	},
}

var (
	flagOutput  string
	flagVerbose bool
	flagQuiet   bool
	flagDebug   bool
	flagNoColor bool
	flagNoEmoji bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "Output format: json|text")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet mode: minimal output")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Debug output: extra diagnostic logs")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	rootCmd.PersistentFlags().BoolVar(&flagNoEmoji, "no-emoji", false, "Disable emoji output")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		// Help runs before PersistentPreRun, so configure colors by hand.
		c := ui.NewColorConfig()
		c.Enabled = c.Enabled && !flagNoColor
		c.EmojiEnabled = c.EmojiEnabled && !flagNoEmoji
		w := os.Stdout

		const cmdWidth = 28

		fmt.Fprintln(w, c.Header(" sharedserver "))
		fmt.Fprintln(w, c.Description("Supervise shared long-running server processes via lockfiles."))
		fmt.Fprintln(w, c.Separator(50))
		fmt.Fprintln(w)

		printGroup := func(title string, rows [][2]string) {
			fmt.Fprintln(w, c.SubHeader(title))
			for _, row := range rows {
				cmdCol := c.Command(row[0])
				pad := cmdWidth - len(row[0])
				if pad < 1 {
					pad = 1
				}
				fmt.Fprintf(w, "  %s%s%s\n", cmdCol, strings.Repeat(" ", pad), c.Description(row[1]))
			}
			fmt.Fprintln(w)
		}

		printGroup("Client Commands", [][2]string{
			{"use NAME -- CMD", "start-or-attach: start if stopped, else incref"},
			{"unuse NAME", "detach (decref); idempotent if already in grace"},
			{"list", "list known servers and their state"},
			{"info NAME", "show a server's full record"},
			{"check NAME", "print state, exit 0/1/2 for active/grace/stopped"},
		})

		printGroup("Admin Commands", [][2]string{
			{"admin start NAME -- CMD", "start a server with no attached client"},
			{"admin stop NAME", "gracefully stop, --force to escalate to SIGKILL"},
			{"admin kill NAME", "immediately SIGKILL server and watcher"},
			{"admin incref NAME", "attach a client PID directly"},
			{"admin decref NAME", "detach a client PID directly"},
			{"admin debug NAME", "interactive live view of a server's state"},
			{"admin doctor [NAME]", "check and repair lockfile/process consistency"},
		})

		printGroup("Utilities", [][2]string{
			{"completion SHELL", "generate shell completion script"},
			{"version", "print version information"},
		})

		fmt.Fprintln(w, c.Description("Use \"sharedserver [command] --help\" for more information about a command."))
	})
}

// shouldSkipUpdateCheck returns true for commands where an update
// notification would be disruptive or nonsensical.
func shouldSkipUpdateCheck(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "version", "completion", "__watcher-exec", "check":
		return true
	}
	return false
}

// checkForUpdateBackground performs a non-blocking update check, using the
// on-disk cache to avoid a network round trip on every invocation.
func checkForUpdateBackground() {
	cfg := config.Load()
	if cfg.DisableUpdateCheck {
		return
	}

	cacheDir := cfg.LogDir
	if cacheDir == "" {
		cacheDir, _ = os.UserCacheDir()
	}

	cache, err := update.LoadCache(cacheDir)
	if err == nil && update.IsCacheValid(cache) {
		if cache.UpdateAvailable && update.IsNewerVersion(Version, cache.LatestVersion) {
			updateCheckMu.Lock()
			updateCheckResult = &update.CheckResult{
				CurrentVersion:  strings.TrimPrefix(Version, "v"),
				LatestVersion:   cache.LatestVersion,
				UpdateAvailable: true,
			}
			updateCheckMu.Unlock()
		}
		return
	}

	updater, err := update.NewUpdater(Version)
	if err != nil {
		return
	}
	result, err := updater.Check()
	if err != nil {
		return
	}

	_ = update.SaveCache(cacheDir, &update.CacheEntry{
		CheckedAt:       time.Now(),
		LatestVersion:   result.LatestVersion,
		UpdateAvailable: result.UpdateAvailable,
	})

	if result.UpdateAvailable {
		updateCheckMu.Lock()
		updateCheckResult = result
		updateCheckMu.Unlock()
	}
}

// showUpdateNotification prints a colored banner once a command completes.
func showUpdateNotification(latestVersion string) {
	if flagOutput == "json" || flagQuiet {
		return
	}

	c := ui.NewColorConfig()
	c.Enabled = c.Enabled && !flagNoColor

	fmt.Println()
	fmt.Println(c.Warning("─────────────────────────────────────────────────────────────"))
	fmt.Printf(c.Warning("  Update available: %s -> %s\n"), Version, latestVersion)
	fmt.Println(c.Info("  Reinstall the sharedserver binary to upgrade."))
	fmt.Println(c.Warning("─────────────────────────────────────────────────────────────"))
}

// Execute runs the root command and translates any returned error into a
// stderr message and the appropriate process exit code.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code := exitcodes.CodeForError(err)
		if code == exitcodes.Success {
			code = exitcodes.GeneralError
		}
		if msg := err.Error(); msg != "" {
			c := ui.NewColorConfig()
			c.Enabled = c.Enabled && !flagNoColor
			fmt.Fprintln(os.Stderr, c.Error(msg))
		}
		os.Exit(code)
	}
}

// Package main provides the entry point for the selah CLI application.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/selahapp/selah/internal/bible"
	"github.com/selahapp/selah/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	width      uint
	mouse      bool
	voice      string
	dataDir    string

	rootCmd = &cobra.Command{
		Use:   "selah [BOOK] [CHAPTER]",
		Short: "Study Scripture in its original languages, with audio",
		Long: paragraph(
			fmt.Sprintf("\nRead any chapter in a fresh translation alongside its %s text, hear it pronounced, and study its words.", keyword("Hebrew or Greek")),
		),
		Example:          "selah\nselah Genesis\nselah John 3",
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(2),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	voice = viper.GetString("voice")
	dataDir = viper.GetString("datadir")

	if voice == "" {
		voice = "Kore"
	}

	if dataDir == "" {
		scope := gap.NewScope(gap.User, "selah")
		dirs, err := scope.DataDirs()
		if err != nil || len(dirs) == 0 {
			return fmt.Errorf("could not determine data directory: %w", err)
		}
		dataDir = filepath.Join(dirs[0], "tracker")
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") {
		if isTerminal := term.IsTerminal(int(os.Stdout.Fd())); isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}
			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func execute(_ *cobra.Command, args []string) error {
	var book string
	chapter := 0

	if len(args) > 0 {
		b, err := bible.Find(args[0])
		if err != nil {
			return err
		}
		book = b.Name
		if len(args) > 1 {
			c, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid chapter %q", args[1])
			}
			if c < 1 || c > b.Chapters {
				return fmt.Errorf("%s has %d chapters", b.Name, b.Chapters)
			}
			chapter = c
		}
	}

	return runTUI(book, chapter)
}

func runTUI(book string, chapter int) error {
	// Read environment to get the API key and debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Book = book
	cfg.Chapter = chapter
	cfg.GlamourMaxWidth = width
	cfg.EnableMouse = mouse
	cfg.Voice = voice
	cfg.DataDir = dataDir
	if cfg.GlamourStyle == "" {
		cfg.GlamourStyle = "auto"
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("could not create data directory: %w", err)
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to auto-detect)")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")
	rootCmd.Flags().StringVar(&voice, "voice", "", "TTS voice for pronunciation audio")
	rootCmd.Flags().StringVar(&dataDir, "datadir", "", "directory for the reading tracker database")

	// Config bindings
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("datadir", rootCmd.Flags().Lookup("datadir"))

	viper.SetDefault("width", 0)
	viper.SetDefault("voice", "Kore")

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "selah")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "selah")}, dirs...)
	}

	if c := os.Getenv("SELAH_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("selah")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("selah")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "selah.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}

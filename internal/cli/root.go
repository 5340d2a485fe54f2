package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shouni/go-collage-kit/pkg/config"
	"github.com/shouni/go-collage-kit/pkg/source"
	"github.com/shouni/go-collage-kit/pkg/tui"
)

var (
	// Global flags
	configPath string

	// root flags
	pickDir string

	cfg config.Config
)

// rootCmd は TUI を起動するルートコマンドです。
var rootCmd = &cobra.Command{
	Use:     "collage",
	Version: "dev",
	Short:   "Build photo collages from landscape pictures",
	Long: `collage builds a collage from up to six landscape photos and saves it
to the photo library.

Without a subcommand it opens the terminal UI. Press a to pick photos from
--dir, s to save and c to clear.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/collage/config.toml)")
	rootCmd.Flags().StringVar(&pickDir, "dir", ".", "directory the photo picker lists")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(libraryCmd)
}

// SetVersion はバージョン表示を設定します。
func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute はルートコマンドを実行します。SIGINT/SIGTERM でコンテキストがキャンセルされます。
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	closeLog, err := setupFileLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	stopMetrics := serveMetrics(ctx, cfg.Metrics.Addr, registry)
	defer stopMetrics()

	dir, err := filepath.Abs(pickDir)
	if err != nil {
		return fmt.Errorf("resolve picker directory: %w", err)
	}

	d := tui.NewProgramDispatcher()
	reader := source.NewDirReader(dir)
	loader, err := newLoader(cfg.Source, reader)
	if err != nil {
		return err
	}
	model, err := tui.NewModel(ctx, d, tui.Options{Dir: dir, Lister: reader, Loader: loader})
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, model.Prompter())
	if err != nil {
		return err
	}
	defer st.Close()

	ctrl, err := newController(d, st, model)
	if err != nil {
		return err
	}
	model.SetController(ctrl)

	slog.InfoContext(ctx, "TUI を起動します", "dir", dir, "backend", cfg.Store.Backend)
	return tui.Run(model, d)
}

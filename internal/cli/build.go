package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shouni/go-collage-kit/pkg/app"
	"github.com/shouni/go-collage-kit/pkg/domain"
	"github.com/shouni/go-collage-kit/pkg/imgutil"
	"github.com/shouni/go-collage-kit/pkg/loop"
	"github.com/shouni/go-collage-kit/pkg/photolib"
	"github.com/shouni/go-collage-kit/pkg/selection"
	"github.com/shouni/go-collage-kit/pkg/source"
)

var (
	buildSave bool
	buildOut  string
)

var buildCmd = &cobra.Command{
	Use:   "build <ref>...",
	Short: "Build a collage from files or URLs without the terminal UI",
	Long: `Run the photo selection pipeline over the given references in order.

References are local paths or http(s) URLs. Portrait and square photos are
skipped, as are photos that look identical to one already picked. At most six
photos are used.

Use --out to write the collage as JPEG and --save to store it in the photo
library. A collage is only saved when it holds an even number of photos.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setupStderrLogger(cmd.ErrOrStderr(), cfg.Log)
		ctx := cmd.Context()

		stopMetrics := serveMetrics(ctx, cfg.Metrics.Addr, registry)
		defer stopMetrics()

		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		loader, err := newLoader(cfg.Source, source.NewDirReader(wd))
		if err != nil {
			return err
		}
		st, err := openStore(ctx, cfg, stdinPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		defer st.Close()

		l := loop.New()
		go func() { _ = l.Run(ctx) }()
		defer l.Close()

		messages := make(chan string, 4)
		notifier := app.NotifierFunc(func(title, description string) {
			text := title
			if description != "" {
				text += ": " + description
			}
			messages <- text
		})
		ctrl, err := newController(l, st, notifier)
		if err != nil {
			return err
		}
		defer func() { _ = loop.Await(context.Background(), l, ctrl.Close) }()

		summary, err := runSelection(ctx, l, ctrl, func(ctx context.Context) <-chan domain.Image {
			return loader.Stream(ctx, args)
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "selected %d of %d (%d not landscape, %d duplicate)\n",
			summary.Accepted, summary.Offered, summary.RejectedOrientation, summary.RejectedDuplicate)
		if summary.Reason == selection.EndAccessDenied {
			return errors.New(app.MessageNoAccess)
		}

		if buildOut != "" {
			if err := writePreview(ctx, l, ctrl, buildOut); err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %s\n", buildOut)
		}

		if buildSave {
			var saveErr error
			if err := loop.Await(ctx, l, func() { saveErr = ctrl.Save(ctx) }); err != nil {
				return err
			}
			if saveErr != nil {
				return fmt.Errorf("save collage: %w", saveErr)
			}
			select {
			case msg := <-messages:
				fmt.Fprintln(out, msg)
				if strings.HasPrefix(msg, app.MessageError) {
					return errors.New(msg)
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildSave, "save", false, "save the collage to the photo library")
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "write the collage as JPEG to this path")
}

// runSelection は所有ループ上で選択セッションを開始し、終了まで待ちます。
func runSelection(ctx context.Context, l *loop.Loop, ctrl *app.Controller, picker app.Picker) (selection.Summary, error) {
	done := make(chan selection.Summary, 1)
	var addErr error
	if err := loop.Await(ctx, l, func() {
		ctrl.Start(nil, nil)
		addErr = ctrl.Add(ctx, picker, func(sum selection.Summary) { done <- sum })
	}); err != nil {
		return selection.Summary{}, err
	}
	if addErr != nil {
		return selection.Summary{}, addErr
	}
	select {
	case sum := <-done:
		slog.InfoContext(ctx, "選択が終了しました", "reason", sum.Reason, "accepted", sum.Accepted)
		return sum, nil
	case <-ctx.Done():
		return selection.Summary{}, ctx.Err()
	}
}

func writePreview(ctx context.Context, l *loop.Loop, ctrl *app.Controller, path string) error {
	var data []byte
	var encErr error
	if err := loop.Await(ctx, l, func() {
		preview := ctrl.Preview()
		if preview == nil {
			encErr = app.ErrNoPreview
			return
		}
		data, encErr = imgutil.EncodeJPEG(preview, cfg.Collage.JPEGQuality)
	}); err != nil {
		return err
	}
	if encErr != nil {
		return fmt.Errorf("render collage: %w", encErr)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write collage: %w", err)
	}
	return nil
}

// stdinPrompter は端末で許可を尋ねます。y 以外は拒否として扱います。
func stdinPrompter(in io.Reader, out io.Writer) photolib.Prompter {
	return photolib.PromptFunc(func(ctx context.Context) (bool, error) {
		fmt.Fprint(out, "Allow access to your photo library? [y/N] ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("read answer: %w", err)
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	})
}

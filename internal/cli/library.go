package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-collage-kit/pkg/access"
	"github.com/shouni/go-collage-kit/pkg/app"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List collages saved to the photo library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupStderrLogger(cmd.ErrOrStderr(), cfg.Log)
		ctx := cmd.Context()

		lib, err := openLibrary(cfg.Library, stdinPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		defer lib.Close()

		gate, err := access.NewGate(lib)
		if err != nil {
			return err
		}
		if !access.Resolve(ctx, gate.CheckAccess(ctx)) {
			return errors.New(app.MessageNoAccess)
		}

		assets, err := lib.List(ctx)
		if err != nil {
			return err
		}
		if len(assets) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no saved collages")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSIZE\tBYTES\tCREATED")
		for _, a := range assets {
			fmt.Fprintf(w, "%s\t%dx%d\t%d\t%s\n", a.ID, a.Width, a.Height, a.ByteSize, a.CreatedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	},
}

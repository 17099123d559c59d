package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amit-mskl/sql-playground/internal/download"
	"github.com/spf13/cobra"
)

// NewDownloadCommand creates the download command.
func NewDownloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [diagram|prompts|all]",
		Short: "Download the practice database diagram or starter prompts",
		Long: `Download the GlobalMart E-R diagram, the starter prompts, or both.

Files are written to the download directory (--download-dir). An existing
file is never overwritten; a numbered copy is created instead.`,
		Example: `  # Save the E-R diagram in the current directory
  sqlarena download diagram

  # Save both resources into ~/Downloads
  sqlarena download all --download-dir ~/Downloads`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"diagram", "prompts", "all"},
		RunE:      runDownload,
	}
	return cmd
}

func runDownload(cmd *cobra.Command, args []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	what := "all"
	if len(args) > 0 {
		what = args[0]
	}
	return downloadAssets(cmd.Context(), cmdCtx, what)
}

// downloadAssets saves the named asset ("all" for every asset) and reports
// each written path. The returned error carries the user-facing alert.
func downloadAssets(ctx context.Context, cmdCtx *CommandContext, what string) error {
	u, err := cmdCtx.RequireUser()
	if err != nil {
		return err
	}
	catalog := download.Catalog(cmdCtx.Cfg.Assets.Diagram, cmdCtx.Cfg.Assets.Prompts)

	what = strings.ToLower(strings.TrimSpace(what))
	var assets []download.Asset
	switch what {
	case "", "all":
		assets = catalog
	default:
		a, ok := download.Find(catalog, what)
		if !ok {
			return fmt.Errorf("unknown resource %q (expected diagram, prompts or all)", what)
		}
		assets = []download.Asset{a}
	}

	paths, err := cmdCtx.Downloader.DownloadAll(ctx, assets, u.Identity())
	for _, p := range paths {
		if p != "" {
			cmdCtx.Renderer.Success("Saved " + p)
		}
	}
	if err != nil {
		var dlErr *download.Error
		if errors.As(err, &dlErr) {
			return errors.New(dlErr.Error())
		}
		return err
	}
	return nil
}

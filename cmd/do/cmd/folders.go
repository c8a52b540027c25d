package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/templui/photowall/internal/app"
	"github.com/templui/photowall/internal/model"
)

func FoldersCmd() *cobra.Command {
	var sweep bool

	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Resolve the managed state folders under the root folder",
		Long: `Resolves (and creates when missing) the approved and rejected folders,
looks up the preview folder and prints their ids. With --sweep, duplicate
folders of the same name are deleted, keeping the canonical one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(ctx context.Context, a *app.App) error {
				return runFolders(ctx, a, sweep)
			})
		},
	}

	cmd.Flags().BoolVar(&sweep, "sweep", false, "delete duplicate managed folders")
	return cmd
}

func runFolders(ctx context.Context, a *app.App, sweep bool) error {
	if err := a.ModerationService.VerifyRoot(ctx); err != nil {
		return err
	}

	registry := a.FolderRegistry
	for _, name := range []string{model.FolderApproved, model.FolderRejected} {
		if _, err := registry.Resolve(ctx, name); err != nil {
			return err
		}
	}
	if _, _, err := registry.Lookup(ctx, model.FolderPreview); err != nil {
		return err
	}

	if sweep {
		removed, err := registry.Sweep(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d duplicate folder(s)\n", removed)
	}

	known := registry.Known()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FOLDER\tID")
	fmt.Fprintf(tw, "root\t%s\n", known.Root)
	fmt.Fprintf(tw, "%s\t%s\n", model.FolderApproved, known.Approved)
	fmt.Fprintf(tw, "%s\t%s\n", model.FolderRejected, known.Rejected)
	fmt.Fprintf(tw, "%s\t%s\n", model.FolderPreview, orNone(known.Preview))
	return tw.Flush()
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

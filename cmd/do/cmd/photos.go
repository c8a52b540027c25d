package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/templui/photowall/internal/app"
	"github.com/templui/photowall/internal/model"
)

const cliActor = "cli"

func PhotosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photos",
		Short: "Moderate and inspect photos",
	}

	cmd.AddCommand(listCmd())
	cmd.AddCommand(moderateCmd(model.ActionApprove))
	cmd.AddCommand(moderateCmd(model.ActionReject))
	cmd.AddCommand(publishCmd())
	cmd.AddCommand(historyCmd())
	cmd.AddCommand(activityCmd())
	cmd.AddCommand(deleteCmd())
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "list [pending|approved|rejected|preview]",
		Short:     "List the photos in one state",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"pending", "approved", "rejected", "preview"},
		RunE: func(cmd *cobra.Command, args []string) error {
			state := model.StatePending
			if len(args) == 1 {
				state = model.State(args[0])
			}
			return withApp(true, func(ctx context.Context, a *app.App) error {
				var (
					photos []*model.Photo
					err    error
				)
				switch state {
				case model.StatePending:
					photos, err = a.ModerationService.ListPending(ctx)
				case model.StateApproved:
					photos, err = a.ModerationService.ListApproved(ctx)
				case model.StateRejected:
					photos, err = a.ModerationService.ListRejected(ctx)
				case model.StatePreview:
					photos, err = a.ModerationService.ListPreview(ctx)
				default:
					return fmt.Errorf("unknown state %q", state)
				}
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tUSER\tCREATED\tTYPE\tNAME")
				for _, p := range photos {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						p.ID, p.Username(), p.CreatedTime.Format(time.RFC3339), p.MimeType, p.Name)
				}
				return tw.Flush()
			})
		},
	}
}

func moderateCmd(action string) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   action + " <photo-id>...",
		Short: "Mark photos as " + action + "d",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(ctx context.Context, a *app.App) error {
				for _, id := range args {
					if err := a.ModerationService.Moderate(ctx, id, action, actor); err != nil {
						return err
					}
					fmt.Printf("%s: %sd\n", id, action)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", cliActor, "name recorded in the audit log")
	return cmd
}

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Grant public read access to every pending photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(true, func(ctx context.Context, a *app.App) error {
				result, err := a.ModerationService.MakePendingPublic(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("published %d of %d photo(s), %d failed\n", result.Published, result.Total, result.Failed)
				return nil
			})
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <photo-id>",
		Short: "Show the recorded transitions of a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, a *app.App) error {
				events, err := a.ModerationService.History(ctx, args[0])
				if err != nil {
					return err
				}
				return printEvents(events)
			})
		},
	}
}

func activityCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the latest transitions across all photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(false, func(ctx context.Context, a *app.App) error {
				events, err := a.ModerationService.RecentActivity(ctx, limit)
				if err != nil {
					return err
				}
				return printEvents(events)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events")
	return cmd
}

func deleteCmd() *cobra.Command {
	var (
		actor string
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "delete <photo-id>",
		Short: "Delete a photo from Drive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", args[0])
			}
			return withApp(true, func(ctx context.Context, a *app.App) error {
				if err := a.ModerationService.Delete(ctx, args[0], actor); err != nil {
					return err
				}
				if err := a.MediaService.Purge(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("%s: deleted\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", cliActor, "name recorded in the audit log")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func printEvents(events []*model.ModerationEvent) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tPHOTO\tFROM\tTO\tACTOR")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format(time.RFC3339), e.PhotoID, e.FromState, e.ToState, e.Actor)
	}
	return tw.Flush()
}

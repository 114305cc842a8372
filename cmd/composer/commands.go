package main

import (
	"fmt"

	"podcast-studio-be/internal/composer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newNotebooksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "notebooks",
		Short: "List notebooks available for podcast content",
		RunE: func(cmd *cobra.Command, args []string) error {
			notebooks, err := ctx.client().ListNotebooks(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(notebooks) == 0 {
				fmt.Fprintln(out, "No notebooks")
				return nil
			}
			for _, nb := range notebooks {
				fmt.Fprintf(out, "%s  %s\n", color.CyanString(nb.Id), nb.Name)
			}
			return nil
		},
	}
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect NOTEBOOK_ID",
		Short: "Show a notebook's sources and notes with their default inclusion modes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.SetExpanded(cmd.Context(), args[0], true); err != nil {
				return err
			}
			s.Wait()
			renderSession(cmd.OutOrStdout(), s.View(), args[0])
			return nil
		},
	}
}

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List episode profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := ctx.client().ListEpisodeProfiles(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range profiles {
				fmt.Fprintf(out, "%s  %s  %s\n", color.CyanString(p.Id), p.Name, color.HiBlackString(p.SpeakerConfig))
			}
			return nil
		},
	}
}

func newEstimateCommand(ctx *commandContext) *cobra.Command {
	var sel selectionFlags
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate tokens and characters for a selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := sel.apply(cmd.Context(), s); err != nil {
				return err
			}
			view := s.View()
			for _, nb := range sel.notebooks {
				renderSession(cmd.OutOrStdout(), view, nb)
			}
			renderCounts(cmd.OutOrStdout(), view)
			return nil
		},
	}
	addSelectionFlags(cmd, &sel)
	return cmd
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		sel          selectionFlags
		profileID    string
		episodeName  string
		briefing     string
		printContent bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Compile the selection and start podcast generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := sel.apply(cmd.Context(), s); err != nil {
				return err
			}
			renderCounts(cmd.OutOrStdout(), s.View())

			res, err := s.Submit(cmd.Context(), composer.SubmitRequest{
				EpisodeProfileId: profileID,
				EpisodeName:      episodeName,
				BriefingSuffix:   briefing,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if printContent {
				fmt.Fprintln(out, res.Payload.Content)
				fmt.Fprintln(out)
			}
			color.New(color.FgGreen).Fprintf(out, "Generation started: job %s (%s)\n", res.Job.JobId, res.Job.Status)
			fmt.Fprintf(out, "Episode %q with profile %s from %d notebook(s)\n",
				res.Payload.EpisodeName, res.Payload.EpisodeProfile, len(res.Requests))
			return nil
		},
	}
	addSelectionFlags(cmd, &sel)
	cmd.Flags().StringVarP(&profileID, "profile", "p", "", "Episode profile id")
	cmd.Flags().StringVar(&episodeName, "name", "", "Episode name")
	cmd.Flags().StringVar(&briefing, "briefing", "", "Additional instructions appended to the profile briefing")
	cmd.Flags().BoolVar(&printContent, "print-content", false, "Print the compiled content")
	return cmd
}

func addSelectionFlags(cmd *cobra.Command, sel *selectionFlags) {
	cmd.Flags().StringSliceVarP(&sel.notebooks, "notebook", "n", nil, "Notebook to include with default modes (repeatable)")
	cmd.Flags().StringArrayVar(&sel.sourceModes, "source", nil, "Override a source mode: NOTEBOOK/SOURCE=off|insights|full")
	cmd.Flags().StringArrayVar(&sel.excludeNotes, "exclude-note", nil, "Exclude a note: NOTEBOOK/NOTE")
	_ = cmd.MarkFlagRequired("notebook")
}

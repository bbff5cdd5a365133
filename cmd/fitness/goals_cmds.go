package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-fitness-client/apierrors"
	"github.com/jrsteele09/go-fitness-client/fitness"
	"github.com/jrsteele09/go-fitness-client/internal/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const descriptionWidth = 40

func newGoalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "List and manage fitness goals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listGoals(cmd)
		},
	}
	cmd.AddCommand(newGoalsListCmd(), newGoalsCreateCmd(), newGoalsUpdateCmd())
	return cmd
}

func newGoalsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List goals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listGoals(cmd)
		},
	}
}

func listGoals(cmd *cobra.Command) error {
	goals, err := appFrom(cmd).fitness.ListGoals(cmd.Context())
	if err != nil {
		return errors.New(apierrors.UserMessage("loading goals", err))
	}
	if len(goals) == 0 {
		cmd.Println("No goals yet")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTARGET\tSTART\tEND\tDESCRIPTION")
	for _, g := range goals {
		fmt.Fprintf(w, "%d\t%s\t%g\t%s\t%s\t%s\n",
			g.ID, g.Name, g.TargetValue, g.StartDate, g.EndDate,
			utils.TruncateText(g.Description, descriptionWidth))
	}
	return w.Flush()
}

type goalConfig struct {
	id          int
	name        string
	description string
	start       string
	end         string
	target      float64
}

func (c *goalConfig) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.name, "name", "", "goal name")
	cmd.Flags().StringVar(&c.description, "description", "", "goal description")
	cmd.Flags().StringVar(&c.start, "start", "", "start date, YYYY-MM-DD")
	cmd.Flags().StringVar(&c.end, "end", "", "end date, YYYY-MM-DD")
	cmd.Flags().Float64Var(&c.target, "target", 0, "target value")
}

// goal builds the request body, normalising both dates.
func (c *goalConfig) goal() (fitness.Goal, error) {
	start, err := utils.ParseDate(c.start)
	if err != nil {
		return fitness.Goal{}, errors.Wrap(err, "invalid --start")
	}
	end, err := utils.ParseDate(c.end)
	if err != nil {
		return fitness.Goal{}, errors.Wrap(err, "invalid --end")
	}
	if start != nil && end != nil && end.Before(*start) {
		return fitness.Goal{}, errors.New("--end must not be before --start")
	}
	return fitness.Goal{
		ID:          c.id,
		Name:        c.name,
		Description: c.description,
		StartDate:   utils.FormatDate(start),
		EndDate:     utils.FormatDate(end),
		TargetValue: c.target,
	}, nil
}

func newGoalsCreateCmd() *cobra.Command {
	cfg := &goalConfig{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a goal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := cfg.goal()
			if err != nil {
				return err
			}
			created, err := appFrom(cmd).fitness.CreateGoal(cmd.Context(), g)
			if err != nil {
				return errors.New(apierrors.UserMessage("creating goal", err))
			}
			cmd.Printf("Created goal %d: %s\n", created.ID, created.Name)
			return nil
		},
	}
	cfg.addFlags(cmd)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newGoalsUpdateCmd() *cobra.Command {
	cfg := &goalConfig{}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace a goal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := cfg.goal()
			if err != nil {
				return err
			}
			updated, err := appFrom(cmd).fitness.UpdateGoal(cmd.Context(), g)
			if err != nil {
				return errors.New(apierrors.UserMessage("updating goal", err))
			}
			cmd.Printf("Updated goal %d: %s\n", updated.ID, updated.Name)
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.id, "id", 0, "goal id")
	cfg.addFlags(cmd)
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

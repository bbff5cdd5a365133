package main

import (
	"github.com/jrsteele09/go-fitness-client/apierrors"
	"github.com/jrsteele09/go-fitness-client/internal/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show workout statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := appFrom(cmd).fitness.DashboardStats(cmd.Context())
			if err != nil {
				return errors.New(apierrors.UserMessage("loading dashboard", err))
			}
			cmd.Printf("Total workouts:        %d\n", stats.TotalWorkouts)
			cmd.Printf("Total calories burned: %g\n", stats.TotalCaloriesBurned)
			cmd.Printf("Average workout time:  %g min\n", stats.AverageWorkoutTime)
			cmd.Printf("Best workout time:     %g min\n", stats.BestWorkoutTime)
			return nil
		},
	}
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the server's profile for the logged in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := appFrom(cmd).fitness.Profile(cmd.Context())
			if err != nil {
				return errors.New(apierrors.UserMessage("loading profile", err))
			}
			cmd.Printf("Username: %s\n", utils.CapitalizeFirstLetter(p.Username))
			cmd.Printf("Email:    %s\n", p.Email)
			return nil
		},
	}
}

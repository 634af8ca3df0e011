package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newSessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage training sessions",
	}

	var mode string
	var platforms []string
	var goalID string
	startCmd := &cobra.Command{
		Use:   "start <topic>",
		Short: "Start a training session for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().post("/api/v1/training/sessions", map[string]interface{}{
				"topic":     args[0],
				"mode":      mode,
				"platforms": platforms,
				"goal_id":   goalID,
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}
	startCmd.Flags().StringVarP(&mode, "mode", "m", "all_ais_train", "Training mode: all_ais_train or single_ai_teaches")
	startCmd.Flags().StringSliceVarP(&platforms, "platforms", "p", nil, "Platforms to use (default: all registered)")
	startCmd.Flags().StringVar(&goalID, "goal", "", "Goal this session pursues")

	statusCmd := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show the status of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/training/sessions/"+args[0], nil)
		},
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("limit", fmt.Sprintf("%d", limit))
			return getAndPrint("/api/v1/training/sessions", params)
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list")

	cmd.AddCommand(startCmd, statusCmd, listCmd)
	return cmd
}

func newTopicsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List known training topics and modes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/training/topics", nil)
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show worker status and recent updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/status", nil)
		},
	}
}

func newCapabilitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Show capability scores and current gaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/capabilities", nil)
		},
	}
}

func newGoalsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "goals",
		Short: "List self-training goals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/goals", nil)
		},
	}
}

func newFeedbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "View and answer feedback requests",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List feedback requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/feedback", nil)
		},
	}

	respondCmd := &cobra.Command{
		Use:   "respond <feedback-id> <response>",
		Short: "Answer a pending feedback request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().post("/api/v1/feedback/"+args[0]+"/respond", map[string]string{
				"response": args[1],
			})
			if err != nil {
				return err
			}
			return printJSON(data)
		},
	}

	cmd.AddCommand(listCmd, respondCmd)
	return cmd
}

func newThreadsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Browse conversation threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/threads", nil)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <thread-id>",
		Short: "Show one thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAndPrint("/api/v1/threads/"+args[0], nil)
		},
	}
	cmd.AddCommand(showCmd)
	return cmd
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var statusUser int64

// statusCmd shows one task's status and progress.
var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show the status of a transcription task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id: %s", args[0])
		}
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		info, err := appInstance.TaskService.GetTaskStatus(cmd.Context(), taskID, statusUser)
		if err != nil {
			return err
		}

		fmt.Printf("Task %d\n", info.TaskID)
		fmt.Printf("  Status:   %s\n", statusColor(info.Status))
		fmt.Printf("  Progress: %d%%\n", info.Progress)
		fmt.Printf("  Created:  %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Updated:  %s\n", info.UpdatedAt.Format("2006-01-02 15:04:05"))
		if info.CompletedAt != nil {
			fmt.Printf("  Finished: %s\n", info.CompletedAt.Format("2006-01-02 15:04:05"))
		}
		if info.FailureReason != nil {
			fmt.Printf("  Reason:   %s\n", *info.FailureReason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Int64VarP(&statusUser, "user", "u", 1, "Owner user id")
}

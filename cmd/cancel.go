package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var cancelUser int64

// cancelCmd requests cooperative cancellation of a task.
var cancelCmd = &cobra.Command{
	Use:   "cancel [task-id]",
	Short: "Cancel a pending or processing task",
	Long: `Requests cancellation of a task. Queued tasks are withdrawn immediately;
running tasks stop at their next checkpoint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id: %s", args[0])
		}
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		task, err := appInstance.TaskService.Cancel(cmd.Context(), taskID, cancelUser)
		if err != nil {
			return fmt.Errorf("cancel failed: %w", err)
		}
		fmt.Printf("Task %d: %s\n", task.ID, statusColor(task.Status))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)

	cancelCmd.Flags().Int64VarP(&cancelUser, "user", "u", 1, "Owner user id")
}

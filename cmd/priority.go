package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var priorityUser int64

// priorityCmd changes the scheduling priority of a queued task.
var priorityCmd = &cobra.Command{
	Use:   "priority [task-id] [priority]",
	Short: "Change the priority of a pending or processing task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id: %s", args[0])
		}
		priority, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid priority: %s", args[1])
		}
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		task, err := appInstance.TaskService.UpdatePriority(cmd.Context(), taskID, priorityUser, priority)
		if err != nil {
			return fmt.Errorf("priority update failed: %w", err)
		}
		fmt.Printf("Task %d priority set to %d\n", task.ID, task.Priority)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(priorityCmd)

	priorityCmd.Flags().Int64VarP(&priorityUser, "user", "u", 1, "Owner user id")
}

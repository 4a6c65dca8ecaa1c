package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var deleteUser int64

// deleteCmd removes a task, its subtitles and the uploaded source file.
var deleteCmd = &cobra.Command{
	Use:   "delete [task-id]",
	Short: "Delete a task and its subtitles",
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

		if err := appInstance.TaskService.DeleteTask(cmd.Context(), taskID, deleteUser); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Printf("Task %d deleted\n", taskID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().Int64VarP(&deleteUser, "user", "u", 1, "Owner user id")
}

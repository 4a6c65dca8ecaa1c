package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"subgen/internal/models"
)

var (
	listUser   int64
	listLimit  int
	listOffset int
	listStatus string
)

// listCmd shows a user's transcription tasks.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List transcription tasks",
	Long:  `Displays a user's transcription tasks with status, progress and priority. Supports pagination and status filtering.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return err
		}

		var status *models.TaskStatus
		if listStatus != "" {
			parsed, err := models.ParseTaskStatus(listStatus)
			if err != nil {
				return err
			}
			status = &parsed
		}

		taskList, err := appInstance.TaskService.ListTasks(ctx, listUser, status, listLimit, listOffset)
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}

		if len(taskList) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "File", "Status", "Progress", "Priority", "Model", "Created At"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, t := range taskList {
			table.Append([]string{
				strconv.FormatInt(t.ID, 10),
				t.Filename,
				statusColor(t.Status),
				fmt.Sprintf("%d%%", t.Progress),
				strconv.Itoa(t.Priority),
				t.Model,
				t.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Int64VarP(&listUser, "user", "u", 1, "Owner user id")
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", 20, "Number of tasks to display")
	listCmd.Flags().IntVarP(&listOffset, "offset", "o", 0, "Number of tasks to skip")
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "Filter by status (pending, processing, completed, failed, canceled)")
}

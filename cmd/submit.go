package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"subgen/internal/app"
	"subgen/internal/models"
	"subgen/internal/services"
)

var (
	submitUser     int64
	submitLanguage string
	submitModel    string
	submitPriority int
	submitWait     bool
)

// submitCmd creates a transcription task for a local media file.
var submitCmd = &cobra.Command{
	Use:   "submit [file]",
	Short: "Submit a media file for subtitle generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return err
		}

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		task, err := appInstance.TaskService.SubmitTask(ctx, services.SubmitTaskParams{
			UserID:   submitUser,
			FilePath: path,
			Filename: filepath.Base(path),
			Language: submitLanguage,
			Model:    submitModel,
			Priority: submitPriority,
		})
		if err != nil {
			return fmt.Errorf("submit failed: %w", err)
		}
		fmt.Printf("Task %d submitted (priority %d)\n", task.ID, task.Priority)

		// Local mode executes inside this process; exiting now would abandon
		// the queued task, so waiting is forced there.
		if !submitWait && appInstance.Config.Dispatcher.Mode != "local" {
			return nil
		}
		return waitForTask(ctx, appInstance, task.ID, submitUser)
	},
}

// waitForTask polls until the task reaches a terminal state, echoing progress.
func waitForTask(ctx context.Context, appInstance *app.App, taskID, userID int64) error {
	lastProgress := -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}

		info, err := appInstance.TaskService.GetTaskStatus(ctx, taskID, userID)
		if err != nil {
			return err
		}
		if info.Progress != lastProgress && info.Status == models.StatusProcessing {
			lastProgress = info.Progress
			fmt.Printf("  %s %d%%\n", statusColor(info.Status), info.Progress)
		}
		if !info.Status.IsTerminal() {
			continue
		}

		fmt.Printf("Task %d finished: %s\n", taskID, statusColor(info.Status))
		if info.FailureReason != nil {
			fmt.Printf("  reason: %s\n", *info.FailureReason)
		}
		if info.Status != models.StatusCompleted {
			return fmt.Errorf("task %d ended %s", taskID, info.Status)
		}
		return nil
	}
}

func statusColor(status models.TaskStatus) string {
	switch status {
	case models.StatusCompleted:
		return color.GreenString(string(status))
	case models.StatusFailed:
		return color.RedString(string(status))
	case models.StatusCanceled:
		return color.YellowString(string(status))
	case models.StatusProcessing:
		return color.CyanString(string(status))
	default:
		return string(status)
	}
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().Int64VarP(&submitUser, "user", "u", 1, "Owner user id")
	submitCmd.Flags().StringVarP(&submitLanguage, "language", "l", "auto", "Source language ('auto' detects)")
	submitCmd.Flags().StringVarP(&submitModel, "model", "m", "", "Transcription model (defaults to config)")
	submitCmd.Flags().IntVarP(&submitPriority, "priority", "p", 0, "Scheduling priority (higher runs first)")
	submitCmd.Flags().BoolVarP(&submitWait, "wait", "w", false, "Wait for the task to finish")
}

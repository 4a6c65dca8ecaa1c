package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"subgen/internal/models"
)

var (
	exportUser   int64
	exportOutput string
)

// exportCmd writes a completed task's subtitle to a file or stdout.
var exportCmd = &cobra.Command{
	Use:   "export [task-id] [format]",
	Short: "Export a rendered subtitle (srt, vtt or txt)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id: %s", args[0])
		}
		format, err := models.ParseSubtitleFormat(args[1])
		if err != nil {
			return err
		}
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		result, err := appInstance.SubtitleService.Export(cmd.Context(), taskID, exportUser, format)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput == "-" {
			fmt.Print(result.Content)
			return nil
		}
		out := exportOutput
		if out == "" {
			out = result.Filename
		}
		if err := os.WriteFile(out, []byte(result.Content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Printf("Wrote %s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Int64VarP(&exportUser, "user", "u", 1, "Owner user id")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file ('-' for stdout, default derives from the upload name)")
}

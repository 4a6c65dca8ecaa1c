package cmd

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"subgen/internal/apihandlers"
)

var (
	serveAddr string
	servePort string
)

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the subtitle generation HTTP API server",
	Long: `Starts an HTTP server accepting media uploads and exposing task status,
cancellation, priority and subtitle export endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		router := gin.Default()
		apiHandler := apihandlers.NewAPIHandler(appInstance)

		v1 := router.Group("/api/v1")
		{
			taskGroup := v1.Group("/tasks")
			{
				taskGroup.POST("", apiHandler.CreateTaskHandler)
				taskGroup.GET("", apiHandler.ListTasksHandler)
				taskGroup.GET("/:id", apiHandler.GetTaskHandler)
				taskGroup.GET("/:id/status", apiHandler.GetTaskStatusHandler)
				taskGroup.POST("/:id/cancel", apiHandler.CancelTaskHandler)
				taskGroup.POST("/:id/resubmit", apiHandler.ResubmitTaskHandler)
				taskGroup.PUT("/:id/priority", apiHandler.UpdateTaskPriorityHandler)
				taskGroup.DELETE("/:id", apiHandler.DeleteTaskHandler)
				taskGroup.GET("/:id/subtitles", apiHandler.ListTaskSubtitlesHandler)
				taskGroup.GET("/:id/subtitles/:format", apiHandler.GetSubtitleByFormatHandler)
				taskGroup.GET("/:id/subtitles/:format/export", apiHandler.ExportSubtitleHandler)
			}

			subtitleGroup := v1.Group("/subtitles")
			{
				subtitleGroup.GET("/:id", apiHandler.GetSubtitleHandler)
				subtitleGroup.PUT("/:id", apiHandler.UpdateSubtitleHandler)
				subtitleGroup.DELETE("/:id", apiHandler.DeleteSubtitleHandler)
			}
		}

		router.GET("/health", func(c *gin.Context) {
			if err := appInstance.Store.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		addr := serveAddr
		if addr == "" {
			addr = appInstance.Config.Server.Address
		}
		port := servePort
		if port == "" {
			port = appInstance.Config.Server.Port
		}
		listenAddr := fmt.Sprintf("%s:%s", addr, port)
		log.WithField("addr", listenAddr).Info("Starting API server")

		if err := router.Run(listenAddr); err != nil {
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides config)")
}

package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"subgen/internal/app"
	"subgen/internal/models"
	"subgen/internal/services"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(appInstance *app.App) *APIHandler {
	return &APIHandler{App: appInstance}
}

// ownerID resolves the calling user. Authentication proper is handled by the
// fronting proxy; it forwards the authenticated user in X-User-ID.
func ownerID(c *gin.Context) (int64, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		JSONError(c, http.StatusUnauthorized, "unauthorized", "missing X-User-ID header")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		JSONError(c, http.StatusUnauthorized, "unauthorized", "invalid X-User-ID header")
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// serviceError maps service-layer sentinel errors onto the HTTP envelope.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, models.ErrConflict):
		Conflict(c, err.Error())
	case errors.Is(err, models.ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, models.ErrDispatchUnavailable):
		ServiceUnavailable(c, err.Error())
	default:
		Internal(c, err.Error())
	}
}

// --- Task handlers ---

// CreateTaskHandler accepts a multipart upload ("file") plus optional
// language/model/priority form fields, stores the file in the upload
// directory and submits the task.
func (h *APIHandler) CreateTaskHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file upload: "+err.Error())
		return
	}
	if fileHeader.Size > h.App.Config.Upload.MaxFileSize {
		BadRequest(c, fmt.Sprintf("file too large (%d bytes, maximum %d)",
			fileHeader.Size, h.App.Config.Upload.MaxFileSize))
		return
	}

	priority := 0
	if raw := c.PostForm("priority"); raw != "" {
		priority, err = strconv.Atoi(raw)
		if err != nil {
			BadRequest(c, "invalid priority: "+raw)
			return
		}
	}

	// A fresh name avoids collisions between uploads of the same file.
	storedPath := filepath.Join(h.App.Config.Upload.Dir,
		uuid.NewString()+filepath.Ext(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, storedPath); err != nil {
		Internal(c, "saving upload: "+err.Error())
		return
	}

	task, err := h.App.TaskService.SubmitTask(c.Request.Context(), services.SubmitTaskParams{
		UserID:   userID,
		FilePath: storedPath,
		Filename: fileHeader.Filename,
		Language: c.DefaultPostForm("language", "auto"),
		Model:    c.PostForm("model"),
		Priority: priority,
	})
	if err != nil {
		if errors.Is(err, models.ErrDispatchUnavailable) && task != nil {
			// The row exists and is resubmittable; tell the caller both facts.
			c.JSON(http.StatusAccepted, gin.H{"data": task, "warning": err.Error()})
			return
		}
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": task})
}

func (h *APIHandler) ListTasksHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var status *models.TaskStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.ParseTaskStatus(raw)
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		status = &parsed
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	tasks, err := h.App.TaskService.ListTasks(c.Request.Context(), userID, status, limit, offset)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

func (h *APIHandler) GetTaskHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := h.App.TaskService.GetTask(c.Request.Context(), taskID, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": task})
}

func (h *APIHandler) GetTaskStatusHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	info, err := h.App.TaskService.GetTaskStatus(c.Request.Context(), taskID, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": info})
}

func (h *APIHandler) CancelTaskHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := h.App.TaskService.Cancel(c.Request.Context(), taskID, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": task})
}

func (h *APIHandler) UpdateTaskPriorityHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdatePriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	task, err := h.App.TaskService.UpdatePriority(c.Request.Context(), taskID, userID, *req.Priority)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": task})
}

func (h *APIHandler) ResubmitTaskHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	task, err := h.App.TaskService.ResubmitTask(c.Request.Context(), taskID, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": task})
}

func (h *APIHandler) DeleteTaskHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.App.TaskService.DeleteTask(c.Request.Context(), taskID, userID); err != nil {
		serviceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Subtitle handlers ---

func (h *APIHandler) ListTaskSubtitlesHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	subs, err := h.App.SubtitleService.GetSubtitlesByTask(c.Request.Context(), taskID, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": subs})
}

func (h *APIHandler) GetSubtitleHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	subtitleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	sub, err := h.App.SubtitleService.GetSubtitle(c.Request.Context(), subtitleID, userID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

// GetSubtitleByFormatHandler returns the subtitle row itself; the export
// endpoint serves the same content as a file download.
func (h *APIHandler) GetSubtitleByFormatHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	format, err := models.ParseSubtitleFormat(c.Param("format"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	sub, err := h.App.SubtitleService.GetSubtitleByFormat(c.Request.Context(), taskID, userID, format)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (h *APIHandler) ExportSubtitleHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	format, err := models.ParseSubtitleFormat(c.Param("format"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.App.SubtitleService.Export(c.Request.Context(), taskID, userID, format)
	if err != nil {
		serviceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, []byte(result.Content))
}

func (h *APIHandler) UpdateSubtitleHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	subtitleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateSubtitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sub, err := h.App.SubtitleService.UpdateContent(c.Request.Context(), subtitleID, userID, req.Content)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": sub})
}

func (h *APIHandler) DeleteSubtitleHandler(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	subtitleID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.App.SubtitleService.DeleteSubtitle(c.Request.Context(), subtitleID, userID); err != nil {
		serviceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

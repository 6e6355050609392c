package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edirooss/livesrc/internal/service"
	"github.com/edirooss/livesrc/internal/task"
)

// statusOf maps service errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrEmptyInput),
		errors.Is(err, service.ErrNoChannels):
		return http.StatusBadRequest
	case errors.Is(err, task.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// abort records err for the access log and answers with its message.
func abort(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(statusOf(err), gin.H{"message": err.Error()})
}

// accepted answers a request that started a background task.
func accepted(c *gin.Context, taskID string) {
	c.JSON(http.StatusAccepted, gin.H{
		"code":    http.StatusAccepted,
		"message": "task accepted",
		"data":    gin.H{"task_id": taskID},
	})
}

package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edirooss/livesrc/internal/service"
)

// TasksHandler exposes task progress.
//
//   - GET /tasks           → all tasks, oldest first
//   - GET /tasks/{id}      → one task
//   - GET /tasks/{id}/logs → recent probe failures of one task (?lines=)
type TasksHandler struct {
	svc *service.LiveService
}

func NewTasksHandler(svc *service.LiveService) *TasksHandler {
	return &TasksHandler{svc: svc}
}

// GetTaskList handles GET /tasks. Adds `X-Total-Count` header.
func (h *TasksHandler) GetTaskList(c *gin.Context) {
	list := h.svc.Tasks()
	c.Header("X-Total-Count", strconv.Itoa(len(list)))
	c.JSON(http.StatusOK, list)
}

// GetTask handles GET /tasks/:id.
func (h *TasksHandler) GetTask(c *gin.Context) {
	snap, err := h.svc.Task(c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetTaskLogs handles GET /tasks/:id/logs.
func (h *TasksHandler) GetTaskLogs(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("lines", "100"))
	if err != nil || n < 1 {
		abort(c, fmt.Errorf("%w: lines must be a positive integer", service.ErrInvalidRequest))
		return
	}
	lines, err := h.svc.TaskLogs(c.Param("id"), n)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

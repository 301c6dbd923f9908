package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskapi/internal/model"
	"taskapi/internal/store"
)

var errMissingUserID = errors.New("userId query parameter is required")

// ListTasks returns every task whose userId equals the userId query parameter.
func (h *Handler) ListTasks(c *gin.Context) {
	userID, ok := c.GetQuery("userId")
	h.logger.Info("ListTasks request received",
		zap.String("user_id", userID),
		zap.String("client_ip", c.ClientIP()),
	)
	if !ok {
		h.logger.Warn("ListTasks: userId missing")
		h.env.Fail(c, "Error fetching tasks", errMissingUserID)
		return
	}

	ctx, cancel := h.storeContext(c)
	defer cancel()

	docs, err := h.store.Where(ctx, model.TasksCollection, model.TaskOwnerField, userID)
	if err != nil {
		h.logger.Error("ListTasks: failed to fetch tasks",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		h.env.Fail(c, "Error fetching tasks", err)
		return
	}

	tasks := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.Merged())
	}

	h.logger.Info("ListTasks: success",
		zap.String("user_id", userID),
		zap.Int("task_count", len(tasks)),
	)
	c.JSON(http.StatusOK, tasks)
}

// GetTask returns a single task, or 404 if it does not exist.
func (h *Handler) GetTask(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := h.storeContext(c)
	defer cancel()

	doc, err := h.store.Get(ctx, model.TasksCollection, id)
	if errors.Is(err, store.ErrNotFound) {
		h.logger.Info("GetTask: not found", zap.String("task_id", id))
		h.env.NotFound(c, "Task", id)
		return
	}
	if err != nil {
		h.logger.Error("GetTask: failed to fetch task", zap.String("task_id", id), zap.Error(err))
		h.env.Fail(c, "Error fetching task", err)
		return
	}

	c.JSON(http.StatusOK, doc.Merged())
}

// CreateTask writes a full task at the id given in the body, replacing any
// existing task with that id.
func (h *Handler) CreateTask(c *gin.Context) {
	body, ok := h.bindObject(c)
	if !ok {
		return
	}
	id := model.StringField(body, "id")
	h.logger.Info("CreateTask request received",
		zap.String("task_id", id),
		zap.String("user_id", model.StringField(body, "userId")),
	)

	ctx, cancel := h.storeContext(c)
	defer cancel()

	if err := h.store.Set(ctx, model.TasksCollection, id, model.TaskDocument(body)); err != nil {
		h.logger.Error("CreateTask: failed to write task", zap.String("task_id", id), zap.Error(err))
		h.env.Fail(c, "Error creating task", err)
		return
	}

	h.env.Confirm(c, http.StatusCreated, gin.H{"message": "Task created"}, gin.H{"id": id})
}

// UpdateTask merges the body fields into an existing task.
// A missing task is reported as a server error, not a 404.
func (h *Handler) UpdateTask(c *gin.Context) {
	id := c.Param("id")
	body, ok := h.bindObject(c)
	if !ok {
		return
	}
	h.logger.Info("UpdateTask request received",
		zap.String("task_id", id),
		zap.Int("field_count", len(body)),
	)

	ctx, cancel := h.storeContext(c)
	defer cancel()

	if err := h.store.Update(ctx, model.TasksCollection, id, body); err != nil {
		h.logger.Error("UpdateTask: failed to update task", zap.String("task_id", id), zap.Error(err))
		h.env.Fail(c, "Error updating task", err)
		return
	}

	h.env.Confirm(c, http.StatusOK, gin.H{"message": "Task updated"}, gin.H{"id": id})
}

// DeleteTask deletes the task named by the :id path parameter.
func (h *Handler) DeleteTask(c *gin.Context) {
	h.deleteTask(c, c.Param("id"))
}

// DeleteTaskByQuery deletes the task named by the id query parameter.
func (h *Handler) DeleteTaskByQuery(c *gin.Context) {
	h.deleteTask(c, c.Query("id"))
}

func (h *Handler) deleteTask(c *gin.Context, id string) {
	h.logger.Info("DeleteTask request received", zap.String("task_id", id))

	ctx, cancel := h.storeContext(c)
	defer cancel()

	if err := h.store.Delete(ctx, model.TasksCollection, id); err != nil {
		h.logger.Error("DeleteTask: failed to delete task", zap.String("task_id", id), zap.Error(err))
		h.env.Fail(c, "Error deleting task", err)
		return
	}

	h.env.Confirm(c, http.StatusOK, gin.H{"message": "Task deleted"}, gin.H{"id": id})
}

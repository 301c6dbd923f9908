package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskapi/internal/model"
	"taskapi/internal/store"
)

// BatchUpsertTasks writes every task of a JSON array in one atomic batch,
// keyed by each element's id. Elements are stored as sent.
func (h *Handler) BatchUpsertTasks(c *gin.Context) {
	var tasks []map[string]any
	if err := bindJSON(c, &tasks); err != nil {
		h.logger.Warn("BatchUpsertTasks: rejected body", zap.Error(err))
		h.env.BadRequest(c, "Expected an array of tasks: "+err.Error())
		return
	}

	b := store.NewBatch()
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		id := model.StringField(t, "id")
		b.Set(model.TasksCollection, id, t)
		ids = append(ids, id)
	}
	h.logger.Info("BatchUpsertTasks request received", zap.Int("batch_size", b.Len()))

	ctx, cancel := h.storeContext(c)
	defer cancel()

	if err := h.store.Commit(ctx, b); err != nil {
		h.logger.Error("BatchUpsertTasks: batch failed",
			zap.Int("batch_size", b.Len()),
			zap.Error(err),
		)
		h.env.Fail(c, "Error creating/updating tasks", err)
		return
	}

	h.logger.Info("BatchUpsertTasks: success", zap.Int("batch_size", b.Len()))
	h.env.Confirm(c, http.StatusCreated, gin.H{
		"message": "Tasks created/updated successfully",
		"ids":     ids,
	}, nil)
}

// BatchDeleteTasks deletes every id of a non-empty JSON array of strings in
// one atomic batch. The response lists all requested ids, existing or not.
func (h *Handler) BatchDeleteTasks(c *gin.Context) {
	var ids []string
	if err := bindJSON(c, &ids); err != nil || len(ids) == 0 {
		h.logger.Warn("BatchDeleteTasks: rejected body", zap.Int("id_count", len(ids)), zap.Error(err))
		h.env.BadRequest(c, "Expected a non-empty array of task IDs")
		return
	}

	b := store.NewBatch()
	for _, id := range ids {
		b.Delete(model.TasksCollection, id)
	}
	h.logger.Info("BatchDeleteTasks request received", zap.Int("batch_size", b.Len()))

	ctx, cancel := h.storeContext(c)
	defer cancel()

	if err := h.store.Commit(ctx, b); err != nil {
		h.logger.Error("BatchDeleteTasks: batch failed",
			zap.Int("batch_size", b.Len()),
			zap.Error(err),
		)
		h.env.Fail(c, "Error deleting tasks", err)
		return
	}

	h.env.Confirm(c, http.StatusOK, gin.H{
		"message": "Tasks deleted successfully",
		"ids":     ids,
	}, nil)
}

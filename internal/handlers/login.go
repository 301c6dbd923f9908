package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskapi/internal/model"
	"taskapi/internal/store"
)

// Login registers a user on first sight of a uid. Existing users are left untouched.
func (h *Handler) Login(c *gin.Context) {
	body, ok := h.bindObject(c)
	if !ok {
		return
	}
	uid := model.StringField(body, "uid")
	h.logger.Info("Login request received",
		zap.String("uid", uid),
		zap.String("client_ip", c.ClientIP()),
	)

	ctx, cancel := h.storeContext(c)
	defer cancel()

	_, err := h.store.Get(ctx, model.UsersCollection, uid)
	switch {
	case err == nil:
		h.logger.Info("Login: user already exists", zap.String("uid", uid))
		h.env.Confirm(c, http.StatusOK, gin.H{"message": "User already exists", "uid": uid}, nil)
		return
	case !errors.Is(err, store.ErrNotFound):
		h.logger.Error("Login: failed to look up user", zap.String("uid", uid), zap.Error(err))
		h.env.Fail(c, "Error logging in", err)
		return
	}

	if err := h.store.Set(ctx, model.UsersCollection, uid, model.UserDocument(body)); err != nil {
		h.logger.Error("Login: failed to create user", zap.String("uid", uid), zap.Error(err))
		h.env.Fail(c, "Error logging in", err)
		return
	}

	h.logger.Info("Login: user created", zap.String("uid", uid))
	h.env.Confirm(c, http.StatusCreated, gin.H{"message": "User created"}, gin.H{"uid": uid})
}

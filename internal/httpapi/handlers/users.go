package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/estate-chat/internal/auth"
	"github.com/suPer8Hu/estate-chat/internal/common"
	"github.com/suPer8Hu/estate-chat/internal/httpapi/middleware"
)

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func bindCredentials(c *gin.Context) (credentialsReq, bool) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return req, false
	}
	if auth.NormalizeEmail(req.Email) == "" || req.Password == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "email and password required")
		return req, false
	}
	return req, true
}

func (h *Handler) CreateUser(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}

	user, token, err := h.Accounts.Register(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidEmail):
		common.Fail(c, http.StatusBadRequest, 10005, err.Error())
		return
	case errors.Is(err, auth.ErrWeakPassword):
		common.Fail(c, http.StatusBadRequest, 10006, err.Error())
		return
	case errors.Is(err, auth.ErrEmailTaken):
		common.Fail(c, http.StatusConflict, 40902, err.Error())
		return
	default:
		h.Log.Error("register failed", "err", err)
		common.Fail(c, http.StatusInternalServerError, 20001, "failed to create user")
		return
	}

	h.Log.Info("user registered", "user_id", user.ID)
	common.OK(c, gin.H{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"token":    token,
	})
}

func (h *Handler) Login(c *gin.Context) {
	req, ok := bindCredentials(c)
	if !ok {
		return
	}
	token, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			common.Fail(c, http.StatusUnauthorized, 40103, err.Error())
			return
		}
		h.Log.Error("login failed", "err", err)
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, gin.H{"token": token})
}

func (h *Handler) Me(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	user, err := h.Accounts.User(c.Request.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	})
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/estate-chat/internal/common"
	"github.com/suPer8Hu/estate-chat/internal/httpapi/middleware"
)

func (h *Handler) GetBudget(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	tr := h.Turns.Backends(id).Budget
	remaining, err := tr.Remaining(c.Request.Context())
	if err != nil {
		h.Log.Error("read budget failed", "user_id", id.UserID, "err", err)
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to read budget")
		return
	}
	common.OK(c, gin.H{
		"remaining":     remaining,
		"daily_cap":     tr.Cap(),
		"authenticated": id.Authenticated(),
	})
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/estate-chat/internal/common"
	"github.com/suPer8Hu/estate-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/estate-chat/internal/property"
	"github.com/suPer8Hu/estate-chat/internal/query"
)

func (h *Handler) ListProperties(c *gin.Context) {
	q := c.Query("q")
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	list, err := h.Properties.Search(c.Request.Context(), q, limit, offset)
	if err != nil {
		h.Log.Warn("property search failed", "err", err)
		common.Fail(c, http.StatusServiceUnavailable, 50301, "property search unavailable, please retry")
		return
	}
	if list == nil {
		list = []property.Property{}
	}
	common.OK(c, gin.H{
		"properties": list,
		"criteria":   query.Interpret(q),
	})
}

func parsePropertyID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid property id")
		return 0, false
	}
	return id, true
}

func (h *Handler) GetProperty(c *gin.Context) {
	id, ok := parsePropertyID(c)
	if !ok {
		return
	}
	p, err := h.Properties.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, property.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "property not found")
			return
		}
		h.Log.Warn("property get failed", "property_id", id, "err", err)
		common.Fail(c, http.StatusServiceUnavailable, 50301, "property lookup unavailable, please retry")
		return
	}
	common.OK(c, p)
}

// RequestOverview returns the cached overview, or queues a job to write one.
func (h *Handler) RequestOverview(c *gin.Context) {
	id, ok := parsePropertyID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	p, err := h.Properties.Get(ctx, id)
	if err != nil {
		if errors.Is(err, property.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "property not found")
			return
		}
		common.Fail(c, http.StatusServiceUnavailable, 50301, "property lookup unavailable, please retry")
		return
	}
	if strings.TrimSpace(p.Overview) != "" {
		common.OK(c, gin.H{"status": property.JobSucceeded, "overview": p.Overview})
		return
	}
	if h.Overviews == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50302, "overview generation unavailable")
		return
	}

	key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(key) > 128 {
		common.Fail(c, http.StatusBadRequest, 10003, "idempotency key too long")
		return
	}

	owner := middleware.IdentityFrom(c).Owner()
	job, _, err := h.Overviews.Enqueue(ctx, owner, id, key)
	if err != nil {
		h.Log.Error("enqueue overview failed", "property_id", id, "err", err)
		common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
		return
	}
	common.Accepted(c, gin.H{"job_id": job.ID, "status": job.Status})
}

func (h *Handler) GetJob(c *gin.Context) {
	if h.Overviews == nil {
		common.Fail(c, http.StatusNotFound, 40403, "job not found")
		return
	}
	owner := middleware.IdentityFrom(c).Owner()
	j, err := h.Overviews.Get(c.Request.Context(), owner, c.Param("job_id"))
	if err != nil {
		if errors.Is(err, property.ErrJobNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, gin.H{"job": j})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"inkflow/utils"
)

// HealthHandler reports liveness of the service's Redis backends.
type HealthHandler struct {
	Clients []*redis.Client
}

func NewHealthHandler(clients ...*redis.Client) *HealthHandler {
	return &HealthHandler{Clients: clients}
}

// Check runs a round-trip against each Redis backend. Any failure
// degrades the status but still answers 200 so load balancers keep the
// webhook reachable; a dead cache means slower replies, not an outage.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	healthy := true
	for _, client := range h.Clients {
		if !utils.CheckRedis(ctx, client) {
			healthy = false
			break
		}
	}

	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

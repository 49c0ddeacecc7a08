package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/javi11/apphost/internal/runtime"
	"github.com/javi11/apphost/pkg/sharedpool"
)

type ExecRequest struct {
	Script string   `json:"script" binding:"required"`
	Args   []string `json:"args"`
}

type ExecResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

func BuildExecHandler(apps Apps) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := findApp(c, apps)
		if !ok {
			return
		}

		var body ExecRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		out, err := a.Exec(c, body.Script, body.Args...)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, ExecResponse{Output: string(out)})
		case errors.Is(err, runtime.ErrScriptNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case sharedpool.IsRetryable(err):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.Is(err, sharedpool.ErrPoolStopped):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ExecResponse{Output: string(out), Error: err.Error()})
		}
	}
}

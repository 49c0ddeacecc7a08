package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/javi11/apphost/internal/jobs"
)

const defaultRunsLimit = 20

func BuildListJobsHandler(apps Apps) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := findApp(c, apps)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, a.Jobs.Jobs())
	}
}

// BuildRunJobHandler runs a job synchronously. A run that fails is still reported with 200;
// its status carries the failure.
func BuildRunJobHandler(apps Apps) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := findApp(c, apps)
		if !ok {
			return
		}

		run, err := a.Jobs.RunNow(c, c.Param("job"))
		if err != nil {
			if errors.Is(err, jobs.ErrJobNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			if errors.Is(err, jobs.ErrJobRunning) {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, run)
	}
}

func BuildGetJobRunsHandler(apps Apps) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := findApp(c, apps)
		if !ok {
			return
		}

		limit := defaultRunsLimit
		if l := c.Query("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n <= 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = n
		}

		runs, err := a.Jobs.History(c, c.Param("job"), limit)
		if err != nil {
			if errors.Is(err, jobs.ErrJobNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, runs)
	}
}

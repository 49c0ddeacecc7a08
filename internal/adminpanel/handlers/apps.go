package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/javi11/apphost/internal/host"
	"github.com/javi11/apphost/pkg/sharedpool"
)

type Apps interface {
	Names() []string
	App(name string) (*host.App, error)
}

func BuildListAppsHandler(apps Apps) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := make([]host.AppInfo, 0)
		for _, name := range apps.Names() {
			a, err := apps.App(name)
			if err != nil {
				continue
			}
			result = append(result, a.Info())
		}

		c.JSON(http.StatusOK, result)
	}
}

func BuildGetAppHandler(apps Apps) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := findApp(c, apps)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, a.Info())
	}
}

func BuildRestartAppHandler(apps Apps) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := findApp(c, apps)
		if !ok {
			return
		}

		if err := a.Pool.Restart(); err != nil {
			if errors.Is(err, sharedpool.ErrPoolStopped) || errors.Is(err, sharedpool.ErrNoFactory) {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Status(http.StatusAccepted)
	}
}

func findApp(c *gin.Context, apps Apps) (*host.App, bool) {
	a, err := apps.App(c.Param("name"))
	if err != nil {
		if errors.Is(err, host.ErrAppNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return nil, false
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}

	return a, true
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/javi11/apphost/internal/serverinfo"
)

type serverInfoResponse struct {
	Summary       serverinfo.Summary     `json:"summary"`
	AppsDiskUsage []serverinfo.DiskUsage `json:"apps_disk_usage"`
}

func BuildGetServerInfoHandler(si serverinfo.ServerInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := serverInfoResponse{
			Summary:       si.GetSummary(),
			AppsDiskUsage: si.GetAppsDiskUsage(),
		}

		c.JSON(http.StatusOK, result)
	}
}

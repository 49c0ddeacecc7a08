package serverinfo

import (
	"strings"
	"time"

	"github.com/javi11/apphost/internal/host"
	"github.com/ricochet2200/go-disk-usage/du"
)

type Apps interface {
	Names() []string
	App(name string) (*host.App, error)
}

type ServerInfo interface {
	GetAppsDiskUsage() []DiskUsage
	GetSummary() Summary
}

type DiskUsage struct {
	App    string `json:"app"`
	Total  uint64 `json:"total"`
	Free   uint64 `json:"free"`
	Used   uint64 `json:"used"`
	Folder string `json:"folder"`
}

type Summary struct {
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Apps          int     `json:"apps"`
	StartedPools  int     `json:"started_pools"`
	Restarting    int     `json:"restarting"`
	Restarts      int64   `json:"restarts"`
}

type serverInfo struct {
	apps      Apps
	version   string
	startedAt time.Time
}

func NewServerInfo(apps Apps, version string) ServerInfo {
	return &serverInfo{apps: apps, version: version, startedAt: time.Now()}
}

// GetAppsDiskUsage reports the disk usage of the volume holding each app root.
func (s *serverInfo) GetAppsDiskUsage() []DiskUsage {
	result := make([]DiskUsage, 0)
	for _, name := range s.apps.Names() {
		a, err := s.apps.App(name)
		if err != nil {
			continue
		}

		folder := strings.TrimPrefix(a.Metadata.RootPath(), "vfs:")
		usage := du.NewDiskUsage(folder)
		result = append(result, DiskUsage{
			App:    name,
			Total:  usage.Size(),
			Free:   usage.Available(),
			Used:   usage.Used(),
			Folder: folder,
		})
	}

	return result
}

func (s *serverInfo) GetSummary() Summary {
	summary := Summary{
		Version:       s.version,
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}

	for _, name := range s.apps.Names() {
		a, err := s.apps.App(name)
		if err != nil {
			continue
		}

		info := a.Info()
		summary.Apps++
		if info.Pool.Started {
			summary.StartedPools++
		}
		summary.Restarting += info.Pool.Restarting
		summary.Restarts += info.Restarts
	}

	return summary
}

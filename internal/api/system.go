package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/androsik2006/radmon/internal/logger"
)

// SystemInfo represents host and process information.
type SystemInfo struct {
	OS            string        `json:"os"`
	Architecture  string        `json:"architecture"`
	Hostname      string        `json:"hostname"`
	Platform      string        `json:"platform"`
	PlatformVer   string        `json:"platform_version"`
	KernelVersion string        `json:"kernel_version"`
	UpTime        uint64        `json:"uptime_seconds"`
	AppStart      time.Time     `json:"app_start_time"`
	AppUptime     int64         `json:"app_uptime_seconds"`
	NumCPU        int           `json:"num_cpu"`
	GoVersion     string        `json:"go_version"`
	Version       string        `json:"version"`
	SystemID      string        `json:"system_id"`
	Resources     *ResourceInfo `json:"resources,omitempty"`
	Disk          *DiskInfo     `json:"disk,omitempty"`
}

// ResourceInfo represents system resource usage data.
type ResourceInfo struct {
	CPUUsage    float64 `json:"cpu_usage_percent"`
	MemoryTotal uint64  `json:"memory_total"`
	MemoryUsed  uint64  `json:"memory_used"`
	MemoryUsage float64 `json:"memory_usage_percent"`
	ProcessMem  float64 `json:"process_memory_mb"`
}

// DiskInfo represents the file system holding the database.
type DiskInfo struct {
	Path      string  `json:"path"`
	Fstype    string  `json:"fstype"`
	Total     uint64  `json:"total"`
	Used      uint64  `json:"used"`
	Free      uint64  `json:"free"`
	UsagePerc float64 `json:"usage_percent"`
}

// systemInfo handles GET /api/v1/system. Host details that cannot be read
// are left empty rather than failing the request.
func (s *Server) systemInfo(c echo.Context) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	info := SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		Hostname:     hostname,
		AppStart:     s.startTime,
		AppUptime:    int64(time.Since(s.startTime).Seconds()),
		NumCPU:       runtime.NumCPU(),
		GoVersion:    runtime.Version(),
		Version:      s.info.Version(),
		SystemID:     s.info.SystemID(),
	}

	if hostInfo, err := host.InfoWithContext(c.Request().Context()); err == nil {
		info.Platform = hostInfo.Platform
		info.PlatformVer = hostInfo.PlatformVersion
		info.KernelVersion = hostInfo.KernelVersion
		info.UpTime = hostInfo.Uptime
	} else {
		s.log.Debug("host information unavailable", logger.Error(err))
	}

	info.Resources = s.resourceInfo(c)

	if usage, err := disk.UsageWithContext(c.Request().Context(), s.config.DiskPath); err == nil {
		info.Disk = &DiskInfo{
			Path:      usage.Path,
			Fstype:    usage.Fstype,
			Total:     usage.Total,
			Used:      usage.Used,
			Free:      usage.Free,
			UsagePerc: usage.UsedPercent,
		}
	} else {
		s.log.Debug("disk usage unavailable",
			logger.String("path", s.config.DiskPath),
			logger.Error(err))
	}

	return c.JSON(http.StatusOK, info)
}

func (s *Server) resourceInfo(c echo.Context) *ResourceInfo {
	ctx := c.Request().Context()
	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		s.log.Debug("memory information unavailable", logger.Error(err))
		return nil
	}
	res := &ResourceInfo{
		MemoryTotal: memInfo.Total,
		MemoryUsed:  memInfo.Used,
		MemoryUsage: memInfo.UsedPercent,
	}

	// Zero interval compares against the previous call, so the request
	// does not block for a sampling period.
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		res.CPUUsage = pct[0]
	}
	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mi, err := proc.MemoryInfoWithContext(ctx); err == nil {
			res.ProcessMem = float64(mi.RSS) / 1024 / 1024
		}
	}
	return res
}

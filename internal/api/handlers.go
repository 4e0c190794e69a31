package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ryzhenkov/countd/internal/config"
)

// handleReset unconditionally stops and zeroes the timer.
func (s *RESTServer) handleReset(c *gin.Context) {
	snap := s.timer.Reset()
	s.store.Save(snap)
	c.JSON(http.StatusOK, gin.H{"status": "reset", "seconds": snap.Seconds})
}

// handleStart begins the countdown.
func (s *RESTServer) handleStart(c *gin.Context) {
	snap := s.timer.Start()
	s.store.Save(snap)
	c.JSON(http.StatusOK, gin.H{"status": "started", "seconds": snap.Seconds})
}

// handlePause stops the countdown, keeping the remaining time.
func (s *RESTServer) handlePause(c *gin.Context) {
	snap := s.timer.Pause()
	s.store.Save(snap)
	c.JSON(http.StatusOK, gin.H{"status": "paused", "seconds": snap.Seconds})
}

// handleAdjust adds a signed number of seconds to the timer, flooring at
// zero. A missing or non-integer delta is rejected without mutating state.
func (s *RESTServer) handleAdjust(c *gin.Context) {
	delta, err := intQuery(c, "delta")
	if err != nil {
		respondBadRequest(c, err, true)
		return
	}

	snap := s.timer.Adjust(delta)
	s.store.Save(snap)
	c.JSON(http.StatusOK, gin.H{"status": "adjusted", "seconds": snap.Seconds})
}

// handleSet replaces the remaining time, flooring at zero. A missing or
// non-integer value is rejected without mutating state.
func (s *RESTServer) handleSet(c *gin.Context) {
	seconds, err := intQuery(c, "seconds")
	if err != nil {
		respondBadRequest(c, err, true)
		return
	}

	snap := s.timer.Set(seconds)
	s.store.Save(snap)
	c.JSON(http.StatusOK, gin.H{"status": "set", "seconds": snap.Seconds})
}

// handleGet returns the current state without mutating it.
func (s *RESTServer) handleGet(c *gin.Context) {
	p := s.timer.Payload()
	c.JSON(http.StatusOK, gin.H{"seconds": p.Seconds, "running": p.Running})
}

// handleHealthz returns server health for container orchestration.
func (s *RESTServer) handleHealthz(c *gin.Context) {
	p := s.timer.Payload()

	persistence := gin.H{"status": "ok"}
	if _, err := os.Stat(s.store.Path()); err != nil {
		if os.IsNotExist(err) {
			persistence["status"] = "empty"
		} else {
			persistence["status"] = "error"
			persistence["error"] = err.Error()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"version":     config.Version,
		"uptime":      formatUptime(time.Since(s.startTime)),
		"seconds":     p.Seconds,
		"running":     p.Running,
		"subscribers": s.hub.ClientCount(),
		"persistence": persistence,
	})
}

// intQuery parses a required integer query parameter.
func intQuery(c *gin.Context, name string) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return 0, errors.New("missing required parameter: " + name)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parameter %s must be an integer", name)
	}
	return value, nil
}

// formatUptime returns a human-readable uptime string
func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

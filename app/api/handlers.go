package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/race-comb/app/ingest"
)

func NewHandler(runCtx context.Context, runner RunStarter, configCache ProviderConfigs, events EventReader) *Handler {
	return &Handler{
		runCtx:      runCtx,
		runner:      runner,
		configCache: configCache,
		events:      events,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.events.CountEvents(c.Request.Context()); err == nil {
		health["events"] = count
	} else {
		slog.Error("Database error", "operation", "count_events", "error", err)
	}

	health["loaded_configurations"] = h.configCache.GetConfigCount()

	if active := h.runner.Tracker().Active(); active != "" {
		health["active_run_id"] = active
	}

	c.JSON(http.StatusOK, health)
}

// APIStartRun starts an ingestion run. Providers come from the JSON body or
// repeated ?provider= parameters; none means every enabled provider. With
// ?wait=true the response is the finished report.
func (h *Handler) APIStartRun(c *gin.Context) {
	var req startRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}
	filter := append(req.Providers, c.QueryArray("provider")...)

	id, done, err := h.runner.Start(h.runCtx, filter)
	if errors.Is(err, ingest.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{
			"error":         "Run already in progress",
			"active_run_id": h.runner.Tracker().Active(),
		})
		return
	}
	if err != nil {
		slog.Error("Error starting run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start run", "details": err.Error()})
		return
	}

	slog.Info("Ingestion run triggered", "run_id", id, "providers", filter)

	wait, _ := strconv.ParseBool(c.Query("wait"))
	if !wait {
		c.JSON(http.StatusAccepted, gin.H{
			"run_id":     id,
			"status":     ingest.StateRunning,
			"status_url": "/api/runs/" + id,
		})
		return
	}

	select {
	case report := <-done:
		c.JSON(http.StatusOK, report)
	case <-c.Request.Context().Done():
		// the client left; the run carries on and stays queryable by id
		slog.Debug("Client stopped waiting for run", "run_id", id)
	}
}

func (h *Handler) APIGetRun(c *gin.Context) {
	id := c.Param("id")
	status, ok := h.runner.Tracker().Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) APICurrentRun(c *gin.Context) {
	tracker := h.runner.Tracker()
	active := tracker.Active()
	if active == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No run in progress"})
		return
	}
	status, ok := tracker.Get(active)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No run in progress"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) APIListRuns(c *gin.Context) {
	runs := h.runner.Tracker().Recent()
	c.JSON(http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *Handler) APIListProviders(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	counts, err := h.events.CountEventsByPlatform(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "count_events_by_platform", "error", err)
	}

	list := make([]providerInfo, 0, len(configs))
	for _, config := range configs {
		list = append(list, providerInfo{
			Name:             config.Name,
			Kind:             config.Kind,
			Enabled:          config.Enabled,
			Browser:          config.Browser,
			URLs:             config.URLs(),
			RegionFilter:     config.RegionFilter,
			RequestTimeoutMs: config.RequestTimeoutMs,
			Events:           counts[config.Name],
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	c.JSON(http.StatusOK, map[string]interface{}{
		"providers": list,
		"total":     len(list),
	})
}

func (h *Handler) APIGetEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	ev, err := h.events.GetEvent(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_event", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if ev == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	c.JSON(http.StatusOK, ev)
}

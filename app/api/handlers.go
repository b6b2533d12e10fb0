package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/feed-posse/app/cache"
	"github.com/lysyi3m/feed-posse/app/database"
	"github.com/lysyi3m/feed-posse/app/metrics"
	"github.com/lysyi3m/feed-posse/app/tasks"
)

const maxListLimit = 200

// NewHandler wires the status endpoints. history may be nil when no history
// database is configured.
func NewHandler(store *cache.Store, tracker *tasks.Tracker, history database.PostRepository,
	scheduler tasks.TaskSchedulerInterface, m *metrics.Metrics, version string) *Handler {
	return &Handler{
		store:     store,
		tracker:   tracker,
		history:   history,
		scheduler: scheduler,
		metrics:   m,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	status := h.tracker.Snapshot()

	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"runs":      status.Runs,
	}

	if status.LastError != "" {
		health["last_status"] = "error"
	} else if status.LastResult != nil {
		health["last_status"] = string(status.LastResult.Status)
	}

	if entries, exists, err := h.store.LoadCache(); err == nil {
		health["cache_entries"] = len(entries)
		health["cache_exists"] = exists
	} else {
		slog.Warn("Failed to read cache for health check", "error", err)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	status := h.tracker.Snapshot()

	stats := map[string]interface{}{
		"runs":          status.Runs,
		"failures":      status.Failures,
		"last_run_at":   status.LastRunAt,
		"last_result":   status.LastResult,
		"last_error":    status.LastError,
		"last_post_url": status.LastPostURL,
		"last_post_at":  status.LastPostAt,
	}

	if h.history != nil {
		if count, err := h.history.CountPosts(); err == nil {
			stats["recorded_posts"] = count
		} else {
			slog.Error("Database error", "operation", "count_posts", "error", err)
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListPosts(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "History database not configured"})
		return
	}

	limit := database.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxListLimit)})
			return
		}
		limit = parsed
	}

	records, err := h.history.ListPosts(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	posts := make([]postResponse, 0, len(records))
	for _, r := range records {
		posts = append(posts, postResponse{
			ItemURL:    r.ItemURL,
			PostURL:    r.PostURL,
			Title:      r.Title,
			MediaCount: r.MediaCount,
			PostedAt:   r.PostedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"posts": posts,
		"total": len(posts),
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	if err := h.scheduler.Trigger(); err != nil {
		slog.Warn("Failed to trigger run", "error", err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	slog.Info("Run triggered via API")
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

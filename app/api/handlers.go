package api

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/complaint-comb/app/analysis"
	"github.com/lysyi3m/complaint-comb/app/cache"
	"github.com/lysyi3m/complaint-comb/app/database"
	"github.com/lysyi3m/complaint-comb/app/tasks"
)

func NewHandler(complaints database.ComplaintStore, results cache.Store,
	scheduler tasks.TaskSchedulerInterface, processor tasks.Processor,
	taskTTL time.Duration, version string) *Handler {
	return &Handler{
		complaints: complaints,
		results:    results,
		scheduler:  scheduler,
		processor:  processor,
		taskTTL:    taskTTL,
		version:    version,
	}
}

func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (h *Handler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Geçersiz istek"})
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Lütfen bir mesaj girin"})
		return
	}

	ctx := c.Request.Context()
	task := tasks.NewAnalyzeTask(prompt, h.processor, h.results, h.taskTTL)

	if err := task.MarkProcessing(ctx); err != nil {
		slog.Error("Failed to publish task state", "id", task.GetID(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Görev kaydedilemedi"})
		return
	}

	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue AnalyzeTask", "id", task.GetID(), "error", err)
		if markErr := task.MarkFailed(ctx, err.Error()); markErr != nil {
			slog.Error("Failed to publish task state", "id", task.GetID(), "error", markErr)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Sistem meşgul, lütfen daha sonra tekrar deneyin"})
		return
	}

	slog.Debug("AnalyzeTask enqueued", "id", task.GetID())

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": task.GetID(),
		"message": "İşleniyor...",
	})
}

func (h *Handler) Status(c *gin.Context) {
	id := c.Param("id")

	var result tasks.Result
	err := h.results.Get(c.Request.Context(), tasks.ResultKey(id), &result)
	if errors.Is(err, cache.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Task bulunamadı"})
		return
	}
	if err != nil {
		slog.Error("Result store error", "operation", "get_result", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Sonuç okunamadı"})
		return
	}

	response := gin.H{
		"success":   true,
		"status":    result.Status,
		"timestamp": result.UpdatedAt.Format(time.RFC3339),
	}

	switch result.Status {
	case tasks.StatusCompleted:
		if result.Outcome != nil {
			response["result"] = outcomePayload(*result.Outcome)
		}
	case tasks.StatusError:
		response["error"] = result.Error
	}

	c.JSON(http.StatusOK, response)
}

// Charts returns the charts of the most recent successful analysis.
func (h *Handler) Charts(c *gin.Context) {
	var outcome analysis.Outcome
	err := h.results.Get(c.Request.Context(), tasks.LatestKey, &outcome)
	if errors.Is(err, cache.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Henüz analiz yapılmadı"})
		return
	}
	if err != nil {
		slog.Error("Result store error", "operation", "get_latest", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Sonuç okunamadı"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"description":    outcome.Description,
		"category_chart": chartBase64(outcome.CategoryChartPath),
		"reason_chart":   chartBase64(outcome.ReasonChartPath),
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	health := map[string]any{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"cache":     h.results.Health(ctx),
	}

	status := http.StatusOK
	if _, _, err := h.complaints.Counts(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		health["status"] = "unhealthy"
		health["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	total, categorized, err := h.complaints.Counts(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "counts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	stats := map[string]any{
		"total_complaints":       total,
		"categorized_complaints": categorized,
		"uncategorized":          total - categorized,
	}

	earliest, latest, err := h.complaints.DateRange(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "date_range", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if earliest != nil && latest != nil {
		stats["earliest"] = earliest.Format(database.TimeLayout)
		stats["latest"] = latest.Format(database.TimeLayout)
	}

	c.JSON(http.StatusOK, stats)
}

func outcomePayload(o analysis.Outcome) gin.H {
	payload := gin.H{
		"success": o.Success,
		"type":    o.Type,
	}

	if !o.Success {
		payload["error"] = o.Error
		return payload
	}

	switch o.Type {
	case analysis.TypeChat:
		payload["message"] = o.Message
	case analysis.TypeAnalysis:
		payload["description"] = o.Description
		payload["data_info"] = gin.H{
			"total_found":         o.TotalFound,
			"uncategorized_count": o.UncategorizedCount,
			"new_records":         o.NewRecords,
			"new_assignments":     o.NewAssignments,
			"stats_only":          o.StatsOnly,
		}
		payload["category_stats"] = o.CategoryStats
		payload["reason_stats"] = o.ReasonStats
		payload["category_chart"] = chartBase64(o.CategoryChartPath)
		payload["reason_chart"] = chartBase64(o.ReasonChartPath)
	}

	return payload
}

// chartBase64 returns the PNG at path as base64, or nil when there is none.
func chartBase64(path string) any {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Chart file unavailable", "path", path, "error", err)
		return nil
	}

	return base64.StdEncoding.EncodeToString(data)
}

package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"innerlab/internal/db"
	"innerlab/internal/docstore"
)

// RecentEvents lists the newest analytics events for the admin UI.
// Query params: limit (default 50, max 200), kind (optional filter).
func RecentEvents(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		limit := 50
		if v := string(ctx.QueryArgs().Peek("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		if limit > 200 {
			limit = 200
		}

		q := gdb.Model(&docstore.Document{}).
			Where("collection = ?", "events").
			Order("created_at DESC").
			Limit(limit)
		if kind := string(ctx.QueryArgs().Peek("kind")); kind != "" {
			q = q.Where("data->>'kind' = ?", kind)
		}

		var docs []docstore.Document
		if err := q.Find(&docs).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "storage_error", "failed to load events")
			return
		}

		events := make([]map[string]any, 0, len(docs))
		for _, doc := range docs {
			events = append(events, map[string]any{
				"id":         doc.DocID,
				"created_at": doc.CreatedAt.Format(time.RFC3339Nano),
				"data":       doc.Data,
			})
		}

		ctx.SetContentType("application/json")
		body, _ := json.Marshal(map[string]any{"events": events})
		ctx.SetBody(body)
	}
}

// ActivationStats returns the daily rollups plus all-time totals.
func ActivationStats(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		days := 30
		if v := string(ctx.QueryArgs().Peek("days")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
				days = n
			}
		}

		var rollups []db.ActivationRollup
		if err := gdb.Order("day_start DESC").Limit(days).Find(&rollups).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "storage_error", "failed to load rollups")
			return
		}

		type totals struct {
			Events      int64
			Saves       int64
			Activations int64
		}
		var t totals
		if err := gdb.Model(&db.ActivationRollup{}).
			Select("COALESCE(SUM(event_count),0) AS events, COALESCE(SUM(save_count),0) AS saves, COALESCE(SUM(activation_count),0) AS activations").
			Scan(&t).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "storage_error", "failed to load totals")
			return
		}

		daily := make([]map[string]any, 0, len(rollups))
		for _, r := range rollups {
			daily = append(daily, map[string]any{
				"day":         r.DayStart.Format("2006-01-02"),
				"events":      r.EventCount,
				"saves":       r.SaveCount,
				"activations": r.ActivationCount,
			})
		}

		jsonResponse(ctx, map[string]any{
			"daily": daily,
			"totals": map[string]any{
				"events":      t.Events,
				"saves":       t.Saves,
				"activations": t.Activations,
			},
		})
	}
}

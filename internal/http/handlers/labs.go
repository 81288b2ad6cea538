package handlers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"innerlab/internal/activation"
	"innerlab/internal/docstore"
)

const labEntriesCollection = "lab_entries"

type saveEntryRequest struct {
	// Parts are the free-text content fields of the lab form, in
	// form order. Individual parts may be empty.
	Parts []string `json:"parts"`
}

// SaveLabEntry writes the caller's entry for a lab, then feeds the
// save through the activation pipeline. The pipeline runs after the
// primary write and its failures never surface to the caller.
func SaveLabEntry(store docstore.Store, pipeline *activation.Pipeline, log *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		claims, ok := MustClaims(ctx)
		if !ok {
			return
		}

		labID := routeParam(ctx, "labId")
		if labID == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid_request", "lab id required")
			return
		}

		var req saveEntryRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}

		// No usable content at all is a validation error, distinct
		// from content that merely falls below the activation bar.
		hasContent := false
		for _, part := range req.Parts {
			if strings.TrimSpace(part) != "" {
				hasContent = true
				break
			}
		}
		if !hasContent {
			errResponse(ctx, fasthttp.StatusBadRequest, "empty_content", "no content supplied")
			return
		}

		entryID := claims.UserID + ":" + labID
		parts := make([]any, len(req.Parts))
		for i, p := range req.Parts {
			parts[i] = p
		}
		err := store.Set(ctx, labEntriesCollection, entryID, docstore.Fields{
			"user_id":  claims.UserID,
			"lab_id":   labID,
			"parts":    parts,
			"saved_at": time.Now().UTC().Format(time.RFC3339Nano),
		}, false)
		if err != nil {
			log.Error("lab entry write failed",
				zap.String("user_id", claims.UserID),
				zap.String("lab_id", labID),
				zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "storage_error", "failed to save entry")
			return
		}

		result := pipeline.ProcessSave(ctx, activation.SaveAction{
			UserID:    claims.UserID,
			SessionID: claims.SessionID,
			LabID:     labID,
			Parts:     req.Parts,
		})

		jsonResponse(ctx, map[string]any{
			"lab_id":               labID,
			"word_count":           result.Metrics.WordCount,
			"char_count":           result.Metrics.CharCount,
			"size_bucket":          result.Metrics.SizeBucket,
			"meaningful":           result.Metrics.Meaningful,
			"activation_triggered": result.ActivationTriggered,
		})
	}
}

// GetLabEntry returns the caller's saved entry for a lab.
func GetLabEntry(store docstore.Store) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		claims, ok := MustClaims(ctx)
		if !ok {
			return
		}

		labID := routeParam(ctx, "labId")
		if labID == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid_request", "lab id required")
			return
		}

		doc, err := store.Get(ctx, labEntriesCollection, claims.UserID+":"+labID)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				errResponse(ctx, fasthttp.StatusNotFound, "not_found", "no entry for this lab")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "storage_error", "failed to load entry")
			return
		}

		jsonResponse(ctx, map[string]any{
			"lab_id":   labID,
			"parts":    doc["parts"],
			"saved_at": doc["saved_at"],
		})
	}
}

package db

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"innerlab/internal/activation"
	"innerlab/internal/docstore"
)

// runRollupOnce aggregates the events collection for one UTC day
// (dayStart to dayStart+24h) into an ActivationRollup row. Call with
// dayStart truncated to midnight UTC.
func runRollupOnce(db *gorm.DB, dayStart time.Time) error {
	dayEnd := dayStart.Add(24 * time.Hour)

	type kindCount struct {
		Kind  string
		Count int64
	}
	var rows []kindCount
	err := db.Model(&docstore.Document{}).
		Select("data->>'kind' AS kind, COUNT(*) AS count").
		Where("collection = ? AND created_at >= ? AND created_at < ?", "events", dayStart, dayEnd).
		Group("data->>'kind'").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	rollup := ActivationRollup{DayStart: dayStart}
	for _, rc := range rows {
		rollup.EventCount += rc.Count
		switch rc.Kind {
		case activation.EventLabEntrySaved:
			rollup.SaveCount = rc.Count
		case activation.EventActivationReached:
			rollup.ActivationCount = rc.Count
		}
	}

	var existing ActivationRollup
	err = db.Where("day_start = ?", dayStart).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return db.Create(&rollup).Error
	}
	if err != nil {
		return err
	}
	return db.Model(&existing).Updates(map[string]interface{}{
		"event_count":      rollup.EventCount,
		"save_count":       rollup.SaveCount,
		"activation_count": rollup.ActivationCount,
	}).Error
}

// StartRollupWorker recomputes the current and previous UTC day at
// startup, then re-runs both once per hour. Re-running the current day
// keeps the stats endpoint fresh without waiting for day close.
func StartRollupWorker(db *gorm.DB, log *zap.Logger) {
	run := func(now time.Time) {
		today := now.UTC().Truncate(24 * time.Hour)
		for _, day := range []time.Time{today.Add(-24 * time.Hour), today} {
			if err := runRollupOnce(db, day); err != nil {
				log.Warn("rollup failed",
					zap.Time("day", day),
					zap.Error(err))
			}
		}
	}

	go func() {
		run(time.Now())

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for t := range ticker.C {
			run(t)
		}
	}()
}

// Package usage persists per-agent usage records and enforces the
// free-tier monthly quota.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hykang/chorus/catalog"
	"github.com/hykang/chorus/types"
)

// FreeMonthlyQuota is how many successful assistant responses a
// free-plan user may generate per calendar month.
const FreeMonthlyQuota = 100

// Record is one billed agent response.
type Record struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         string    `gorm:"index;not null"`
	ConversationID string    `gorm:"index;not null"`
	AgentID        string    `gorm:"not null"`
	Model          string    `gorm:"not null"`
	Mode           string    `gorm:"not null"`
	Tokens         int       `gorm:"not null"`
	Cost           float64   `gorm:"not null"`
	Success        bool      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"index"`
}

// TableName pins the table name independent of gorm's pluralization.
func (Record) TableName() string { return "usage_records" }

// MonthlySummary aggregates a user's usage for one calendar month.
type MonthlySummary struct {
	Responses int64   `json:"responses"`
	Tokens    int64   `json:"tokens"`
	Cost      float64 `json:"cost"`
	Quota     int64   `json:"quota,omitempty"`
	Remaining int64   `json:"remaining,omitempty"`
}

// Ledger is the gorm-backed usage store.
type Ledger struct {
	db     *gorm.DB
	logger *zap.Logger
}

/// Open opens (or creates) the sqlite database at path. Use ":memory:"
// for an ephemeral database.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open usage database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap usage database: %w", err)
	}
	// sqlite serializes writers anyway; a small pool avoids lock churn.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// NewLedger migrates the schema and returns the ledger.
func NewLedger(db *gorm.DB, log *zap.Logger) (*Ledger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate usage schema: %w", err)
	}
	return &Ledger{db: db, logger: log.With(zap.String("component", "usage"))}, nil
}

// RecordTurn writes one row per agent response of a completed turn.
// Failed responses are recorded too, with zero tokens and cost, so the
// ledger reflects every invocation; only successful rows count against
// the quota.
func (l *Ledger) RecordTurn(ctx context.Context, userID, conversationID, mode string, responses []types.AgentResponse) error {
	if len(responses) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]Record, 0, len(responses))
	for _, r := range responses {
		rows = append(rows, Record{
			UserID:         userID,
			ConversationID: conversationID,
			AgentID:        r.AgentID,
			Model:          r.Model,
			Mode:           mode,
			Tokens:         r.Tokens,
			Cost:           r.Cost,
			Success:        r.Status == types.StatusOK,
			CreatedAt:      now,
		})
	}

	if err := l.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("record usage: %w", err)
	}

	l.logger.Debug("usage recorded",
		zap.String("user_id", userID),
		zap.String("conversation_id", conversationID),
		zap.Int("rows", len(rows)),
	)
	return nil
}

// MonthlyResponseCount counts the user's successful responses since the
// start of the calendar month containing now.
func (l *Ledger) MonthlyResponseCount(ctx context.Context, userID string, now time.Time) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).
		Model(&Record{}).
		Where("user_id = ? AND success = ? AND created_at >= ?", userID, true, startOfMonth(now)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count monthly usage: %w", err)
	}
	return count, nil
}

// CheckQuota fails with QUOTA_EXCEEDED when a free-plan user has
// exhausted the monthly allowance. Paid plans are unmetered.
func (l *Ledger) CheckQuota(ctx context.Context, userID, plan string, now time.Time) error {
	if plan != catalog.PlanFree {
		return nil
	}
	used, err := l.MonthlyResponseCount(ctx, userID, now)
	if err != nil {
		return err
	}
	if used >= FreeMonthlyQuota {
		return types.NewError(types.ErrQuotaExceeded,
			fmt.Sprintf("monthly quota exhausted: %d/%d responses used", used, FreeMonthlyQuota)).
			WithHTTPStatus(429)
	}
	return nil
}

// Summary reports the user's usage for the calendar month containing
// now. Quota and Remaining are filled for the free plan only.
func (l *Ledger) Summary(ctx context.Context, userID, plan string, now time.Time) (*MonthlySummary, error) {
	var out struct {
		Responses int64
		Tokens    int64
		Cost      float64
	}
	err := l.db.WithContext(ctx).
		Model(&Record{}).
		Select("COUNT(*) AS responses, COALESCE(SUM(tokens), 0) AS tokens, COALESCE(SUM(cost), 0) AS cost").
		Where("user_id = ? AND success = ? AND created_at >= ?", userID, true, startOfMonth(now)).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("summarize usage: %w", err)
	}

	summary := &MonthlySummary{Responses: out.Responses, Tokens: out.Tokens, Cost: out.Cost}
	if plan == catalog.PlanFree {
		summary.Quota = FreeMonthlyQuota
		summary.Remaining = FreeMonthlyQuota - out.Responses
		if summary.Remaining < 0 {
			summary.Remaining = 0
		}
	}
	return summary, nil
}

func startOfMonth(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

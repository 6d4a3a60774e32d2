package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"thalrakshak-assistant/internal/models"

	"go.uber.org/zap"
)

// InventoryRepository 血库库存仓库（blood_inventory 表，每行一个城市 × 血型）
type InventoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInventoryRepository 创建库存仓库
func NewInventoryRepository(db *sql.DB, logger *zap.Logger) *InventoryRepository {
	return &InventoryRepository{
		db:     db,
		logger: logger,
	}
}

// Fetch 读取全部库存并汇总为快照（实现 inventory.Fetcher）
func (r *InventoryRepository) Fetch(ctx context.Context) (*models.InventorySnapshot, error) {
	query := `
		SELECT 
			city,
			blood_type,
			units,
			updated_at
		FROM blood_inventory
		ORDER BY city, blood_type
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query blood inventory: %w", err)
	}
	defer rows.Close()

	snapshot := &models.InventorySnapshot{
		Units:  make(map[models.BloodType]int),
		Cities: make(map[string]map[models.BloodType]int),
		Source: models.SourceLive,
	}
	var latest time.Time
	skipped := 0

	for rows.Next() {
		var (
			city      string
			bloodType string
			units     int
			updatedAt time.Time
		)
		if err := rows.Scan(&city, &bloodType, &units, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan blood inventory row: %w", err)
		}

		bt := models.BloodType(bloodType)
		if !bt.Valid() || units < 0 {
			skipped++
			continue
		}

		snapshot.Units[bt] += units
		if city != "" {
			if snapshot.Cities[city] == nil {
				snapshot.Cities[city] = make(map[models.BloodType]int)
			}
			snapshot.Cities[city][bt] += units
		}
		if updatedAt.After(latest) {
			latest = updatedAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blood inventory: %w", err)
	}

	if skipped > 0 {
		r.logger.Warn("Skipped invalid blood inventory rows",
			zap.Int("skipped", skipped),
		)
	}
	if len(snapshot.Cities) == 0 {
		snapshot.Cities = nil
	}
	if latest.IsZero() {
		latest = time.Now()
	}
	snapshot.FetchedAt = latest

	return snapshot, nil
}

// SetUnits 写入某城市某血型的单位数（推送更新落库）
func (r *InventoryRepository) SetUnits(ctx context.Context, city string, bt models.BloodType, units int) error {
	if !bt.Valid() {
		return fmt.Errorf("invalid blood type: %q", bt)
	}
	if units < 0 {
		return fmt.Errorf("negative unit count for %s: %d", bt, units)
	}

	query := `
		INSERT INTO blood_inventory (city, blood_type, units, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (city, blood_type)
		DO UPDATE SET units = EXCLUDED.units, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, city, string(bt), units); err != nil {
		return fmt.Errorf("failed to upsert blood inventory: %w", err)
	}
	return nil
}

// SaveSnapshot 按城市明细写入快照（无城市明细时 city 为空串）
func (r *InventoryRepository) SaveSnapshot(ctx context.Context, snapshot *models.InventorySnapshot) error {
	if snapshot == nil {
		return nil
	}
	if len(snapshot.Cities) == 0 {
		for _, bt := range models.AllBloodTypes {
			if n, ok := snapshot.Units[bt]; ok {
				if err := r.SetUnits(ctx, "", bt, n); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, city := range snapshot.CityNames() {
		for _, bt := range models.AllBloodTypes {
			if n, ok := snapshot.Cities[city][bt]; ok {
				if err := r.SetUnits(ctx, city, bt, n); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mentor-portal-api/internal/models"
)

// ConfigurationRepository persists key/value settings, including the
// attendance window.
type ConfigurationRepository struct {
	db *sqlx.DB
}

// NewConfigurationRepository constructs the repository.
func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// ListByKeys returns configurations whose key is in the provided slice.
func (r *ConfigurationRepository) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT key, value, type, description, updated_by, updated_at
FROM configurations WHERE key IN (%s) ORDER BY key ASC`, placeholders(len(keys)))
	args := make([]interface{}, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	var configs []models.Configuration
	if err := r.db.SelectContext(ctx, &configs, query, args...); err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	return configs, nil
}

// BulkUpsert performs upserts within a transaction.
func (r *ConfigurationRepository) BulkUpsert(ctx context.Context, cfgs []models.Configuration) error {
	if len(cfgs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk configuration tx: %w", err)
	}
	const query = `INSERT INTO configurations (key, value, type, description, updated_by, updated_at)
VALUES (:key, :value, :type, :description, :updated_by, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type, description = EXCLUDED.description,
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range cfgs {
		cfgs[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, cfgs[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bulk upsert configuration: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk configuration tx: %w", err)
	}
	return nil
}

// GetWindow returns the attendance window, or nil when either bound is unset.
func (r *ConfigurationRepository) GetWindow(ctx context.Context) (*models.AttendanceWindow, error) {
	items, err := r.ListByKeys(ctx, []string{models.ConfigKeyAttendanceStart, models.ConfigKeyAttendanceEnd})
	if err != nil {
		return nil, err
	}
	window := &models.AttendanceWindow{}
	for _, item := range items {
		switch item.Key {
		case models.ConfigKeyAttendanceStart:
			window.StartDate = item.Value
		case models.ConfigKeyAttendanceEnd:
			window.EndDate = item.Value
		}
		if item.UpdatedBy != nil {
			window.UpdatedBy = item.UpdatedBy
		}
		updated := item.UpdatedAt
		if window.UpdatedAt == nil || updated.After(*window.UpdatedAt) {
			window.UpdatedAt = &updated
		}
	}
	if window.StartDate == "" || window.EndDate == "" {
		return nil, nil
	}
	return window, nil
}

// SaveWindow overwrites both bounds in one transaction.
func (r *ConfigurationRepository) SaveWindow(ctx context.Context, window models.AttendanceWindow) error {
	startDesc := "First date attendance can be taken"
	endDesc := "Last date attendance can be taken"
	return r.BulkUpsert(ctx, []models.Configuration{
		{Key: models.ConfigKeyAttendanceStart, Value: window.StartDate, Type: models.ConfigurationTypeDate, Description: &startDesc, UpdatedBy: window.UpdatedBy},
		{Key: models.ConfigKeyAttendanceEnd, Value: window.EndDate, Type: models.ConfigurationTypeDate, Description: &endDesc, UpdatedBy: window.UpdatedBy},
	})
}

func placeholders(n int) string {
	values := make([]string, n)
	for i := 1; i <= n; i++ {
		values[i-1] = fmt.Sprintf("$%d", i)
	}
	return strings.Join(values, ",")
}

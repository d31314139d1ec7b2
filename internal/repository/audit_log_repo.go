package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/cms_api/internal/models"
)

// AuditLogRepository is the append-only store for audit entries. It has no
// update or delete methods.
type AuditLogRepository struct {
	db *sqlx.DB
}

// NewAuditLogRepository creates a new AuditLogRepository.
func NewAuditLogRepository(db *sqlx.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Insert appends one entry.
func (r *AuditLogRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, timestamp, event_type, performed_by, target_user, ip_address, details, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID,
		entry.Timestamp,
		entry.EventType,
		entry.PerformedBy,
		nullString(entry.TargetUser),
		nullString(entry.IPAddress),
		detailsJSON,
		entry.Success,
	)
	return err
}

// Query returns up to filter.Limit entries matching every set filter, newest
// first, strictly after filter.After when given.
func (r *AuditLogRepository) Query(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	where := `WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filter.StartDate != nil {
		where += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil {
		where += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.EventType != "" {
		where += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if filter.PerformedBy != "" {
		where += fmt.Sprintf(" AND performed_by = $%d", argIdx)
		args = append(args, filter.PerformedBy)
		argIdx++
	}
	if filter.TargetUser != "" {
		where += fmt.Sprintf(" AND target_user = $%d", argIdx)
		args = append(args, filter.TargetUser)
		argIdx++
	}
	if filter.After != nil {
		where += fmt.Sprintf(" AND (timestamp, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.After.Timestamp, filter.After.ID)
		argIdx += 2
	}

	query := fmt.Sprintf(`SELECT id, timestamp, event_type, performed_by, target_user, ip_address, details, success
		FROM audit_logs %s
		ORDER BY timestamp DESC, id DESC
		LIMIT $%d`, where, argIdx)
	args = append(args, filter.Limit)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.AuditLog{}
	for rows.Next() {
		var (
			e           models.AuditLog
			target, ip  sql.NullString
			detailsJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.EventType, &e.PerformedBy, &target, &ip, &detailsJSON, &e.Success); err != nil {
			return nil, err
		}
		e.TargetUser = stringPtr(target)
		e.IPAddress = stringPtr(ip)
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details %s: %w", e.ID, err)
			}
		}
		if e.Details == nil {
			e.Details = map[string]any{}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

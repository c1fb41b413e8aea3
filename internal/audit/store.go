package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 200
	MaxPage      = 1_000_000
)

// Store reads and writes audit_logs through database/sql.
type Store struct {
	db *sql.DB
}

// NewStore constructs a Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Log appends rec. An empty UserIP is taken from ctx.
func (s *Store) Log(ctx context.Context, rec model.AuditRecord) error {
	if rec.UserIP == "" {
		rec.UserIP = ClientIP(ctx)
	}
	details := "{}"
	if len(rec.Details) > 0 {
		details = string(rec.Details)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (action, entity_type, entity_id, details, user_ip) VALUES ($1, $2, $3, $4, $5)`,
		string(rec.Action), rec.EntityType, rec.EntityID, details, rec.UserIP,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// List returns one page of records, newest first.
func (s *Store) List(ctx context.Context, f model.AuditFilter) (*model.AuditPage, error) {
	f = normalize(f)

	where, args := whereClause(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}

	n := len(args)
	query := `SELECT id, action, entity_type, entity_id, details, user_ip, timestamp FROM audit_logs` + where +
		fmt.Sprintf(` ORDER BY timestamp DESC, id DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	records := []model.AuditRecord{}
	for rows.Next() {
		var (
			rec     model.AuditRecord
			action  string
			details []byte
		)
		if err := rows.Scan(&rec.ID, &action, &rec.EntityType, &rec.EntityID, &details, &rec.UserIP, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		rec.Action = model.AuditAction(action)
		rec.Details = details
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}

	return &model.AuditPage{
		Records: records,
		Pagination: model.Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: (total + f.Limit - 1) / f.Limit,
		},
	}, nil
}

// Stats counts records in total and per action.
func (s *Store) Stats(ctx context.Context) (*model.AuditStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action, COUNT(*) FROM audit_logs GROUP BY action ORDER BY COUNT(*) DESC, action`)
	if err != nil {
		return nil, fmt.Errorf("query audit stats: %w", err)
	}
	defer rows.Close()

	stats := &model.AuditStats{Actions: []model.ActionCount{}}
	for rows.Next() {
		var (
			action string
			count  int
		)
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("scan audit stats: %w", err)
		}
		stats.Actions = append(stats.Actions, model.ActionCount{Action: model.AuditAction(action), Count: count})
		stats.TotalLogs += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit stats: %w", err)
	}
	return stats, nil
}

func normalize(f model.AuditFilter) model.AuditFilter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	return f
}

func whereClause(f model.AuditFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Action != "" {
		args = append(args, f.Action)
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	if f.EntityType != "" {
		args = append(args, f.EntityType)
		conds = append(conds, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/quantenergx/filing-gateway/internal/audit"
	"github.com/quantenergx/filing-gateway/internal/domain"
)

// AuditRepo — долговременный архив аудит-событий. Оперативный леджер
// живет в памяти, сюда события стекают пачками через конвейер.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(connString string) *AuditRepo {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		// В main мы проверим соединение через Ping
		log.Fatal(err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &AuditRepo{db: db}
}

// WriteBatch пишет пачку событий одним INSERT
func (r *AuditRepo) WriteBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	// Количество колонок в таблице audit_entries
	numFields := 8
	placeholderStr := ""
	vals := make([]interface{}, 0, len(entries)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range entries {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8)

		details, _ := json.Marshal(e.Details)

		vals = append(vals,
			e.ID, e.Timestamp, e.UserID, e.Action,
			details, e.Region, e.IPAddress, e.UserAgent,
		)
	}

	// Убираем лишнюю запятую в конце
	query := fmt.Sprintf(
		"INSERT INTO audit_entries (id, timestamp, user_id, action, details, region, ip_address, user_agent) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.db.ExecContext(ctx, query, vals...)
	return err
}

// FetchLogs читает архив с фильтрацией. Пустые значения фильтра
// означают "без ограничения" по соответствующей колонке.
func (r *AuditRepo) FetchLogs(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	query := `
		SELECT id, timestamp, user_id, action, details, region, ip_address, user_agent
		FROM audit_entries WHERE 1=1`
	var args []interface{}

	addCond := func(cond string, val interface{}) {
		args = append(args, val)
		query += fmt.Sprintf(" AND %s $%d", cond, len(args))
	}

	if f.UserID != "" {
		addCond("user_id =", f.UserID)
	}
	if f.Region != "" {
		addCond("region =", f.Region)
	}
	if f.Action != "" {
		addCond("action ILIKE", "%"+f.Action+"%")
	}
	if !f.From.IsZero() {
		addCond("timestamp >=", f.From)
	}
	if !f.To.IsZero() {
		addCond("timestamp <=", f.To)
	}
	query += " ORDER BY timestamp DESC LIMIT 1000"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to fetch audit entries: %w", err)
	}
	defer rows.Close()

	var out []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.UserID, &e.Action, &details, &e.Region, &e.IPAddress, &e.UserAgent); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("postgres: corrupt details for entry %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetDashboardStats считает агрегаты по действиям за последние 24 часа
func (r *AuditRepo) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	d := &domain.DashboardStats{}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE action = 'submission_started'),
			COUNT(*) FILTER (WHERE action = 'submission_completed'),
			COUNT(*) FILTER (WHERE action = 'submission_failed'),
			COUNT(*) FILTER (WHERE action = 'validation_failed')
		FROM audit_entries
		WHERE timestamp > NOW() - INTERVAL '24 hours'`).Scan(
		&d.TotalSubmissions,
		&d.CompletedCount,
		&d.FailedCount,
		&d.ValidationFailures,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to compute dashboard stats: %w", err)
	}
	return d, nil
}

// Ping проверяет доступность базы при старте
func (r *AuditRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

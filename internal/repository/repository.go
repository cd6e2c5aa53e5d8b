// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/caracara/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

const receivableColumns = `
	id_duplicata, chave_nfe, data_emissao, data_vencimento, prazo_dias,
	id_cedente, nome_cedente, cnpj_cedente, estado_cedente, setor_cedente,
	id_sacado, nome_sacado, cnpj_sacado, estado_sacado, setor_sacado,
	produto, valor, aceite_sacado, endossatario, label_fraude, tipo_fraude
`

// SaveReceivables stores a batch of receivables in one transaction.
func (r *SQLRepository) SaveReceivables(ctx context.Context, recs []domain.Receivable) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO duplicatas (` + receivableColumns + `, data_insercao)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.PrepareContext(ctx, r.rebind(query))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range recs {
		rec := &recs[i]
		if rec.ID == "" {
			return fmt.Errorf("%w: id_duplicata is required", ErrInvalidInput)
		}

		accepted := 0
		if rec.Accepted {
			accepted = 1
		}
		var label sql.NullInt64
		if rec.FraudLabel != nil {
			label = sql.NullInt64{Int64: int64(*rec.FraudLabel), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			rec.ID, rec.InvoiceKey, rec.IssuedAt, rec.DueAt, rec.TermDays,
			rec.CreditorID, rec.CreditorName, rec.CreditorTaxID, rec.CreditorState, rec.CreditorSector,
			rec.DebtorID, rec.DebtorName, rec.DebtorTaxID, rec.DebtorState, rec.DebtorSector,
			rec.Product, rec.Amount, accepted, rec.Endorsee, label, rec.FraudType,
			now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func scanReceivable(scan func(...any) error) (*domain.Receivable, error) {
	var rec domain.Receivable
	var accepted int
	var label sql.NullInt64
	var creditorID, debtorID, debtorSector, product, endorsee, fraudType sql.NullString

	err := scan(
		&rec.ID, &rec.InvoiceKey, &rec.IssuedAt, &rec.DueAt, &rec.TermDays,
		&creditorID, &rec.CreditorName, &rec.CreditorTaxID, &rec.CreditorState, &rec.CreditorSector,
		&debtorID, &rec.DebtorName, &rec.DebtorTaxID, &rec.DebtorState, &debtorSector,
		&product, &rec.Amount, &accepted, &endorsee, &label, &fraudType,
	)
	if err != nil {
		return nil, err
	}

	rec.CreditorID = creditorID.String
	rec.DebtorID = debtorID.String
	rec.DebtorSector = debtorSector.String
	rec.Product = product.String
	rec.Endorsee = endorsee.String
	rec.FraudType = fraudType.String
	rec.Accepted = accepted == 1
	if label.Valid {
		v := int(label.Int64)
		rec.FraudLabel = &v
	}
	return &rec, nil
}

// GetReceivable retrieves a receivable by ID.
func (r *SQLRepository) GetReceivable(ctx context.Context, id string) (*domain.Receivable, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	query := `SELECT ` + receivableColumns + ` FROM duplicatas WHERE id_duplicata = ?`
	row := r.db.QueryRowContext(ctx, r.rebind(query), id)

	rec, err := scanReceivable(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListReceivables retrieves receivables in insertion order.
func (r *SQLRepository) ListReceivables(ctx context.Context, limit, offset int) ([]domain.Receivable, error) {
	if limit <= 0 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + receivableColumns + `
		FROM duplicatas
		ORDER BY data_insercao, id_duplicata
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.Receivable
	for rows.Next() {
		rec, err := scanReceivable(rows.Scan)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// CountReceivables returns the total number of stored receivables.
func (r *SQLRepository) CountReceivables(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM duplicatas`).Scan(&count)
	return count, err
}

// CountFrauds returns how many records are labeled and how many of
// those carry a positive label.
func (r *SQLRepository) CountFrauds(ctx context.Context) (labeled, frauds int64, err error) {
	query := `
		SELECT COUNT(label_fraude),
		       COALESCE(SUM(label_fraude), 0)
		FROM duplicatas
		WHERE label_fraude IS NOT NULL
	`
	err = r.db.QueryRowContext(ctx, query).Scan(&labeled, &frauds)
	return labeled, frauds, err
}

// ClearReceivables removes the entire dataset.
func (r *SQLRepository) ClearReceivables(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM duplicatas`)
	return err
}

// FraudTypeDistribution counts labeled frauds per injected pattern.
func (r *SQLRepository) FraudTypeDistribution(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT tipo_fraude, COUNT(*)
		FROM duplicatas
		WHERE label_fraude = 1 AND tipo_fraude IS NOT NULL AND tipo_fraude != ''
		GROUP BY tipo_fraude
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[string]int64)
	for rows.Next() {
		var fraudType string
		var count int64
		if err := rows.Scan(&fraudType, &count); err != nil {
			return nil, err
		}
		dist[fraudType] = count
	}
	return dist, rows.Err()
}

// TopCreditorsByExposure returns the n creditors with the largest
// outstanding amounts, with their fraud counts.
func (r *SQLRepository) TopCreditorsByExposure(ctx context.Context, n int) ([]domain.CreditorExposure, error) {
	if n <= 0 {
		n = 10
	}

	query := `
		SELECT cnpj_cedente, nome_cedente, COUNT(*), SUM(valor),
		       COALESCE(SUM(CASE WHEN label_fraude = 1 THEN 1 ELSE 0 END), 0)
		FROM duplicatas
		GROUP BY cnpj_cedente, nome_cedente
		ORDER BY SUM(valor) DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CreditorExposure
	for rows.Next() {
		var ce domain.CreditorExposure
		if err := rows.Scan(&ce.CreditorTaxID, &ce.CreditorName, &ce.Count, &ce.TotalAmount, &ce.FraudCount); err != nil {
			return nil, err
		}
		out = append(out, ce)
	}
	return out, rows.Err()
}

// DatasetSummary computes headline KPIs over the stored dataset.
func (r *SQLRepository) DatasetSummary(ctx context.Context) (*domain.DatasetSummary, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(valor), 0),
		       COALESCE(AVG(valor), 0),
		       COUNT(DISTINCT cnpj_cedente),
		       COUNT(DISTINCT cnpj_sacado),
		       COUNT(label_fraude),
		       COALESCE(SUM(label_fraude), 0)
		FROM duplicatas
	`

	var s domain.DatasetSummary
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.Total, &s.TotalAmount, &s.AvgAmount,
		&s.Creditors, &s.Debtors, &s.Labeled, &s.Frauds,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveAlertRule stores or updates an alert rule.
func (r *SQLRepository) SaveAlertRule(ctx context.Context, rule *domain.AlertRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO alert_rules (
			id, name, description, expression, severity, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			severity = excluded.severity,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, rule.Name, rule.Description, rule.Expression,
		rule.Severity, enabled, now, now,
	)
	return err
}

// GetAlertRule retrieves an alert rule by ID.
func (r *SQLRepository) GetAlertRule(ctx context.Context, id string) (*domain.AlertRule, error) {
	query := `
		SELECT id, name, description, expression, severity, enabled, created_at, updated_at
		FROM alert_rules
		WHERE id = ?
	`

	var rule domain.AlertRule
	var description sql.NullString
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&rule.ID, &rule.Name, &description, &rule.Expression,
		&rule.Severity, &enabled, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Description = description.String
	rule.Enabled = enabled == 1
	return &rule, nil
}

// ListAlertRules retrieves all enabled alert rules.
func (r *SQLRepository) ListAlertRules(ctx context.Context) ([]*domain.AlertRule, error) {
	query := `
		SELECT id, name, description, expression, severity, enabled, created_at, updated_at
		FROM alert_rules
		WHERE enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.AlertRule
	for rows.Next() {
		var rule domain.AlertRule
		var description sql.NullString
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.Name, &description, &rule.Expression,
			&rule.Severity, &enabled, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rule.Description = description.String
		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

// DeleteAlertRule soft-deletes a rule by setting enabled = 0.
func (r *SQLRepository) DeleteAlertRule(ctx context.Context, id string) error {
	query := `UPDATE alert_rules SET enabled = 0, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveVerdict stores an investigation outcome.
func (r *SQLRepository) SaveVerdict(ctx context.Context, v *domain.Verdict) error {
	if v.ID == "" || v.ReceivableID == "" {
		return fmt.Errorf("%w: verdict id and receivable id are required", ErrInvalidInput)
	}

	notes, _ := json.Marshal(v.Notes)

	query := `
		INSERT INTO verdicts (id, id_duplicata, finding, root_cause, action, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		v.ID, v.ReceivableID, v.Finding, v.RootCause, v.Action,
		string(notes), v.CreatedAt,
	)
	return err
}

// ListVerdicts retrieves the most recent verdicts.
func (r *SQLRepository) ListVerdicts(ctx context.Context, limit int) ([]*domain.Verdict, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, id_duplicata, finding, root_cause, action, notes, created_at
		FROM verdicts
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verdicts []*domain.Verdict
	for rows.Next() {
		var v domain.Verdict
		var rootCause, notes sql.NullString

		if err := rows.Scan(&v.ID, &v.ReceivableID, &v.Finding, &rootCause, &v.Action, &notes, &v.CreatedAt); err != nil {
			return nil, err
		}

		v.RootCause = rootCause.String
		if notes.String != "" {
			json.Unmarshal([]byte(notes.String), &v.Notes)
		}
		verdicts = append(verdicts, &v)
	}
	return verdicts, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

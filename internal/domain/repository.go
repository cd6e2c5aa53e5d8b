package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
type Repository interface {
	// Receivable operations
	SaveReceivables(ctx context.Context, recs []Receivable) error
	GetReceivable(ctx context.Context, id string) (*Receivable, error)
	ListReceivables(ctx context.Context, limit, offset int) ([]Receivable, error)
	CountReceivables(ctx context.Context) (int64, error)
	CountFrauds(ctx context.Context) (labeled, frauds int64, err error)
	ClearReceivables(ctx context.Context) error

	// Analytics
	FraudTypeDistribution(ctx context.Context) (map[string]int64, error)
	TopCreditorsByExposure(ctx context.Context, n int) ([]CreditorExposure, error)
	DatasetSummary(ctx context.Context) (*DatasetSummary, error)

	// Alert rule operations
	SaveAlertRule(ctx context.Context, rule *AlertRule) error
	GetAlertRule(ctx context.Context, id string) (*AlertRule, error)
	ListAlertRules(ctx context.Context) ([]*AlertRule, error)
	DeleteAlertRule(ctx context.Context, id string) error

	// Verdict operations
	SaveVerdict(ctx context.Context, v *Verdict) error
	ListVerdicts(ctx context.Context, limit int) ([]*Verdict, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CreditorExposure aggregates a creditor's footprint in the dataset.
type CreditorExposure struct {
	CreditorTaxID string  `json:"cnpj_cedente"`
	CreditorName  string  `json:"cedente"`
	Count         int64   `json:"quantidade"`
	TotalAmount   float64 `json:"valor_total"`
	FraudCount    int64   `json:"fraudes"`
}

// DatasetSummary holds headline KPIs over the stored dataset.
type DatasetSummary struct {
	Total       int64   `json:"total"`
	TotalAmount float64 `json:"valor_total"`
	AvgAmount   float64 `json:"valor_medio"`
	Creditors   int64   `json:"cedentes"`
	Debtors     int64   `json:"sacados"`
	Labeled     int64   `json:"rotuladas"`
	Frauds      int64   `json:"fraudes"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

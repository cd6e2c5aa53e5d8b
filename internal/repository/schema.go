package repository

// Schema definitions for the Caracara database.
// Compatible with both SQLite and PostgreSQL. Receivable columns keep
// the upstream Portuguese names so BI queries keep working.

const schemaReceivables = `
CREATE TABLE IF NOT EXISTS duplicatas (
    id_duplicata TEXT PRIMARY KEY,
    chave_nfe TEXT NOT NULL,
    data_emissao TIMESTAMP NOT NULL,
    data_vencimento TIMESTAMP NOT NULL,
    prazo_dias INTEGER NOT NULL,
    id_cedente TEXT,
    nome_cedente TEXT NOT NULL,
    cnpj_cedente TEXT NOT NULL,
    estado_cedente TEXT NOT NULL,
    setor_cedente TEXT NOT NULL,
    id_sacado TEXT,
    nome_sacado TEXT NOT NULL,
    cnpj_sacado TEXT NOT NULL,
    estado_sacado TEXT NOT NULL,
    setor_sacado TEXT,
    produto TEXT,
    valor REAL NOT NULL,
    aceite_sacado INTEGER NOT NULL DEFAULT 0,
    endossatario TEXT,
    label_fraude INTEGER,
    tipo_fraude TEXT,
    data_insercao TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_duplicatas_chave_nfe ON duplicatas(chave_nfe);
CREATE INDEX IF NOT EXISTS idx_duplicatas_label ON duplicatas(label_fraude);
CREATE INDEX IF NOT EXISTS idx_duplicatas_cedente ON duplicatas(cnpj_cedente);
CREATE INDEX IF NOT EXISTS idx_duplicatas_sacado ON duplicatas(cnpj_sacado);
`

const schemaAlertRules = `
CREATE TABLE IF NOT EXISTS alert_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    severity TEXT NOT NULL DEFAULT 'warning',
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alert_rules_enabled ON alert_rules(enabled);
`

const schemaVerdicts = `
CREATE TABLE IF NOT EXISTS verdicts (
    id TEXT PRIMARY KEY,
    id_duplicata TEXT NOT NULL,
    finding TEXT NOT NULL,
    root_cause TEXT,
    action TEXT NOT NULL,
    notes TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verdicts_duplicata ON verdicts(id_duplicata);
CREATE INDEX IF NOT EXISTS idx_verdicts_finding ON verdicts(finding);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaReceivables,
		schemaAlertRules,
		schemaVerdicts,
	}
}

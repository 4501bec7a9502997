package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_status') THEN
			CREATE TYPE contract_status AS ENUM ('DRAFT', 'SENT', 'SIGNED', 'ACTIVE', 'EXPIRED', 'CANCELLED');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS students (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		full_name VARCHAR(160) NOT NULL,
		cpf VARCHAR(14) NOT NULL,
		email VARCHAR(160),
		phone VARCHAR(32),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_students_cpf ON students (cpf);`,
	`CREATE TABLE IF NOT EXISTS plans (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(120) NOT NULL,
		monthly_price_cents BIGINT NOT NULL,
		duration_months INT NOT NULL,
		due_day INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS contract_templates (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(120) NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		number VARCHAR(64) NOT NULL,
		template_id UUID NOT NULL REFERENCES contract_templates(id),
		student_id UUID NOT NULL REFERENCES students(id),
		plan_id UUID NOT NULL REFERENCES plans(id),
		status contract_status NOT NULL DEFAULT 'DRAFT',
		body TEXT NOT NULL,
		signature_ref VARCHAR(255),
		auto_renew BOOLEAN NOT NULL DEFAULT FALSE,
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		sent_at TIMESTAMPTZ,
		signed_at TIMESTAMPTZ,
		activated_at TIMESTAMPTZ,
		expired_at TIMESTAMPTZ,
		cancelled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contracts_number ON contracts (number);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_student_id ON contracts (student_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_template_id ON contracts (template_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status);`,
	`CREATE TABLE IF NOT EXISTS contract_status_history (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		from_status contract_status NOT NULL,
		to_status contract_status NOT NULL,
		event_trigger VARCHAR(48) NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_status_history_contract_id ON contract_status_history (contract_id);`,
	`CREATE TABLE IF NOT EXISTS contract_counters (
		year INT PRIMARY KEY,
		last_value BIGINT NOT NULL
	);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

package db

import (
	"context"

	"frostwatch/internal/types"
)

// schema holds the DDL for the FrostWatch tables. Idempotent so startup can
// apply it unconditionally.
const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id                   TEXT PRIMARY KEY,
	insert_seq           BIGSERIAL,
	probability          DOUBLE PRECISION NOT NULL,
	frost_level          TEXT NOT NULL,
	model_kind           TEXT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL,
	signal_a_probability DOUBLE PRECISION,
	signal_b_probability DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions (created_at);

CREATE TABLE IF NOT EXISTS farmers (
	phone_number  TEXT PRIMARY KEY,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	lot_address   TEXT NOT NULL,
	registered_at TIMESTAMPTZ NOT NULL
);
`

// Migrate applies the FrostWatch schema.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return types.NewAppError(types.ErrCodeInternalStorage, "failed to apply schema", err)
	}
	return nil
}

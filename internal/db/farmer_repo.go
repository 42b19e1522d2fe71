package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"frostwatch/internal/types"
)

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// FarmerRepository provides Postgres-backed access to the farmers table.
// It satisfies types.FarmerDirectory.
type FarmerRepository struct {
	db DBTX
}

// NewFarmerRepository creates a FarmerRepository backed by the given
// connection (pool or transaction).
func NewFarmerRepository(db DBTX) *FarmerRepository {
	return &FarmerRepository{db: db}
}

// Register inserts a new farmer. A duplicate phone number fails with a
// conflict error.
func (r *FarmerRepository) Register(ctx context.Context, f types.Farmer) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO farmers
		 (first_name, last_name, phone_number, lot_address, registered_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		f.FirstName,
		f.LastName,
		f.PhoneNumber,
		f.LotAddress,
		f.RegisteredAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return types.NewAppError(
				types.ErrCodeConflictPhoneExists,
				"a farmer with this phone number is already registered",
				err,
			)
		}
		return types.NewAppError(types.ErrCodeInternalStorage, "failed to register farmer", err)
	}
	return nil
}

// ListAll returns all registered farmers in registration order.
func (r *FarmerRepository) ListAll(ctx context.Context) ([]types.Farmer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT first_name, last_name, phone_number, lot_address, registered_at
		 FROM farmers
		 ORDER BY registered_at ASC, phone_number ASC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed to list farmers", err)
	}
	defer rows.Close()

	var out []types.Farmer
	for rows.Next() {
		var f types.Farmer
		if err := rows.Scan(&f.FirstName, &f.LastName, &f.PhoneNumber, &f.LotAddress, &f.RegisteredAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed to scan farmer row", err)
		}
		f.RegisteredAt = f.RegisteredAt.UTC()
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed reading farmer rows", err)
	}
	return out, nil
}

// ListAllPhoneNumbers returns the phone numbers of all registered farmers.
func (r *FarmerRepository) ListAllPhoneNumbers(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT phone_number FROM farmers ORDER BY registered_at ASC, phone_number ASC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed to list phone numbers", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed to scan phone number", err)
		}
		out = append(out, phone)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed reading phone number rows", err)
	}
	return out, nil
}

// FindByPhone returns the farmer registered with the given phone number, or
// nil when none matches.
func (r *FarmerRepository) FindByPhone(ctx context.Context, phoneNumber string) (*types.Farmer, error) {
	var f types.Farmer
	err := r.db.QueryRow(ctx,
		`SELECT first_name, last_name, phone_number, lot_address, registered_at
		 FROM farmers
		 WHERE phone_number = $1`,
		phoneNumber,
	).Scan(&f.FirstName, &f.LastName, &f.PhoneNumber, &f.LotAddress, &f.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStorage, "failed to find farmer", err)
	}
	f.RegisteredAt = f.RegisteredAt.UTC()
	return &f, nil
}

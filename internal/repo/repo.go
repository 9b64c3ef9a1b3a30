package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"eventomw/internal/model"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrConfigNotFound = errors.New("config key not found")
)

type Repository interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, status string) ([]model.Order, error)
	UpdateOrder(ctx context.Context, o *model.Order) error
	UpdateOrderStatusTx(ctx context.Context, id, newStatus string) error
	ApplyPaymentTx(ctx context.Context, id, newStatus, mpPaymentID, mpStatus string) error
	CancelIfPendingTx(ctx context.Context, id string) (bool, error)
	DeleteOrder(ctx context.Context, id string) error
	FindLatestPendingByEmail(ctx context.Context, email string) (*model.Order, error)
	ConfigValue(ctx context.Context, key string) (string, error)
	SetConfigValue(ctx context.Context, key, value string) error
	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := ioutil.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := ioutil.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

const orderColumns = `
	id, full_name, age, phone, email, parish, city, shirt_size, includes_lunch,
	total_amount, batch_number, payment_status,
	COALESCE(mp_preference_id, ''), COALESCE(mp_payment_id, ''), COALESCE(mp_status, ''),
	created_at, updated_at, paid_at
`

func scanOrder(row interface{ Scan(dest ...any) error }) (*model.Order, error) {
	var o model.Order
	if err := row.Scan(
		&o.ID, &o.FullName, &o.Age, &o.Phone, &o.Email, &o.Parish, &o.City,
		&o.ShirtSize, &o.IncludesLunch, &o.TotalAmount, &o.BatchNumber,
		&o.PaymentStatus, &o.MPPreferenceID, &o.MPPaymentID, &o.MPStatus,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) CreateOrder(ctx context.Context, o *model.Order) error {
	query := `
		INSERT INTO orders (id, full_name, age, phone, email, parish, city, shirt_size,
		                    includes_lunch, total_amount, batch_number, payment_status,
		                    mp_preference_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
	`
	if _, err := r.db.ExecContext(ctx, query,
		o.ID, o.FullName, o.Age, o.Phone, o.Email, o.Parish, o.City, o.ShirtSize,
		o.IncludesLunch, o.TotalAmount, o.BatchNumber, o.PaymentStatus, o.MPPreferenceID,
	); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *repository) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return o, nil
}

func (r *repository) ListOrders(ctx context.Context, status string) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE payment_status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	return orders, nil
}

func (r *repository) UpdateOrder(ctx context.Context, o *model.Order) error {
	query := `
		UPDATE orders
		SET full_name = $1, age = $2, phone = $3, email = $4, parish = $5, city = $6,
		    shirt_size = $7, includes_lunch = $8, total_amount = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING id
	`
	var id string
	if err := r.db.QueryRowContext(ctx, query,
		o.FullName, o.Age, o.Phone, o.Email, o.Parish, o.City,
		o.ShirtSize, o.IncludesLunch, o.TotalAmount, o.ID,
	).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to update order %s: %w", o.ID, err)
	}
	return nil
}

func (r *repository) UpdateOrderStatusTx(ctx context.Context, id, newStatus string) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	query := `
		UPDATE orders
		SET payment_status = $1,
		    paid_at = CASE WHEN $1 = 'paid' THEN COALESCE(paid_at, NOW()) ELSE paid_at END,
		    updated_at = NOW()
		WHERE id = $2
		RETURNING id
	`

	var updated string
	if err := tx.QueryRowContext(ctx, query, newStatus, id).Scan(&updated); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ApplyPaymentTx overwrites the payment fields with whatever the gateway
// reported. Running it twice with the same arguments leaves the row unchanged:
// paid_at is stamped only on the first transition into paid.
func (r *repository) ApplyPaymentTx(ctx context.Context, id, newStatus, mpPaymentID, mpStatus string) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	query := `
		UPDATE orders
		SET payment_status = $1,
		    mp_payment_id = $2,
		    mp_status = $3,
		    paid_at = CASE WHEN $1 = 'paid' THEN COALESCE(paid_at, NOW()) ELSE paid_at END,
		    updated_at = NOW()
		WHERE id = $4
		RETURNING id
	`

	var updated string
	if err := tx.QueryRowContext(ctx, query, newStatus, mpPaymentID, mpStatus, id).Scan(&updated); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to apply payment update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *repository) CancelIfPendingTx(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var currentStatus string
	querySelect := `
		SELECT payment_status
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`
	err = tx.QueryRowContext(ctx, querySelect, id).Scan(&currentStatus)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("failed to select order for cancellation: %w", err)
	}

	if currentStatus != model.StatusPending {
		_ = tx.Rollback()
		return false, nil
	}

	queryUpdate := `
		UPDATE orders
		SET payment_status = 'canceled', updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, queryUpdate, id); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("failed to cancel order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit cancellation transaction: %w", err)
	}

	return true, nil
}

func (r *repository) DeleteOrder(ctx context.Context, id string) error {
	query := `DELETE FROM orders WHERE id = $1 RETURNING id`
	var deleted string
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}
	return nil
}

// FindLatestPendingByEmail backs the webhook's payer-email fallback when the
// external reference on a payment does not resolve to a row.
func (r *repository) FindLatestPendingByEmail(ctx context.Context, email string) (*model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE email = $1 AND payment_status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find pending order for %s: %w", email, err)
	}
	return o, nil
}

func (r *repository) ConfigValue(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM system_config WHERE key = $1`
	var value string
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrConfigNotFound
		}
		return "", fmt.Errorf("failed to read config key %s: %w", key, err)
	}
	return value, nil
}

func (r *repository) SetConfigValue(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO system_config (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set config key %s: %w", key, err)
	}
	return nil
}

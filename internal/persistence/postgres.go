package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dealerstudio/internal/config"
	"dealerstudio/internal/core"

	"github.com/lib/pq"
)

// PostgresDB implements the Database interface for PostgreSQL
type PostgresDB struct {
	db       *sql.DB
	dealers  DealerRepository
	cars     CarRepository
	calendar ContentCalendarRepository
}

// NewPostgresDB opens a connection pool and verifies it
func NewPostgresDB(cfg config.Database) (*PostgresDB, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("database connection string is required. Set DATABASE_URL or database.connection_string")
	}
	db, err := sql.Open("postgres", cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen, maxIdle, lifetime := cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime
	if maxOpen <= 0 {
		maxOpen = 25
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newPostgresDB(db), nil
}

func newPostgresDB(db *sql.DB) *PostgresDB {
	return &PostgresDB{
		db:       db,
		dealers:  &postgresDealerRepo{db: db},
		cars:     &postgresCarRepo{db: db},
		calendar: &postgresCalendarRepo{db: db},
	}
}

func (p *PostgresDB) Dealers() DealerRepository                  { return p.dealers }
func (p *PostgresDB) Cars() CarRepository                        { return p.cars }
func (p *PostgresDB) ContentCalendar() ContentCalendarRepository { return p.calendar }

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{
		tx:       tx,
		dealers:  &postgresDealerRepo{db: p.db, tx: tx},
		cars:     &postgresCarRepo{db: p.db, tx: tx},
		calendar: &postgresCalendarRepo{db: p.db, tx: tx},
	}, nil
}

// postgresTx implements Transaction interface
type postgresTx struct {
	tx       *sql.Tx
	dealers  DealerRepository
	cars     CarRepository
	calendar ContentCalendarRepository
}

func (t *postgresTx) Commit() error                              { return t.tx.Commit() }
func (t *postgresTx) Rollback() error                            { return t.tx.Rollback() }
func (t *postgresTx) Dealers() DealerRepository                  { return t.dealers }
func (t *postgresTx) Cars() CarRepository                        { return t.cars }
func (t *postgresTx) ContentCalendar() ContentCalendarRepository { return t.calendar }

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func pick(db *sql.DB, tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return db
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// postgresDealerRepo implements DealerRepository for PostgreSQL
type postgresDealerRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresDealerRepo) query() querier { return pick(r.db, r.tx) }

const dealerColumns = `id, user_id, business_name, location, logo_url, description, phone, whatsapp, email, website`

func (r *postgresDealerRepo) Get(ctx context.Context, id string) (*core.DealerContext, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+dealerColumns+` FROM dealers WHERE id = $1`, id)
	return scanDealer(row)
}

func (r *postgresDealerRepo) GetByUserID(ctx context.Context, userID string) (*core.DealerContext, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+dealerColumns+` FROM dealers WHERE user_id = $1`, userID)
	return scanDealer(row)
}

func (r *postgresDealerRepo) Upsert(ctx context.Context, d *core.DealerContext) error {
	query := `
		INSERT INTO dealers (` + dealerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			business_name = EXCLUDED.business_name,
			location = EXCLUDED.location,
			logo_url = EXCLUDED.logo_url,
			description = EXCLUDED.description,
			phone = EXCLUDED.phone,
			whatsapp = EXCLUDED.whatsapp,
			email = EXCLUDED.email,
			website = EXCLUDED.website,
			updated_at = NOW()
	`
	_, err := r.query().ExecContext(ctx, query,
		d.ID, d.UserID, d.BusinessName, d.Location, d.LogoURL,
		d.Description, d.Phone, d.WhatsApp, d.Email, d.Website,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert dealer: %w", err)
	}
	return nil
}

func scanDealer(row rowScanner) (*core.DealerContext, error) {
	var d core.DealerContext
	var logo, desc, phone, whatsapp, email, website sql.NullString
	err := row.Scan(&d.ID, &d.UserID, &d.BusinessName, &d.Location, &logo, &desc, &phone, &whatsapp, &email, &website)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan dealer: %w", err)
	}
	d.LogoURL = logo.String
	d.Description = desc.String
	d.Phone = phone.String
	d.WhatsApp = whatsapp.String
	d.Email = email.String
	d.Website = website.String
	return &d, nil
}

// postgresCarRepo implements CarRepository for PostgreSQL
type postgresCarRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresCarRepo) query() querier { return pick(r.db, r.tx) }

const carColumns = `id, dealer_id, brand, model, year, price, mileage, fuel_type, transmission,
	location, images, features, is_verified, is_featured, description`

func (r *postgresCarRepo) ListAvailable(ctx context.Context, dealerID string, ids []string) ([]core.Car, error) {
	query := `SELECT ` + carColumns + `
		FROM cars
		WHERE dealer_id = $1 AND status = 'available'`
	args := []interface{}{dealerID}
	if len(ids) > 0 {
		query += ` AND id = ANY($2)`
		args = append(args, pq.Array(ids))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.query().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}
	defer rows.Close()

	var cars []core.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, *car)
	}
	return cars, rows.Err()
}

func (r *postgresCarRepo) Upsert(ctx context.Context, car *core.Car) error {
	imagesJSON, err := json.Marshal(nonNil(car.Images))
	if err != nil {
		return fmt.Errorf("failed to marshal images: %w", err)
	}
	featuresJSON, err := json.Marshal(nonNil(car.Features))
	if err != nil {
		return fmt.Errorf("failed to marshal features: %w", err)
	}

	query := `
		INSERT INTO cars (` + carColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			brand = EXCLUDED.brand,
			model = EXCLUDED.model,
			year = EXCLUDED.year,
			price = EXCLUDED.price,
			mileage = EXCLUDED.mileage,
			fuel_type = EXCLUDED.fuel_type,
			transmission = EXCLUDED.transmission,
			location = EXCLUDED.location,
			images = EXCLUDED.images,
			features = EXCLUDED.features,
			is_verified = EXCLUDED.is_verified,
			is_featured = EXCLUDED.is_featured,
			description = EXCLUDED.description,
			updated_at = NOW()
	`
	_, err = r.query().ExecContext(ctx, query,
		car.ID, car.DealerID, car.Brand, car.Model, car.Year, car.Price, car.Mileage,
		car.FuelType, car.Transmission, car.Location, imagesJSON, featuresJSON,
		car.IsVerified, car.IsFeatured, car.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert car: %w", err)
	}
	return nil
}

func scanCar(row rowScanner) (*core.Car, error) {
	var c core.Car
	var fuel, transmission, location, desc sql.NullString
	var imagesJSON, featuresJSON []byte
	err := row.Scan(
		&c.ID, &c.DealerID, &c.Brand, &c.Model, &c.Year, &c.Price, &c.Mileage,
		&fuel, &transmission, &location, &imagesJSON, &featuresJSON,
		&c.IsVerified, &c.IsFeatured, &desc,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan car: %w", err)
	}
	c.FuelType = fuel.String
	c.Transmission = transmission.String
	c.Location = location.String
	c.Description = desc.String
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &c.Images); err != nil {
			return nil, fmt.Errorf("failed to unmarshal images for car %s: %w", c.ID, err)
		}
	}
	if len(featuresJSON) > 0 {
		if err := json.Unmarshal(featuresJSON, &c.Features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal features for car %s: %w", c.ID, err)
		}
	}
	return &c, nil
}

// postgresCalendarRepo implements ContentCalendarRepository for PostgreSQL
type postgresCalendarRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresCalendarRepo) query() querier { return pick(r.db, r.tx) }

func (r *postgresCalendarRepo) CreateBatch(ctx context.Context, entries []CalendarEntry) error {
	query := `
		INSERT INTO content_calendar (
			id, run_id, dealer_id, car_id, platform, text, hashtags,
			image_url, original_image, image_status, transformation,
			success, cached, cost, errors, status, generated_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	for _, e := range entries {
		hashtagsJSON, err := json.Marshal(nonNil(e.Hashtags))
		if err != nil {
			return fmt.Errorf("failed to marshal hashtags: %w", err)
		}
		errorsJSON, err := json.Marshal(nonNil(e.Errors))
		if err != nil {
			return fmt.Errorf("failed to marshal errors: %w", err)
		}
		status := e.Status
		if status == "" {
			status = StatusDraft
		}
		_, err = r.query().ExecContext(ctx, query,
			e.ID, e.RunID, e.DealerID, e.CarID, string(e.Platform), e.Text, hashtagsJSON,
			e.ImageURL, e.OriginalImage, string(e.ImageStatus), e.Transform,
			e.Success, e.Cached, e.Cost, errorsJSON, status, e.GeneratedAt, e.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert content item %s: %w", e.ID, err)
		}
	}
	return nil
}

func (r *postgresCalendarRepo) ListByRun(ctx context.Context, runID string) ([]CalendarEntry, error) {
	query := `
		SELECT id, run_id, dealer_id, car_id, platform, text, hashtags,
			   image_url, original_image, image_status, transformation,
			   success, cached, cost, errors, status, generated_at, expires_at
		FROM content_calendar
		WHERE run_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.query().QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list content for run %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []CalendarEntry
	for rows.Next() {
		var e CalendarEntry
		var platform, imageStatus string
		var hashtagsJSON, errorsJSON []byte
		if err := rows.Scan(
			&e.ID, &e.RunID, &e.DealerID, &e.CarID, &platform, &e.Text, &hashtagsJSON,
			&e.ImageURL, &e.OriginalImage, &imageStatus, &e.Transform,
			&e.Success, &e.Cached, &e.Cost, &errorsJSON, &e.Status, &e.GeneratedAt, &e.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan content item: %w", err)
		}
		e.Platform = core.Platform(platform)
		e.ImageStatus = core.ImageStatus(imageStatus)
		e.CreatedAt = e.GeneratedAt
		if err := json.Unmarshal(hashtagsJSON, &e.Hashtags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hashtags: %w", err)
		}
		if err := json.Unmarshal(errorsJSON, &e.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal errors: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresCalendarRepo) RecentCarIDs(ctx context.Context, dealerID string, now time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT car_id
		FROM content_calendar
		WHERE dealer_id = $1 AND expires_at > $2 AND success
		ORDER BY car_id
	`
	rows, err := r.query().QueryContext(ctx, query, dealerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent cars: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresCalendarRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.query().ExecContext(ctx, `DELETE FROM content_calendar WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired content: %w", err)
	}
	return res.RowsAffected()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

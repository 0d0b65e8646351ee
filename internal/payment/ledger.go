package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	ErrAlreadyConsumed   = errors.New("verification token already consumed")
	ErrNotFound          = errors.New("payment confirmation not found")
	ErrIllegalTransition = errors.New("illegal transition of verification state")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Ledger remembers every verification token the storefront has consumed.
type Ledger interface {
	// Begin records token as verifying. It fails with ErrAlreadyConsumed if
	// the token was seen before.
	Begin(ctx context.Context, token string) (*domain.PaymentConfirmation, error)
	Complete(ctx context.Context, token string, state domain.VerificationState, result json.RawMessage, errText string) (*domain.PaymentConfirmation, error)
	Get(ctx context.Context, token string) (*domain.PaymentConfirmation, error)
}

type Credentials struct {
	Driver   string // sqlite or postgres
	Path     string // sqlite only
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type SQLLedger struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

func NewSQLLedger(cred *Credentials) (*SQLLedger, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cred.Driver {
	case "", "sqlite":
		db, err = sql.Open("sqlite", cred.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// one connection keeps :memory: databases alive and serializes writers
		db.SetMaxOpenConns(1)
		cred.Driver = "sqlite"
	case "postgres":
		psqlconn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cred.Host,
			cred.Port,
			cred.User,
			cred.Password,
			cred.DBName)
		db, err = sql.Open("postgres", psqlconn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cred.Driver)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLLedger{db: db, driver: cred.Driver, now: time.Now}, nil
}

func (l *SQLLedger) RunMigrations(migrationsPath string) error {
	var (
		driver database.Driver
		err    error
	)
	switch l.driver {
	case "postgres":
		driver, err = postgres.WithInstance(l.db, &postgres.Config{
			MigrationsTable: "payment_schema_migrations",
		})
	default:
		driver, err = sqlite.WithInstance(l.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		l.driver,
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (l *SQLLedger) Begin(ctx context.Context, token string) (*domain.PaymentConfirmation, error) {
	now := l.now().UTC()
	query := l.rebind(`INSERT INTO payment_confirmations (token, state, created_at, updated_at)
	          VALUES (?, ?, ?, ?) ON CONFLICT (token) DO NOTHING`)

	res, err := l.db.ExecContext(ctx, query, token, string(domain.VerificationVerifying), now, now)
	if err != nil {
		return nil, fmt.Errorf("insert payment confirmation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrAlreadyConsumed
	}

	return &domain.PaymentConfirmation{
		Token:     token,
		State:     domain.VerificationVerifying,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Complete moves a verifying token to its terminal state.
func (l *SQLLedger) Complete(ctx context.Context, token string, state domain.VerificationState, result json.RawMessage, errText string) (*domain.PaymentConfirmation, error) {
	if !domain.CanTransitionTo(domain.VerificationVerifying, state) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, domain.VerificationVerifying, state)
	}

	var resultArg sql.NullString
	if len(result) > 0 {
		resultArg = sql.NullString{String: string(result), Valid: true}
	}
	var errArg sql.NullString
	if errText != "" {
		errArg = sql.NullString{String: errText, Valid: true}
	}

	query := l.rebind(`UPDATE payment_confirmations SET state = ?, result = ?, error = ?, updated_at = ?
	          WHERE token = ? AND state = ?`)
	res, err := l.db.ExecContext(ctx, query,
		string(state),
		resultArg,
		errArg,
		l.now().UTC(),
		token,
		string(domain.VerificationVerifying))
	if err != nil {
		return nil, fmt.Errorf("update payment confirmation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, getErr := l.Get(ctx, token); errors.Is(getErr, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: token is not verifying", ErrIllegalTransition)
	}

	return l.Get(ctx, token)
}

func (l *SQLLedger) Get(ctx context.Context, token string) (*domain.PaymentConfirmation, error) {
	query := l.rebind(`SELECT token, state, result, error, created_at, updated_at
	          FROM payment_confirmations WHERE token = ?`)

	var (
		c       domain.PaymentConfirmation
		state   string
		result  sql.NullString
		errText sql.NullString
	)
	err := l.db.QueryRowContext(ctx, query, token).Scan(
		&c.Token,
		&state,
		&result,
		&errText,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query payment confirmation: %w", err)
	}

	c.State = domain.VerificationState(state)
	if result.Valid {
		c.Result = json.RawMessage(result.String)
	}
	c.Error = errText.String
	return &c, nil
}

func (l *SQLLedger) Close() error {
	return l.db.Close()
}

// rebind turns ? placeholders into $n for postgres.
func (l *SQLLedger) rebind(query string) string {
	if l.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

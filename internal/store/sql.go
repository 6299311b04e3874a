package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/allisson/restgate/internal/database"
	apperrors "github.com/allisson/restgate/internal/errors"
)

// sqlDialect holds the statements that differ between PostgreSQL and MySQL.
type sqlDialect struct {
	name               string
	listCollections    string
	hasCollection      string
	ensureCollection   string
	listRecords        string
	getRecord          string
	getRecordForUpdate string
	insertRecord       string
	updateRecord       string
	deleteRecord       string
	isUniqueViolation  func(error) bool
}

var postgresDialect = sqlDialect{
	name:               "postgresql",
	listCollections:    `SELECT name FROM collections ORDER BY name`,
	hasCollection:      `SELECT EXISTS (SELECT 1 FROM collections WHERE name = $1)`,
	ensureCollection:   `INSERT INTO collections (name, created_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
	listRecords:        `SELECT data FROM records WHERE collection = $1 ORDER BY seq`,
	getRecord:          `SELECT data FROM records WHERE collection = $1 AND id = $2`,
	getRecordForUpdate: `SELECT data FROM records WHERE collection = $1 AND id = $2 FOR UPDATE`,
	insertRecord: `INSERT INTO records (collection, id, data, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5)`,
	updateRecord:      `UPDATE records SET data = $1, updated_at = $2 WHERE collection = $3 AND id = $4`,
	deleteRecord:      `DELETE FROM records WHERE collection = $1 AND id = $2`,
	isUniqueViolation: isPostgreSQLUniqueViolation,
}

var mysqlDialect = sqlDialect{
	name:               "mysql",
	listCollections:    `SELECT name FROM collections ORDER BY name`,
	hasCollection:      `SELECT EXISTS (SELECT 1 FROM collections WHERE name = ?)`,
	ensureCollection:   `INSERT IGNORE INTO collections (name, created_at) VALUES (?, ?)`,
	listRecords:        `SELECT data FROM records WHERE collection = ? ORDER BY seq`,
	getRecord:          `SELECT data FROM records WHERE collection = ? AND id = ?`,
	getRecordForUpdate: `SELECT data FROM records WHERE collection = ? AND id = ? FOR UPDATE`,
	insertRecord: `INSERT INTO records (collection, id, data, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?)`,
	updateRecord:      `UPDATE records SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
	deleteRecord:      `DELETE FROM records WHERE collection = ? AND id = ?`,
	isUniqueViolation: isMySQLUniqueViolation,
}

// SQLStore keeps records as JSON documents in a relational database.
// Writes run inside transactions managed by database.TxManager.
type SQLStore struct {
	db        *sql.DB
	txManager database.TxManager
	dialect   sqlDialect
}

// NewPostgreSQLStore creates a store backed by PostgreSQL (JSONB records).
func NewPostgreSQLStore(db *sql.DB, txManager database.TxManager) *SQLStore {
	return &SQLStore{db: db, txManager: txManager, dialect: postgresDialect}
}

// NewMySQLStore creates a store backed by MySQL (JSON records).
func NewMySQLStore(db *sql.DB, txManager database.TxManager) *SQLStore {
	return &SQLStore{db: db, txManager: txManager, dialect: mysqlDialect}
}

// Collections returns every collection name, sorted.
func (s *SQLStore) Collections(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, s.db)

	rows, err := querier.QueryContext(ctx, s.dialect.listCollections)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list collections")
	}
	defer func() {
		_ = rows.Close()
	}()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan collection")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate collections")
	}
	return names, nil
}

// HasCollection reports whether the collection exists.
func (s *SQLStore) HasCollection(ctx context.Context, collection string) (bool, error) {
	querier := database.GetTx(ctx, s.db)

	var exists bool
	if err := querier.QueryRowContext(ctx, s.dialect.hasCollection, collection).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check collection")
	}
	return exists, nil
}

// EnsureCollection creates the collection when it is missing.
func (s *SQLStore) EnsureCollection(ctx context.Context, collection string) error {
	querier := database.GetTx(ctx, s.db)

	if _, err := querier.ExecContext(ctx, s.dialect.ensureCollection, collection, time.Now().UTC()); err != nil {
		return apperrors.Wrap(err, "failed to create collection")
	}
	return nil
}

// List returns the collection's records in insertion order.
func (s *SQLStore) List(ctx context.Context, collection string) ([]Record, error) {
	querier := database.GetTx(ctx, s.db)

	rows, err := querier.QueryContext(ctx, s.dialect.listRecords, collection)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list records")
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]Record, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan record")
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate records")
	}

	if len(records) == 0 {
		if err := s.requireCollection(ctx, collection); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Get returns a record by id.
func (s *SQLStore) Get(ctx context.Context, collection, id string) (Record, error) {
	return s.get(ctx, s.dialect.getRecord, collection, id)
}

// Create stores a new record.
func (s *SQLStore) Create(ctx context.Context, collection string, record Record) (Record, error) {
	rec, id, err := prepareCreate(record)
	if err != nil {
		return nil, err
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := s.requireCollection(ctx, collection); err != nil {
			return err
		}

		querier := database.GetTx(ctx, s.db)
		now := time.Now().UTC()
		_, err := querier.ExecContext(ctx, s.dialect.insertRecord, collection, id, data, now, now)
		if err != nil {
			if s.dialect.isUniqueViolation(err) {
				return ErrRecordExists
			}
			return apperrors.Wrap(err, "failed to create record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Replace overwrites an existing record, keeping its id.
func (s *SQLStore) Replace(ctx context.Context, collection, id string, record Record) (Record, error) {
	return s.update(ctx, collection, id, func(existing Record) Record {
		return prepareReplace(existing, record)
	})
}

// Patch merges fields into an existing record.
func (s *SQLStore) Patch(ctx context.Context, collection, id string, patch Record) (Record, error) {
	return s.update(ctx, collection, id, func(existing Record) Record {
		return applyPatch(existing, patch)
	})
}

// Delete removes a record.
func (s *SQLStore) Delete(ctx context.Context, collection, id string) error {
	return s.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, s.db)

		result, err := querier.ExecContext(ctx, s.dialect.deleteRecord, collection, id)
		if err != nil {
			return apperrors.Wrap(err, "failed to delete record")
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return apperrors.Wrap(err, "failed to get rows affected")
		}
		if affected == 0 {
			if err := s.requireCollection(ctx, collection); err != nil {
				return err
			}
			return ErrRecordNotFound
		}
		return nil
	})
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) update(
	ctx context.Context,
	collection, id string,
	build func(existing Record) Record,
) (Record, error) {
	var out Record

	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.get(ctx, s.dialect.getRecordForUpdate, collection, id)
		if err != nil {
			return err
		}

		out = build(existing)
		data, err := encodeRecord(out)
		if err != nil {
			return err
		}

		querier := database.GetTx(ctx, s.db)
		if _, err := querier.ExecContext(ctx, s.dialect.updateRecord, data, time.Now().UTC(), collection, id); err != nil {
			return apperrors.Wrap(err, "failed to update record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) get(ctx context.Context, query, collection, id string) (Record, error) {
	querier := database.GetTx(ctx, s.db)

	var data []byte
	if err := querier.QueryRowContext(ctx, query, collection, id).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if err := s.requireCollection(ctx, collection); err != nil {
				return nil, err
			}
			return nil, ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get record")
	}
	return decodeRecord(data)
}

func (s *SQLStore) requireCollection(ctx context.Context, collection string) error {
	exists, err := s.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCollectionNotFound
	}
	return nil
}

// encodeRecord returns the record as a JSON string; lib/pq would send []byte as bytea.
func encodeRecord(rec Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", apperrors.Wrap(ErrInvalidRecord, err.Error())
	}
	return string(data), nil
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode record")
	}
	return rec, nil
}

// isPostgreSQLUniqueViolation checks for SQLSTATE 23505.
func isPostgreSQLUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// isMySQLUniqueViolation checks for MySQL error 1062 (duplicate entry).
func isMySQLUniqueViolation(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

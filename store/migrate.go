package store

import (
	"context"
	nativeerrors "errors"
	"fmt"
	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lefinal/bedwars-server/embedded"
	"github.com/lefinal/bedwars-server/errors"
	"go.uber.org/zap"
)

// pgCodeUndefinedTable is the PostgreSQL error code for a relation that does
// not exist.
const pgCodeUndefinedTable = "42P01"

// dbVersion is used for determining the current database version. This is
// saved in the bedwars key-value table when properly set up. If the version
// does not exist, the database needs to be initialized.
type dbVersion string

// dbVersionZero is used when no database version could be found, and therefore
// we conclude that it has not been initialized yet.
const dbVersionZero dbVersion = "0"

// dbMigration is used for performing and checking database migrations.
type dbMigration struct {
	version dbVersion
	up      string
}

// dbMigrations are the sql migrations in an ordered (!) list. The order is
// used to determine which migrations need to be done when the current database
// version is not the latest one.
var dbMigrations = []dbMigration{
	{
		version: "1.0",
		up:      embedded.DBMigration1x0,
	},
	{
		version: "1.1",
		up:      embedded.DBMigration1x1,
	},
}

// Connect connects to the database with the given connection string, tests
// the connection and performs all outstanding migrations.
func Connect(ctx context.Context, logger *zap.Logger, connectionStr string, maxConnections int) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connectionStr)
	if err != nil {
		return nil, errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindDB,
			Err:     err,
			Message: "parse database connection string",
		}
	}
	if maxConnections > 0 {
		poolConfig.MaxConns = int32(maxConnections)
	}
	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindDB,
			Err:     err,
			Message: "connect to database",
		}
	}
	err = testDBConnection(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "test db connection", nil)
	}
	err = migrate(ctx, logger, pool)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "perform db migrations", nil)
	}
	return pool, nil
}

// testDBConnection tests the database connection by simply querying 1.
func testDBConnection(ctx context.Context, db *pgxpool.Pool) error {
	q, _, err := goqu.Select(goqu.V(1)).ToSQL()
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "test query to sql", nil)
	}
	var got int
	err = db.QueryRow(ctx, q).Scan(&got)
	if err != nil {
		return errors.NewScanDBRowError(err, "test query failed", q)
	}
	if got != 1 {
		return errors.Error{
			Code:    errors.ErrFatal,
			Kind:    errors.KindDB,
			Message: fmt.Sprintf("test db connection: expected 1 as result but got %d", got),
			Details: errors.Details{"got": got},
		}
	}
	return nil
}

// migrate performs all needed database migrations according to the (un)set
// database version in one transaction.
func migrate(ctx context.Context, logger *zap.Logger, db *pgxpool.Pool) error {
	currentVersion, err := retrieveCurrentDBVersion(ctx, db)
	if err != nil {
		return errors.Wrap(err, "retrieve current db version", nil)
	}
	logger.Info("current database version", zap.Any("version", currentVersion))
	migrationsToDo, err := dbMigrationsToDo(currentVersion)
	if err != nil {
		return errors.Wrap(err, "get db migrations to do", nil)
	}
	if len(migrationsToDo) == 0 {
		return nil
	}
	tx, err := db.Begin(ctx)
	if err != nil {
		return errors.NewDBTxBeginError(err)
	}
	defer rollbackTx(ctx, logger, tx, "database migration failed")
	var newVersion dbVersion
	for i, migration := range migrationsToDo {
		logger.Info(fmt.Sprintf("performing database migration %d/%d...", i+1, len(migrationsToDo)),
			zap.Any("version", migration.version))
		_, err = tx.Exec(ctx, migration.up)
		if err != nil {
			return errors.NewExecQueryError(err, "exec migration", migration.up)
		}
		newVersion = migration.version
	}
	err = updateDBVersion(ctx, tx, currentVersion, newVersion)
	if err != nil {
		return errors.Wrap(err, "update db version", errors.Details{"version": newVersion})
	}
	err = tx.Commit(ctx)
	if err != nil {
		return errors.NewDBTxCommitError(err)
	}
	return nil
}

// updateDBVersionQuery builds the query for setting the database version.
func updateDBVersionQuery(currentVersion dbVersion, newVersion dbVersion) (string, error) {
	dialect := goqu.Dialect("postgres")
	var q string
	var err error
	if currentVersion == dbVersionZero {
		q, _, err = dialect.Insert(goqu.T("bedwars")).Rows(goqu.Record{
			"key":   "db-version",
			"value": newVersion,
		}).ToSQL()
	} else {
		q, _, err = dialect.Update(goqu.T("bedwars")).
			Set(goqu.Record{"value": newVersion}).
			Where(goqu.C("key").Eq("db-version")).ToSQL()
	}
	return q, err
}

func updateDBVersion(ctx context.Context, tx pgx.Tx, currentVersion dbVersion, newVersion dbVersion) error {
	q, err := updateDBVersionQuery(currentVersion, newVersion)
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "update db version query to sql", nil)
	}
	_, err = tx.Exec(ctx, q)
	if err != nil {
		return errors.NewExecQueryError(err, "exec update db version query", q)
	}
	return nil
}

// dbMigrationsToDo retrieves all database migrations that need to be
// performed. If the version is dbVersionZero, it will return all migrations.
// If the version is unknown, an error will be returned.
func dbMigrationsToDo(currentVersion dbVersion) ([]dbMigration, error) {
	if currentVersion == dbVersionZero {
		return dbMigrations, nil
	}
	found := false
	migrationsToDo := make([]dbMigration, 0)
	for _, migration := range dbMigrations {
		if migration.version == currentVersion {
			if found {
				return nil, errors.Error{
					Code:    errors.ErrInternal,
					Kind:    errors.KindShouldNotHappen,
					Message: fmt.Sprintf("duplicate database version %v in available migrations", currentVersion),
					Details: errors.Details{"version": currentVersion},
				}
			}
			found = true
			continue
		}
		if found {
			migrationsToDo = append(migrationsToDo, migration)
		}
	}
	if !found {
		return nil, errors.NewResourceNotFoundError(fmt.Sprintf("no database version found matching %v", currentVersion),
			errors.Details{"version": currentVersion})
	}
	return migrationsToDo, nil
}

// isUndefinedTable checks whether the error was caused by a missing relation.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return nativeerrors.As(err, &pgErr) && pgErr.Code == pgCodeUndefinedTable
}

// retrieveCurrentDBVersion retrieves the current dbVersion from the given
// database. If no version could be found, dbVersionZero will be returned.
func retrieveCurrentDBVersion(ctx context.Context, db *pgxpool.Pool) (dbVersion, error) {
	q, _, err := goqu.Dialect("postgres").From(goqu.T("bedwars")).
		Select(goqu.C("value")).
		Where(goqu.C("key").Eq("db-version")).ToSQL()
	if err != nil {
		return "", errors.NewInternalErrorFromErr(err, "query to sql", nil)
	}
	var value string
	err = db.QueryRow(ctx, q).Scan(&value)
	if err != nil {
		if isUndefinedTable(err) || err == pgx.ErrNoRows {
			return dbVersionZero, nil
		}
		return "", errors.NewScanDBRowError(err, "scan db version", q)
	}
	return dbVersion(value), nil
}

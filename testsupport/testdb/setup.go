//nolint:errcheck // testsetup
package testdb

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/db/migrate"
	database "github.com/Lorenzo2345612/ams2-telemetry-backend/pkg/db/postgres"
)

// URL returns the connection string of the test database. Tests that
// need a database skip themselves when it is empty.
func URL() string {
	return os.Getenv("TESTDB_URL")
}

// create a pg connection pool for the telemetry testdatabase
func InitTestDb() *pgxpool.Pool {
	dbUrl := URL()
	if dbUrl == "" {
		log.Fatal("TESTDB_URL is not set")
	}
	if err := migrate.MigrateDb(dbUrl); err != nil {
		log.Fatal(err)
	}
	pool := database.InitWithURL(dbUrl)
	ClearAllTables(pool)
	return pool
}

func ClearLapTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from lap")
}

func ClearRaceTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from race")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearLapTable(pool)
	ClearRaceTable(pool)
}

package config

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

func initDB(DBURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", DBURL)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	slog.Info("DB Connected")

	return db, nil
}

func MustInitDB(DBURL string) *sql.DB {
	db, err := initDB(DBURL)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to DB: %s", err))
	}

	return db
}

func setupGoose() error {
	goose.SetBaseFS(migrations)
	return goose.SetDialect("postgres")
}

func MigrateUp(db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	return goose.Up(db, migrationsDir)
}

func MigrateDown(db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	return goose.Down(db, migrationsDir)
}

func MigrateStatus(db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	return goose.Status(db, migrationsDir)
}

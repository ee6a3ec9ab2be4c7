package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	"github.com/sentinelai/compliance-console/internal/infra"
)

// ConsoleRepo — read-only доступ к хранилищу комплаенс-данных.
// Таблицы user_accounts и requirement_status пишет внешний аудит-движок,
// консоль их только читает (плюс собственный журнал audit_runs).
type ConsoleRepo struct {
	db *sql.DB
}

// Open подключается к базе по строке соединения из конфига.
func Open(cfg infra.DatabaseConfig) (*ConsoleRepo, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &ConsoleRepo{db: db}, nil
}

// NewConsoleRepo оборачивает готовое соединение.
// Нужен тестам (sqlmock) и любому DI без строки подключения —
// глобального клиента на уровне пакета здесь нет намеренно.
func NewConsoleRepo(db *sql.DB) *ConsoleRepo {
	return &ConsoleRepo{db: db}
}

// Ping проверяет доступность базы.
func (r *ConsoleRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WaitReady ждет базу при старте сервиса (контейнер Postgres может
// подниматься дольше консоли). Единственное место с ретраями:
// на пути запросов их нет — сбой чтения сразу отдается наверх.
func (r *ConsoleRepo) WaitReady(ctx context.Context, attempts uint) error {
	rt := retry.New(
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(500*time.Millisecond),
	)
	return rt.Do(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return r.db.PingContext(pingCtx)
	})
}

// Close закрывает пул соединений.
func (r *ConsoleRepo) Close() error {
	return r.db.Close()
}

package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearInvocationLog truncates the audit log. Schema is preserved.
func ClearInvocationLog(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing invocation log", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE invocation_log`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Invocation log cleared", clearLogPrefix))
	return nil
}

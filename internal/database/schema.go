package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the two tables of the seat service.  A seat_holds row with
// a NULL expires_at is a confirmed seat; the unique key makes a seat on a
// flight belong to at most one order.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id              VARCHAR(64)  NOT NULL PRIMARY KEY,
		flight_id       VARCHAR(64)  NOT NULL,
		status          VARCHAR(16)  NOT NULL,
		version         BIGINT       NOT NULL DEFAULT 0,
		hold_expires_at DATETIME     NULL,
		created_at      DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_orders_expiry (status, hold_expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat_holds (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		order_id   VARCHAR(64)  NOT NULL,
		flight_id  VARCHAR(64)  NOT NULL,
		seat_label VARCHAR(8)   NOT NULL,
		hold_token CHAR(32)     NOT NULL,
		expires_at DATETIME     NULL,
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_flight_seat (flight_id, seat_label),
		KEY idx_holds_order (order_id),
		CONSTRAINT fk_holds_order FOREIGN KEY (order_id) REFERENCES orders (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates missing tables.  Existing tables are left alone.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

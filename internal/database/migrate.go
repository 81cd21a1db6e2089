package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		full_name     VARCHAR(200) NOT NULL DEFAULT '',
		role          ENUM('TECH','ADMIN') NOT NULL DEFAULT 'TECH',
		is_active     TINYINT(1) NOT NULL DEFAULT 1,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_token_hash (token_hash),
		KEY idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS interventions (
		seq              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		id               CHAR(36) NOT NULL,
		owner_id         BIGINT UNSIGNED NOT NULL,
		client_name      VARCHAR(200) NOT NULL,
		client_email     VARCHAR(254) NULL,
		line_items       JSON NOT NULL,
		tax_rate_percent DECIMAL(5,2) NOT NULL,
		amount_excl_tax  DECIMAL(12,2) NOT NULL,
		tax_amount       DECIMAL(12,2) NOT NULL,
		amount_incl_tax  DECIMAL(12,2) NOT NULL,
		status           ENUM('DRAFT','READY','LOCKED') NOT NULL DEFAULT 'DRAFT',
		signature_ref    VARCHAR(255) NULL,
		signed_at        DATETIME(6) NULL,
		created_at       DATETIME(6) NOT NULL,
		UNIQUE KEY uq_interventions_id (id),
		KEY idx_interventions_owner_created (owner_id, created_at, seq),
		KEY idx_interventions_created (created_at, seq),
		CONSTRAINT fk_interventions_owner FOREIGN KEY (owner_id) REFERENCES users (id),
		CONSTRAINT chk_locked_has_signature CHECK (status <> 'LOCKED' OR (signature_ref IS NOT NULL AND signed_at IS NOT NULL))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS signature_blobs (
		ref          VARCHAR(255) NOT NULL PRIMARY KEY,
		content_type VARCHAR(100) NOT NULL,
		data         MEDIUMBLOB NOT NULL,
		created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables.  It never alters existing ones.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

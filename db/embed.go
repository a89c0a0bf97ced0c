// Package db provides the embedded database schema.
package db

import _ "embed"

// Schema contains the idempotent DDL for the orders, rate_config and
// vouchers tables, including the sparse unique index on idempotency keys.
//
//go:embed migrations/001_schema.sql
var Schema string

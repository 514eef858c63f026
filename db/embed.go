// Package db embeds the PostgreSQL schema of the checkout service.
package db

import _ "embed"

// Schema holds idempotent DDL for the catalog, discount, order, payment
// and api key tables.
//
//go:embed migrations/001_schema.sql
var Schema string

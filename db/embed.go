// Package db provides the embedded database schema and seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the default product catalog seed.
//
//go:embed seed/products.json
var SeedProducts []byte

// SeedCoupons is the default coupon seed.
//
//go:embed seed/coupons.json
var SeedCoupons []byte

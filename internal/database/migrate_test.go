package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatements(t *testing.T) {
	script := "-- header\nCREATE TABLE a (\n  id INT\n);\n\nCREATE TABLE b (id INT);\nINSERT INTO b VALUES (1)"
	got := Statements(script)
	assert.Equal(t, []string{"CREATE TABLE a (\n  id INT\n)", "CREATE TABLE b (id INT)", "INSERT INTO b VALUES (1)"}, got)
}

func TestEmbeddedSchemaHasAllTables(t *testing.T) {
	stmts := Statements(schemaSQL)
	assert.Len(t, stmts, 9)
	for _, table := range []string{"users", "refresh_tokens", "auth_logs", "service_categories",
		"services", "bookings", "reviews", "notifications", "provider_availability"} {
		assert.Contains(t, schemaSQL, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

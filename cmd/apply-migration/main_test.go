package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgedurante-source/taller-sub000/internal/repository"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`
-- header comment
CREATE TABLE a (id INT);

-- only a comment;
CREATE INDEX i ON a (id);
`)
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE INDEX i ON a (id)"}, stmts)
}

func TestSplitStatements_ControlSchema(t *testing.T) {
	stmts := splitStatements(repository.ControlSchemaSQL)
	require.NotEmpty(t, stmts)

	joined := strings.Join(stmts, "\n")
	for _, table := range []string{"chains", "chain_members", "chain_users", "sync_jobs"} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

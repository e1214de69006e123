package state

import (
	"testing"

	"github.com/fieldline/iotops/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	log := logging.New(nil, "silent", "json")
	l, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpenInMemory(t *testing.T) {
	l := testLedger(t)
	assert.NotNil(t, l)
}

func TestMigrationsIdempotent(t *testing.T) {
	l := testLedger(t)
	require.NoError(t, l.migrate())

	var count int
	err := l.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestGetMissing(t *testing.T) {
	l := testLedger(t)
	id, ok, err := l.Get("agent.create")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestPutAndGet(t *testing.T) {
	l := testLedger(t)
	require.NoError(t, l.Put("agent.create", "AGENT123", "IotOpsAgent"))

	id, ok, err := l.Get("agent.create")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "AGENT123", id)
}

func TestPutReplaces(t *testing.T) {
	l := testLedger(t)
	require.NoError(t, l.Put("kb.knowledge-base", "KB1", ""))
	require.NoError(t, l.Put("kb.knowledge-base", "KB2", ""))

	id, ok, err := l.Get("kb.knowledge-base")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "KB2", id)

	all, err := l.All()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAllPreservesOrder(t *testing.T) {
	l := testLedger(t)
	steps := []string{"iam.agent-role", "aoss.collection", "agent.create"}
	for i, s := range steps {
		require.NoError(t, l.Put(s, string(rune('A'+i)), ""))
	}

	all, err := l.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, s := range steps {
		assert.Equal(t, s, all[i].Step)
	}
}

func TestClear(t *testing.T) {
	l := testLedger(t)
	require.NoError(t, l.Put("agent.create", "A", ""))
	require.NoError(t, l.Clear())

	all, err := l.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

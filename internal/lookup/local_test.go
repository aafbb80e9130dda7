package lookup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-dnscpp/dnscpp/internal/hosts"
	"github.com/go-dnscpp/dnscpp/internal/message"
	"github.com/go-dnscpp/dnscpp/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableWith(t *testing.T, contents string) *hosts.Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	table := hosts.New()
	require.NoError(t, table.Load(path))
	return table
}

func TestLocalLookupDeliversSynthesizedAnswer(t *testing.T) {
	table := tableWith(t, "10.0.0.5 db.internal\n")
	handler := &fakeHandler{}

	l := NewLocalLookup(table, 1, message.Question{Name: "db.internal.", Type: protocol.TypeA, Class: protocol.ClassIN}, handler)

	assert.True(t, l.Exhausted())
	assert.Equal(t, time.Duration(0), l.Delay(time.Now()))
	assert.True(t, l.Execute(time.Now()))
	assert.NotNil(t, handler.received)
	assert.True(t, l.Finished())
}

func TestLocalLookupCancelBeforeExecute(t *testing.T) {
	table := tableWith(t, "10.0.0.5 db.internal\n")
	handler := &fakeHandler{}

	l := NewLocalLookup(table, 1, message.Question{Name: "db.internal.", Type: protocol.TypeA, Class: protocol.ClassIN}, handler)
	l.Cancel()

	assert.True(t, handler.cancelled)
	assert.True(t, l.Finished())
}

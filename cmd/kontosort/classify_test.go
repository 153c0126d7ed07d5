package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oskarvik/kontosort/internal/model"
)

// The classify command joins its worker before returning: the task row must
// be terminal by the time the process exits, or the sweep would be killed
// mid-flight and leave the row stranded.
func TestClassifyCommandWaitsForSweep(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("database.path", filepath.Join(t.TempDir(), "kontosort.db"))
	viper.Set("classification.confidence_threshold", 0.7)

	cmd := classifyCmd()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	store, err := initStorage(context.Background())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	tasks, err := store.ListTasks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.TaskTypeAutoClassify, tasks[0].Type)
	assert.Equal(t, model.TaskStatusCompleted, tasks[0].Status)
}

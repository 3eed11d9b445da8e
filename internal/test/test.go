// Package test holds helpers shared by tests across packages.
package test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"

	"yt-notifier/internal/db"
)

// MockTaskEnqueuer records the tasks passed to Enqueue along with their options.
type MockTaskEnqueuer struct {
	EnqueuedTasks []*asynq.Task
	Options       [][]asynq.Option
	Err           error
}

func (m *MockTaskEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.EnqueuedTasks = append(m.EnqueuedTasks, task)
	m.Options = append(m.Options, opts)
	return &asynq.TaskInfo{ID: "test-task-id", Queue: "default", Type: task.Type()}, nil
}

// Types returns the type names of the enqueued tasks in order.
func (m *MockTaskEnqueuer) Types() []string {
	types := make([]string, 0, len(m.EnqueuedTasks))
	for _, task := range m.EnqueuedTasks {
		types = append(types, task.Type())
	}
	return types
}

// NewMockStore returns a store backed by sqlmock. Queries are rebound for
// postgres, so placeholders appear as $1, $2, ...
func NewMockStore(t *testing.T) (*db.Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { mockDb.Close() })

	return db.New(sqlx.NewDb(mockDb, "postgres")), mock
}

func ProjectRoot() string {
	_, b, _, _ := runtime.Caller(0)
	// Root folder of this project is 2 levels up from this file
	return filepath.Join(filepath.Dir(b), "../..")
}

package ordering

import (
	"context"
	"math"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/my-todos/db"
)

func openTestEngine(t *testing.T) (*Engine, *db.DB) {
	t.Helper()
	database, err := db.Open(db.Config{Path: filepath.Join(t.TempDir(), "todos.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewEngine(NewDBStore(database)), database
}

// seedScenario inserts todos 1 (top), 2 (done) and 3 (bottom)
func seedScenario(t *testing.T, database *db.DB) {
	t.Helper()
	now := db.NowMs()
	_, err := database.Conn().Exec(`
		INSERT INTO todos (id, description, done, position, created_at, updated_at) VALUES
			(1, 'one', 0, 3, ?, ?),
			(2, 'two', 1, 2, ?, ?),
			(3, 'three', 0, 1, ?, ?)
	`, now, now, now, now, now, now)
	require.NoError(t, err)
}

func TestDBStore_ScenarioPositions(t *testing.T) {
	e, database := openTestEngine(t)
	seedScenario(t, database)

	items := listOrdered(t, e)
	assert.Equal(t, []int64{1, 2, 3}, ids(items))
	assert.Equal(t, map[int64]int64{1: 3, 2: 2, 3: 1}, positions(items))
	assert.True(t, items[1].Done)
	assert.Equal(t, "one", items[0].Description)
}

func TestDBStore_MoveCompletedToBottom(t *testing.T) {
	e, database := openTestEngine(t)
	seedScenario(t, database)

	require.NoError(t, e.MoveCompletedToBottom(context.Background()))

	items := listOrdered(t, e)
	assert.Equal(t, []int64{1, 3, 2}, ids(items))
	assertStrictlyDescending(t, items)
}

func TestDBStore_ReorderByExplicitSequence(t *testing.T) {
	e, database := openTestEngine(t)
	seedScenario(t, database)
	ctx := context.Background()

	require.NoError(t, e.ReorderByExplicitSequence(ctx, []string{"3", "1", "2"}))
	assert.Equal(t, []int64{3, 1, 2}, ids(listOrdered(t, e)))

	require.NoError(t, e.ReorderByExplicitSequence(ctx, []string{"2", "99", "3"}))
	items := listOrdered(t, e)
	assertUniquePositions(t, items)
	pos := positions(items)
	assert.Greater(t, pos[2], pos[3])
	assert.EqualValues(t, 2, pos[1], "item left out of the request must not move")
}

func TestDBStore_ReassignPositionsSwap(t *testing.T) {
	e, database := openTestEngine(t)
	seedScenario(t, database)

	err := e.ReassignPositions(context.Background(), []Assignment{
		{ID: 1, Position: 1},
		{ID: 3, Position: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{3, 2, 1}, ids(listOrdered(t, e)))
}

func TestDBStore_FailedWriteRollsBackWholeBatch(t *testing.T) {
	e, database := openTestEngine(t)
	seedScenario(t, database)

	_, err := database.Conn().Exec(`
		CREATE TRIGGER fail_at_4242 BEFORE UPDATE ON todos
		WHEN NEW.position = 4242
		BEGIN SELECT RAISE(ABORT, 'boom'); END
	`)
	require.NoError(t, err)

	before := listOrdered(t, e)
	err = e.ReassignPositions(context.Background(), []Assignment{
		{ID: 1, Position: 10},
		{ID: 3, Position: 4242},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.Equal(t, before, listOrdered(t, e))
}

func TestDBStore_ExtremePositionsRejectedAndListStaysUsable(t *testing.T) {
	e, database := openTestEngine(t)
	seedScenario(t, database)
	ctx := context.Background()

	err := e.ReassignPositions(ctx, []Assignment{{ID: 1, Position: math.MaxInt64}, {ID: 3, Position: 5}})
	assert.ErrorIs(t, err, ErrPrecondition)
	err = e.ReassignPositions(ctx, []Assignment{{ID: 3, Position: math.MinInt64}})
	assert.ErrorIs(t, err, ErrPrecondition)

	require.NoError(t, e.ReassignPositions(ctx, []Assignment{
		{ID: 1, Position: MaxPosition - 1},
		{ID: 3, Position: -MaxPosition + 1},
	}))
	require.NoError(t, e.ReorderByExplicitSequence(ctx, []string{"3", "2", "1"}))
	require.NoError(t, e.MoveCompletedToBottom(ctx))

	items := listOrdered(t, e)
	assert.Equal(t, []int64{3, 1, 2}, ids(items))
	assertStrictlyDescending(t, items)

	_, err = database.CreateTodo(ctx, "after")
	require.NoError(t, err)
}

func TestDBStore_CancelledContext(t *testing.T) {
	e, database := openTestEngine(t)
	seedScenario(t, database)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.MoveCompletedToBottom(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []int64{1, 2, 3}, ids(listOrdered(t, e)))
}

func TestDBStore_DeleteCompletedKeepsPositions(t *testing.T) {
	e, database := openTestEngine(t)
	seedScenario(t, database)

	removed, err := e.DeleteCompleted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.Equal(t, map[int64]int64{1: 3, 3: 1}, positions(listOrdered(t, e)))
}

func TestDBStore_ConcurrentOperationsKeepPositionsUnique(t *testing.T) {
	e, database := openTestEngine(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		td, err := database.CreateTodo(ctx, "todo "+strconv.Itoa(i))
		require.NoError(t, err)
		if i%3 == 0 {
			require.NoError(t, database.SetTodoDone(ctx, td.ID, true))
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 8; i++ {
				var err error
				switch (w + i) % 4 {
				case 0:
					err = e.ReorderByExplicitSequence(ctx, []string{"10", strconv.Itoa(i + 1), "3", "7"})
				case 1:
					err = e.MoveCompletedToBottom(ctx)
				case 2:
					err = e.MoveGroupToBoundary(ctx, Done, Top)
				case 3:
					_, err = database.CreateTodo(ctx, "extra")
				}
				if err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent operation failed: %v", err)
	}

	items := listOrdered(t, e)
	assert.Len(t, items, 18)
	assertUniquePositions(t, items)
}

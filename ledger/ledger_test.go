package ledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/patrikhermansson/mff/ledger"
	"github.com/patrikhermansson/mff/sampling"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]ledger.Ledger {
	t.Helper()
	ctx := context.Background()
	out := make(map[string]ledger.Ledger)
	for kind, path := range map[string]string{
		"memory": "",
		"sqlite": filepath.Join(t.TempDir(), "runs.db"),
	} {
		l, err := ledger.Open(ctx, kind, path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = l.Close() })
		out[kind] = l
	}
	return out
}

func TestRecordGetList(t *testing.T) {
	ctx := context.Background()
	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			random := ledger.NewRun(
				sampling.Request{Strategy: "random", Method: "2b"},
				sampling.Result{MAE: 0.1, SMAE: 0.05, RMSE: 0.2, Index: []int{4, 1, 9}, Elapsed: 3 * time.Second},
			)
			random.CreatedAt = base
			ivm := ledger.NewRun(
				sampling.Request{Strategy: "ivm_e", Method: "3b"},
				sampling.Result{MAE: 0.3, Index: []int{0, 2}},
			)
			ivm.CreatedAt = base.Add(time.Minute)
			require.NoError(t, l.Record(ctx, ivm))
			require.NoError(t, l.Record(ctx, random))

			got, ok, err := l.Get(ctx, random.ID)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, random, got)
			require.Equal(t, 3, got.NTrain)

			_, ok, err = l.Get(ctx, uuid.New())
			require.NoError(t, err)
			require.False(t, ok)

			all, err := l.List(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 2)
			require.Equal(t, random.ID, all[0].ID)
			require.Equal(t, ivm.ID, all[1].ID)

			only, err := l.List(ctx, "ivm_e")
			require.NoError(t, err)
			require.Len(t, only, 1)
			require.Equal(t, []int{0, 2}, only[0].Index)

			random.MAE = 0.01
			require.NoError(t, l.Record(ctx, random))
			got, _, err = l.Get(ctx, random.ID)
			require.NoError(t, err)
			require.Equal(t, 0.01, got.MAE)
			all, err = l.List(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 2)
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	run := ledger.NewRun(sampling.Request{Strategy: "cur", Method: "2b"}, sampling.Result{Index: []int{7}})

	l, err := ledger.Open(ctx, "sqlite", path)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, run))
	require.NoError(t, l.Close())

	l, err = ledger.Open(ctx, "sqlite", path)
	require.NoError(t, err)
	defer l.Close()
	got, ok, err := l.Get(ctx, run.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, run.CreatedAt, got.CreatedAt)
	require.Equal(t, []int{7}, got.Index)
}

func TestUninitialized(t *testing.T) {
	ctx := context.Background()
	for _, l := range []ledger.Ledger{ledger.NewMemoryLedger(), ledger.NewSQLiteLedger("unused.db")} {
		err := l.Record(ctx, ledger.Run{ID: uuid.New()})
		require.True(t, errors.Is(err, ledger.ErrNotInitialized))
		_, err = l.List(ctx, "")
		require.True(t, errors.Is(err, ledger.ErrNotInitialized))
	}

	_, err := ledger.Open(ctx, "postgres", "")
	require.Error(t, err)
	_, err = ledger.Open(ctx, "sqlite", "")
	require.Error(t, err)
}

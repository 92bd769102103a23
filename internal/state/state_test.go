package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"lendingops/internal/config"

	"github.com/stretchr/testify/require"
)

func openTestStore(t testing.TB) SQLStore {
	db, err := OpenDB(context.Background(), config.StateConfig{
		File: filepath.Join(t.TempDir(), DefaultFile),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db)
}

func TestStore(t *testing.T) {
	store := openTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		_, ok, err := store.Get(ctx, "ktb", KeyContractRefId)
		require.NoError(t, err)
		require.False(t, ok)
	}

	require.NoError(t, store.Set(ctx, "ktb", KeyContractRefId, "ref-1"))
	require.NoError(t, store.Set(ctx, "ktb", KeyContractRefId, "ref-2"))
	require.NoError(t, store.Set(ctx, "vb", KeyContractRefId, "ref-vb"))
	require.NoError(t, store.Set(ctx, "vb", KeyLocAccountNo, "acc-vb"))

	value, ok, err := store.Get(ctx, "ktb", KeyContractRefId)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ref-2", value)

	all, err := store.All(ctx, "vb")
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		KeyContractRefId: "ref-vb",
		KeyLocAccountNo:  "acc-vb",
	}, all)
}

func TestOpenDBTwice(t *testing.T) {
	file := filepath.Join(t.TempDir(), DefaultFile)
	for i := 0; i < 2; i++ {
		db, err := OpenDB(context.Background(), config.StateConfig{File: file})
		require.NoError(t, err)
		db.Close()
	}
}

func TestOverlay(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	inst := &config.Institution{
		Name:          "vb",
		ContractRefId: "seed-ref",
		LocAccountNo:  "seed-acc",
		RedisKey:      "LOAN_SMART_CONTRACT:Revolving_Loan",
	}
	require.NoError(t, store.Set(ctx, "vb", KeyLocAccountNo, "persisted-acc"))
	require.NoError(t, store.Set(ctx, "vb", KeySupervisorContractId, "sup-3"))
	require.NoError(t, store.Set(ctx, "ktb", KeyContractRefId, "other-bank"))

	require.NoError(t, Overlay(ctx, store, inst))
	require.Equal(t, "seed-ref", inst.ContractRefId)
	require.Equal(t, "persisted-acc", inst.LocAccountNo)
	require.Equal(t, "sup-3", inst.SupervisorContractId)
	require.Equal(t, "LOAN_SMART_CONTRACT:Revolving_Loan", inst.RedisKey)
}

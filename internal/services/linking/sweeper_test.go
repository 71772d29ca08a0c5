package linking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/crickettalent/internal/dependencies/mocks"
	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage/memory"
	"github.com/mcoot/crickettalent/internal/testutil"
)

func TestSweeperPurgesExpiredCodes(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	rnd := mocks.NewMockRandom()
	rnd.QueueString("STALE234")
	registry := NewRegistry(store, clk, rnd, Config{CodeTTL: time.Hour}, testutil.TestLogger(t))

	_, err := registry.IssueCode(ctx, model.Actor{ID: "player-1", Kind: model.KindPlayer}, "player-1")
	require.NoError(t, err)
	clk.Advance(3 * time.Hour)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		NewSweeper(registry, 5*time.Millisecond, testutil.TestLogger(t)).Run(runCtx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := store.GetAccessCode(ctx, "STALE234")
		return err != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSweeperDisabledWithZeroInterval(t *testing.T) {
	registry := NewRegistry(memory.New(), mocks.NewMockClock(time.Now()), mocks.NewMockRandom(), DefaultConfig(), testutil.NopLogger())

	done := make(chan struct{})
	go func() {
		NewSweeper(registry, 0, testutil.NopLogger()).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper with zero interval should return immediately")
	}
}

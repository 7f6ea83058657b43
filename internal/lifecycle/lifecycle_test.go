package lifecycle

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvFire(t *testing.T, ch <-chan Fire, within time.Duration) Fire {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(within):
		t.Fatalf("timed out waiting for fire")
		return Fire{}
	}
}

func recvNoFire(t *testing.T, ch <-chan Fire, within time.Duration) {
	t.Helper()
	select {
	case f := <-ch:
		t.Fatalf("expected no fire within %v, got %+v", within, f)
	case <-time.After(within):
	}
}

func TestManager_FiresAfterGrace(t *testing.T) {
	clk := clock.NewMock()
	m := NewManager(clk, 30*time.Second)
	fires := make(chan Fire, 4)

	scheduled := m.Schedule("u1", "L1", func(f Fire) { fires <- f })

	clk.Add(29 * time.Second)
	recvNoFire(t, fires, 50*time.Millisecond)

	clk.Add(2 * time.Second)
	got := recvFire(t, fires, time.Second)
	assert.Equal(t, scheduled, got)
	assert.True(t, m.Claim(got))
	assert.False(t, m.Pending("u1"))
	assert.False(t, m.Claim(got), "a fire is claimed once")
}

func TestManager_RescheduleSupersedesPreviousTimer(t *testing.T) {
	clk := clock.NewMock()
	m := NewManager(clk, 30*time.Second)
	fires := make(chan Fire, 4)
	deliver := func(f Fire) { fires <- f }

	first := m.Schedule("u1", "L1", deliver)
	clk.Add(20 * time.Second)
	second := m.Schedule("u1", "L1", deliver)
	require.Equal(t, 1, m.Len())

	clk.Add(15 * time.Second)
	recvNoFire(t, fires, 50*time.Millisecond)

	clk.Add(15 * time.Second)
	got := recvFire(t, fires, time.Second)
	assert.Equal(t, second.Seq, got.Seq)
	assert.False(t, m.Claim(first))
	assert.True(t, m.Claim(got))
}

func TestManager_CancelPreventsFire(t *testing.T) {
	clk := clock.NewMock()
	m := NewManager(clk, 30*time.Second)
	fires := make(chan Fire, 1)

	f := m.Schedule("u1", "L1", func(f Fire) { fires <- f })
	assert.True(t, m.Cancel("u1"))
	assert.False(t, m.Cancel("u1"))

	clk.Add(time.Minute)
	recvNoFire(t, fires, 50*time.Millisecond)
	assert.False(t, m.Claim(f))
}

func TestManager_OneTimerPerUserAcrossLobbies(t *testing.T) {
	clk := clock.NewMock()
	m := NewManager(clk, 30*time.Second)
	fires := make(chan Fire, 4)
	deliver := func(f Fire) { fires <- f }

	m.Schedule("u1", "L1", deliver)
	clk.Add(10 * time.Second)
	m.Schedule("u1", "L2", deliver)
	assert.Equal(t, 1, m.Len())

	clk.Add(25 * time.Second)
	recvNoFire(t, fires, 50*time.Millisecond)

	clk.Add(5 * time.Second)
	got := recvFire(t, fires, time.Second)
	assert.Equal(t, "L2", got.LobbyID)
	assert.True(t, m.Claim(got))
}

func TestManager_StopCancelsAll(t *testing.T) {
	clk := clock.NewMock()
	m := NewManager(clk, time.Second)
	fires := make(chan Fire, 3)
	for _, u := range []string{"a", "b", "c"} {
		m.Schedule(u, "L", func(f Fire) { fires <- f })
	}
	m.Stop()
	assert.Equal(t, 0, m.Len())

	clk.Add(time.Minute)
	recvNoFire(t, fires, 50*time.Millisecond)
}


package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Now(t *testing.T) {
	clk := NewRealClock()

	before := time.Now()
	got := clk.Now()
	after := time.Now()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestRealClock_Ticker(t *testing.T) {
	clk := NewRealClock()

	ticker := clk.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.Chan():
	case <-time.After(time.Second):
		t.Fatal("ticker never fired")
	}
}

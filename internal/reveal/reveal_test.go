package reveal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReveal_GrowsUntilComplete(t *testing.T) {
	r := Start("hello world", 3, time.Millisecond)

	assert.Eventually(t, func() bool {
		return !r.Revealing()
	}, time.Second, time.Millisecond)

	assert.Equal(t, "hello world", r.Visible())

	select {
	case <-r.Done():
	default:
		t.Fatal("done channel not closed after completion")
	}
}

func TestReveal_CancelFreezesVisibleText(t *testing.T) {
	// A very long tick keeps the timer from firing; ticks are driven by hand
	// so the cancellation point is deterministic.
	r := Start("twelve chars", 1, time.Hour)

	for i := 0; i < 3; i++ {
		r.advance(1)
	}
	r.Cancel()

	frozen := r.Visible()
	assert.LessOrEqual(t, len(frozen), 3)
	assert.False(t, r.Revealing())

	// A late tick after cancellation must not mutate anything.
	r.advance(1)
	assert.Equal(t, frozen, r.Visible())
}

func TestReveal_CancelIsIdempotent(t *testing.T) {
	r := Start("some text", 1, time.Hour)
	r.Cancel()
	r.Cancel()
	assert.False(t, r.Revealing())
}

func TestReveal_DisabledShowsFullTextImmediately(t *testing.T) {
	for name, r := range map[string]*Reveal{
		"zero chars per tick": Start("full text", 0, time.Millisecond),
		"zero interval":       Start("full text", 1, 0),
	} {
		assert.Equal(t, "full text", r.Visible(), name)
		assert.False(t, r.Revealing(), name)
	}
}

func TestReveal_EmptyTextIsNoOp(t *testing.T) {
	r := Start("", 1, time.Millisecond)
	assert.Equal(t, "", r.Visible())
	assert.False(t, r.Revealing())
}

func TestReveal_FinishShowsFullText(t *testing.T) {
	r := Start("finish early", 1, time.Hour)
	r.advance(1)
	r.Finish()

	assert.Equal(t, "finish early", r.Visible())
	assert.False(t, r.Revealing())
}

func TestReveal_VisibleIsPrefixDuringReveal(t *testing.T) {
	r := Start("abcdef", 2, time.Hour)
	r.advance(2)
	assert.Equal(t, "ab", r.Visible())
	assert.True(t, r.Revealing())
	r.Cancel()
}

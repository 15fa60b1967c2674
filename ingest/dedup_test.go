// ingest/dedup_test.go
package ingest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/luishdz04/muscleup-gym/model"
)

func TestDedupSetSuppressesDuplicates(t *testing.T) {
	dedup := NewDedupSet(1000)

	assert.True(t, dedup.Observe("7_20250311_120000"))
	assert.False(t, dedup.Observe("7_20250311_120000"))
	assert.True(t, dedup.Observe("7_20250311_120001"))
}

func TestDedupSetClearsOnOverflow(t *testing.T) {
	dedup := NewDedupSet(3)

	for i := 0; i < 3; i++ {
		dedup.Observe(fmt.Sprintf("key-%d", i))
	}
	assert.Equal(t, 3, dedup.Len())

	// The fourth key clears the set before being recorded.
	assert.True(t, dedup.Observe("key-3"))
	assert.Equal(t, 1, dedup.Len())

	// Previously seen keys are forgotten after the clear.
	assert.True(t, dedup.Observe("key-0"))
}

func TestDedupKeyDistinguishesSeconds(t *testing.T) {
	at := time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)
	a := model.AccessEvent{DeviceUserID: "7", Timestamp: at}
	b := model.AccessEvent{DeviceUserID: "7", Timestamp: at.Add(time.Second)}
	c := model.AccessEvent{DeviceUserID: "7", Timestamp: at.Add(500 * time.Millisecond)}

	assert.NotEqual(t, a.DedupKey(), b.DedupKey())
	// Sub-second jitter between the two read paths maps to one key.
	assert.Equal(t, a.DedupKey(), c.DedupKey())
}

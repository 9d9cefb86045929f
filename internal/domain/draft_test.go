package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompletionPercent(t *testing.T) {
	assert.Equal(t, 0, CompletionPercent(Sections{}))
	assert.Equal(t, 20, CompletionPercent(Sections{
		"client": json.RawMessage(`{"name":"Rossi"}`),
	}))
	assert.Equal(t, 40, CompletionPercent(Sections{
		"client": json.RawMessage(`{"name":"Rossi"}`),
		"venue":  json.RawMessage(`{"city":"Milano"}`),
	}))

	full := Sections{}
	for _, name := range SectionNames {
		full[name] = json.RawMessage(`{}`)
	}
	assert.Equal(t, 100, CompletionPercent(full))
}

func TestCompletionPercent_IgnoresNullAndUnknown(t *testing.T) {
	assert.Equal(t, 0, CompletionPercent(Sections{
		"client": json.RawMessage(`null`),
	}))
	assert.Equal(t, 0, CompletionPercent(Sections{
		"not_a_section": json.RawMessage(`{"x":1}`),
	}))
}

func TestIsSectionName(t *testing.T) {
	for _, name := range SectionNames {
		assert.True(t, IsSectionName(name))
	}
	assert.False(t, IsSectionName("budget"))
	assert.False(t, IsSectionName(""))
}

func TestIsDraftState(t *testing.T) {
	assert.True(t, IsDraftState("IN_PROGRESS"))
	assert.True(t, IsDraftState("SUSPENDED"))
	assert.True(t, IsDraftState("COMPLETED"))
	assert.False(t, IsDraftState("in_progress"))
	assert.False(t, IsDraftState("DONE"))
}

func TestDraft_LockStates(t *testing.T) {
	now := time.Now()
	holder := int64(7)
	future := now.Add(30 * time.Minute)
	past := now.Add(-time.Minute)

	unheld := &Draft{}
	assert.True(t, unheld.LockExpired(now))
	assert.False(t, unheld.Locked(now))
	assert.False(t, unheld.HeldBy(holder, now))

	active := &Draft{LeaseHolderID: &holder, LeaseExpiresAt: &future}
	assert.False(t, active.LockExpired(now))
	assert.True(t, active.Locked(now))
	assert.True(t, active.HeldBy(holder, now))
	assert.False(t, active.HeldBy(99, now))

	expired := &Draft{LeaseHolderID: &holder, LeaseExpiresAt: &past}
	assert.True(t, expired.LockExpired(now))
	assert.False(t, expired.Locked(now))
	assert.False(t, expired.HeldBy(holder, now))
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkingMemory_TrimCapsEveryWindow(t *testing.T) {
	wm := WorkingMemory{}
	for i := 0; i < 30; i++ {
		wm.RecentActions = append(wm.RecentActions, Action{ID: "a"})
		wm.RecentOutcomes = append(wm.RecentOutcomes, Outcome{ActionID: "a"})
		wm.KeyFindings = append(wm.KeyFindings, Finding{ID: "f"})
		wm.OpenQuestions = append(wm.OpenQuestions, "q")
		wm.Hypotheses = append(wm.Hypotheses, "h")
	}

	wm.Trim()

	assert.Len(t, wm.RecentActions, WorkingMemoryLimit)
	assert.Len(t, wm.RecentOutcomes, WorkingMemoryLimit)
	assert.Len(t, wm.KeyFindings, WorkingMemoryLimit)
	assert.Len(t, wm.OpenQuestions, WorkingMemoryLimit)
	assert.Len(t, wm.Hypotheses, WorkingMemoryLimit)
}

func TestWorkingMemory_TrimKeepsMostRecent(t *testing.T) {
	wm := WorkingMemory{}
	for i := 0; i < 25; i++ {
		wm.OpenQuestions = append(wm.OpenQuestions, string(rune('a'+i%26)))
	}
	last := wm.OpenQuestions[len(wm.OpenQuestions)-1]

	wm.Trim()

	assert.Equal(t, last, wm.OpenQuestions[len(wm.OpenQuestions)-1])
}

func TestProgress_ClampConfidence(t *testing.T) {
	p := Progress{Confidence: 1.5}
	p.ClampConfidence()
	assert.Equal(t, 1.0, p.Confidence)

	p.Confidence = -0.2
	p.ClampConfidence()
	assert.Equal(t, 0.0, p.Confidence)
}

func TestSessionStatus_IsTerminal(t *testing.T) {
	assert.True(t, SessionCompleted.IsTerminal())
	assert.True(t, SessionFailed.IsTerminal())
	assert.True(t, SessionCancelled.IsTerminal())
	assert.False(t, SessionActive.IsTerminal())
	assert.False(t, SessionPaused.IsTerminal())
}

func TestNewSession_DefaultsToActive(t *testing.T) {
	s := NewSession("quantum computing", Goal{Description: "survey the field"}, "user-1")
	assert.Equal(t, SessionActive, s.Status)
	assert.Nil(t, s.CompletedAt)
	assert.NotEmpty(t, s.ID)
}

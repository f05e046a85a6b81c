package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_AllowsExpectedPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{"", StatusRunning},
		{StatusRunning, StatusCompleted},
		{StatusRunning, StatusCompletedWithErrors},
		{StatusRunning, StatusFailed},
	}
	for _, tc := range cases {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected transition %q -> %q to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{StatusCompleted, StatusRunning},
		{StatusFailed, StatusCompleted},
		{StatusCompletedWithErrors, StatusFailed},
		{StatusRunning, StatusRunning},
		{"", StatusCompleted},
		{"unknown", StatusRunning},
	}
	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected transition %q -> %q to be rejected", tc.from, tc.to)
		}
	}
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, IsKnownStatus(StatusRunning))
	assert.False(t, IsKnownStatus(""))
	assert.False(t, IsKnownStatus("paused"))

	assert.False(t, IsTerminal(StatusRunning))
	assert.True(t, IsTerminal(StatusCompleted))
	assert.True(t, IsTerminal(StatusCompletedWithErrors))
	assert.True(t, IsTerminal(StatusFailed))

	assert.Equal(t, StatusCompleted, StatusForErrors(0))
	assert.Equal(t, StatusCompletedWithErrors, StatusForErrors(2))
}

func TestRunLogDuration(t *testing.T) {
	start := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	r := RunLog{StartedAt: start}
	assert.Zero(t, r.Duration())

	end := start.Add(90 * time.Second)
	r.EndedAt = &end
	assert.Equal(t, 90*time.Second, r.Duration())
}

func TestCompetitorDescriptor(t *testing.T) {
	assert.Equal(t, "bluebottle", Competitor{Username: "bluebottle"}.Descriptor())
	assert.Equal(t, "https://www.instagram.com/bluebottle/",
		Competitor{Username: "bluebottle", ProfileURL: "https://www.instagram.com/bluebottle/"}.Descriptor())
}

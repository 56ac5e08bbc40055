package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_EveryTierHasCopy(t *testing.T) {
	for tier := 1; tier <= 8; tier++ {
		subject, html, err := Render(tier, "Alex", "https://app.example.com/login")
		require.NoError(t, err, "tier %d", tier)
		assert.NotEmpty(t, subject, "tier %d", tier)
		assert.Contains(t, html, "Hey Alex", "tier %d", tier)
		assert.Contains(t, html, "https://app.example.com/login", "tier %d", tier)
		assert.NotContains(t, html, "{{", "tier %d left an unexpanded placeholder")
	}
}

func TestRender_SubjectsEscalate(t *testing.T) {
	seen := make(map[string]int)
	for tier := 1; tier <= 8; tier++ {
		subject, _, err := Render(tier, "Alex", "https://app.example.com/login")
		require.NoError(t, err)
		if prev, dup := seen[subject]; dup {
			t.Fatalf("tiers %d and %d share subject %q", prev, tier, subject)
		}
		seen[subject] = tier
	}
}

func TestRender_TierAboveTableClamps(t *testing.T) {
	want, _, err := Render(8, "Alex", "https://app.example.com/login")
	require.NoError(t, err)

	got, _, err := Render(12, "Alex", "https://app.example.com/login")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRender_EmptyNameFallsBack(t *testing.T) {
	_, html, err := Render(1, "", "https://app.example.com/login")
	require.NoError(t, err)
	assert.True(t, strings.Contains(html, "Hey Friend"))
}

func TestRender_InvalidTier(t *testing.T) {
	_, _, err := Render(0, "Alex", "https://app.example.com/login")
	assert.Error(t, err)
}

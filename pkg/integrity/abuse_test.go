package integrity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuspiciousPauseTimingFlagged(t *testing.T) {
	events := []Event{
		{Kind: KindAuthorityPause, HandID: "h1", FacingAction: true},
		{Kind: KindAuthorityPause, HandID: "h2", FacingAction: true},
		{Kind: KindAuthorityPause, HandID: "h3", FacingAction: true},
		{Kind: KindAuthorityPause, HandID: "h4", FacingAction: true},
		{Kind: KindAuthorityPause, HandID: "h5", FacingAction: false},
	}
	d := NewAuthorityAbuseDetector(DefaultAuthorityAbuseThresholds(), "")
	signals := d.Detect(events)
	require.Len(t, signals, 1)
	require.Equal(t, "suspicious-pause-timing", signals[0].Pattern)
}

func TestConfigChangeAfterLossCorrelated(t *testing.T) {
	events := []Event{
		{Kind: KindPotAwarded, HandID: "h1", Timestamp: 1000, WinnerID: "player1", Contributors: []string{"player1", "house"}},
		{Kind: KindConfigChange, HandID: "h1", Timestamp: 1500},
		{Kind: KindPotAwarded, HandID: "h2", Timestamp: 2000, WinnerID: "player1", Contributors: []string{"player1", "house"}},
		{Kind: KindConfigChange, HandID: "h2", Timestamp: 2200},
		{Kind: KindPotAwarded, HandID: "h3", Timestamp: 3000, WinnerID: "player1", Contributors: []string{"player1", "house"}},
		{Kind: KindConfigChange, HandID: "h3", Timestamp: 3300},
	}
	d := NewAuthorityAbuseDetector(DefaultAuthorityAbuseThresholds(), "house")
	signals := d.Detect(events)
	found := false
	for _, s := range signals {
		if s.Pattern == "config-change-after-loss" {
			found = true
		}
	}
	require.True(t, found)
}

func TestSelectiveKicksOfWinnersFlagged(t *testing.T) {
	events := []Event{
		{Kind: KindPlayerKicked, PlayerID: "a", RecentNetWin: 500},
		{Kind: KindPlayerKicked, PlayerID: "b", RecentNetWin: 300},
		{Kind: KindPlayerKicked, PlayerID: "c", RecentNetWin: -50},
		{Kind: KindPlayerKicked, PlayerID: "d", RecentNetWin: 200},
	}
	d := NewAuthorityAbuseDetector(DefaultAuthorityAbuseThresholds(), "")
	signals := d.Detect(events)
	require.Len(t, signals, 1)
	require.Equal(t, "selective-kicks-of-winners", signals[0].Pattern)
	require.ElementsMatch(t, []string{"a", "b", "d"}, signals[0].Indicator.Players)
}

func TestAuthorityAbuseIgnoresThinSample(t *testing.T) {
	events := []Event{
		{Kind: KindAuthorityPause, FacingAction: true},
	}
	d := NewAuthorityAbuseDetector(DefaultAuthorityAbuseThresholds(), "")
	signals := d.Detect(events)
	require.Empty(t, signals)
}

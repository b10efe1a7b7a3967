package economy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pokerauthority/core/pkg/protocol"
)

func TestSidePotsHeadsUpSinglePot(t *testing.T) {
	contributions := []Contribution{
		{PlayerID: "hero", TotalContribution: 30},
		{PlayerID: "villain", TotalContribution: 30},
	}
	pots := CalculateSidePots(contributions)
	require.Len(t, pots, 1)
	require.Equal(t, int64(60), pots[0].Amount)
	require.ElementsMatch(t, []string{"hero", "villain"}, pots[0].Eligible)
}

func TestSidePotsThreeWay(t *testing.T) {
	contributions := []Contribution{
		{PlayerID: "p1", TotalContribution: 100, IsAllIn: true},
		{PlayerID: "p2", TotalContribution: 200, IsAllIn: true},
		{PlayerID: "p3", TotalContribution: 300, IsAllIn: true},
	}
	pots := CalculateSidePots(contributions)
	require.Len(t, pots, 3)
	require.Equal(t, int64(300), pots[0].Amount)
	require.ElementsMatch(t, []string{"p1", "p2", "p3"}, pots[0].Eligible)
	require.Equal(t, int64(200), pots[1].Amount)
	require.ElementsMatch(t, []string{"p2", "p3"}, pots[1].Eligible)
	require.Equal(t, int64(100), pots[2].Amount)
	require.ElementsMatch(t, []string{"p3"}, pots[2].Eligible)
	require.Equal(t, TotalContributed(contributions), TotalPots(pots))
}

func TestSidePotsConservationProperty(t *testing.T) {
	vectors := [][]Contribution{
		{{PlayerID: "a", TotalContribution: 50, IsAllIn: true}, {PlayerID: "b", TotalContribution: 50, IsAllIn: true}, {PlayerID: "c", TotalContribution: 120}},
		{{PlayerID: "a", TotalContribution: 10, IsAllIn: true}, {PlayerID: "b", TotalContribution: 10, IsAllIn: true}, {PlayerID: "c", TotalContribution: 10, IsAllIn: true}},
		{{PlayerID: "a", TotalContribution: 75, IsAllIn: true, IsFolded: true}, {PlayerID: "b", TotalContribution: 200}},
	}
	for _, v := range vectors {
		pots := CalculateSidePots(v)
		require.Equal(t, TotalContributed(v), TotalPots(pots))
	}
}

func TestSettlePotsSplitWithRemainder(t *testing.T) {
	pots := []SidePot{{Amount: 19, Eligible: []string{"hero", "villain"}}}
	payouts := SettlePots(pots, [][]string{{"hero", "villain"}})
	require.Equal(t, int64(19), TotalPayouts(payouts))

	byPlayer := map[string]int64{}
	for _, p := range payouts {
		byPlayer[p.PlayerID] += p.Amount
	}
	require.Equal(t, int64(10), byPlayer["hero"])
	require.Equal(t, int64(9), byPlayer["villain"])
}

func TestRakeHeadsUpCap(t *testing.T) {
	calc := NewRakeCalculator(RakeConfig{Policy: RakeStandard, Percentage: 5, Cap: 3, NoFlopNoRake: true})
	res := calc.Calculate(RakeInput{Pot: 60, ReachedFlop: true, PlayersAtShowdown: 2, FinalStreet: "river"})
	require.Equal(t, int64(3), res.RakeAmount)
	require.Equal(t, int64(57), res.PotAfterRake)
	require.True(t, res.CapApplied)
}

func TestRakeNoFlopNoRake(t *testing.T) {
	calc := NewRakeCalculator(RakeConfig{Policy: RakeStandard, Percentage: 5, Cap: 3, NoFlopNoRake: true})
	res := calc.Calculate(RakeInput{Pot: 15, ReachedFlop: false})
	require.True(t, res.Waived)
	require.Equal(t, "no-flop-no-rake", res.WaivedReason)
	require.Equal(t, int64(0), res.RakeAmount)
	require.Equal(t, int64(15), res.PotAfterRake)
}

func TestEconomyEngineEndToEndHeadsUp(t *testing.T) {
	e := NewEconomyEngine(RakeConfig{Policy: RakeStandard, Percentage: 5, Cap: 3, NoFlopNoRake: true})
	require.NoError(t, e.InitializePlayer("hero", 500, 1))
	require.NoError(t, e.InitializePlayer("villain", 500, 1))
	require.NoError(t, e.BuyIn("t1", "hero", 500))
	require.NoError(t, e.BuyIn("t1", "villain", 500))

	e.StartHand("h1")
	require.NoError(t, e.PostBlinds("h1", "t1", map[string]int64{"hero": 5, "villain": 10}, 2))
	// hero (SB) raises to 30 (additional 25), villain (BB) calls (additional 20)
	require.NoError(t, e.RecordAction("h1", "t1", "preflop", "hero", 25, 3))
	require.NoError(t, e.RecordAction("h1", "t1", "preflop", "villain", 20, 4))

	result, err := e.SettleHand(SettleHandInput{
		HandID:  "h1",
		TableID: "t1",
		Rake:    RakeInput{ReachedFlop: true, PlayersAtShowdown: 2, FinalStreet: "river"},
		Decisions: []WinnerDecision{
			{PotIndex: 0, Winners: []string{"hero"}},
		},
		Timestamp: 5,
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), result.Rake.RakeAmount)
	require.Equal(t, int64(57), TotalPayouts(result.Payouts))

	require.Equal(t, int64(527), e.GetPlayerStack("t1", "hero"))
	require.Equal(t, int64(470), e.GetPlayerStack("t1", "villain"))

	_, err = e.SettleHand(SettleHandInput{HandID: "h1", TableID: "t1"})
	require.Error(t, err)
	reject, ok := protocol.AsReject(err)
	require.True(t, ok)
	require.Equal(t, protocol.CodeDuplicateSettlement, reject.Code)

	require.Nil(t, e.VerifyIntegrity())
}

func TestLedgerTamperDetected(t *testing.T) {
	l := NewLedgerManager()
	_, err := l.SetInitialBalance("p1", 500, 1)
	require.NoError(t, err)
	_, err = l.Record(LedgerEntry{Kind: EntryBet, PlayerID: "p1", Amount: -10, BalanceAfter: 490, Timestamp: 2})
	require.NoError(t, err)

	require.Nil(t, l.VerifyIntegrity())

	// Tamper with a recorded field directly (simulating storage corruption).
	l.entries[0].Amount = 999

	report := l.VerifyIntegrity()
	require.NotNil(t, report)
	require.Equal(t, 0, report.Index)
}

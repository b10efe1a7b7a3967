package moderation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/pokerauthority/core/pkg/integrity"
)

// EvidenceBundle is the complete, self-contained record a moderator
// reviews for one flagged hand (spec.md §4.6): the raw events, the
// deterministic replay, the player metrics at the time of flagging,
// every detection signal that implicated it, and a checksum over the
// whole aggregate plus the inner replay checksum.
type EvidenceBundle struct {
	BundleID string
	HandID   string

	HandEvents []integrity.Event
	Replay     *HandReplay

	PlayerMetrics map[string]*integrity.PlayerMetrics

	DetectionSignals []integrity.DetectionSignal
	Outcome          string // e.g. "pending", "confirmed-collusion", "cleared"
	TableContext     string

	Checksum string
}

// EvidenceBundleBuilder assembles EvidenceBundle values.
type EvidenceBundleBuilder struct{}

func NewEvidenceBundleBuilder() *EvidenceBundleBuilder { return &EvidenceBundleBuilder{} }

// Build composes bundleID's evidence bundle and stamps its checksum.
func (b *EvidenceBundleBuilder) Build(
	bundleID, handID string,
	handEvents []integrity.Event,
	replay *HandReplay,
	playerMetrics map[string]*integrity.PlayerMetrics,
	signals []integrity.DetectionSignal,
	outcome, tableContext string,
) *EvidenceBundle {
	bundle := &EvidenceBundle{
		BundleID:         bundleID,
		HandID:           handID,
		HandEvents:       handEvents,
		Replay:           replay,
		PlayerMetrics:    playerMetrics,
		DetectionSignals: signals,
		Outcome:          outcome,
		TableContext:     tableContext,
	}
	bundle.Checksum = checksumBundle(bundle)
	return bundle
}

// bundleChecksumInput excludes Checksum itself, the same discipline
// the ledger's canonicalFields uses for LedgerEntry.Hash.
type bundleChecksumInput struct {
	BundleID         string
	HandID           string
	HandEvents       []integrity.Event
	ReplayChecksum   string
	PlayerMetrics    map[string]*integrity.PlayerMetrics
	DetectionSignals []integrity.DetectionSignal
	Outcome          string
	TableContext     string
}

func checksumBundle(b *EvidenceBundle) string {
	replayChecksum := ""
	if b.Replay != nil {
		replayChecksum = b.Replay.Checksum
	}
	input := bundleChecksumInput{
		BundleID: b.BundleID, HandID: b.HandID, HandEvents: b.HandEvents,
		ReplayChecksum: replayChecksum, PlayerMetrics: b.PlayerMetrics,
		DetectionSignals: b.DetectionSignals, Outcome: b.Outcome, TableContext: b.TableContext,
	}
	data, _ := json.Marshal(input)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyBundle confirms both the aggregate checksum and the inner
// replay's own checksum; either one failing means tampering.
func VerifyBundle(b *EvidenceBundle) bool {
	if b.Replay != nil && !VerifyReplayDeterminism(b.Replay) {
		return false
	}
	return checksumBundle(b) == b.Checksum
}

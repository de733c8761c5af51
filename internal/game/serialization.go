package game

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stratego-online/stratego-server-go/internal/ai"
	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stratego-online/stratego-server-go/internal/game/rules"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// snapshotVersion tags the serialized layout for forward compatibility.
const snapshotVersion = 1

// Snapshot is a complete, unprojected copy of one game: the document persisted to
// storage and restored on startup. It contains hidden ranks and must not be sent to clients.
type Snapshot struct {
	GameID     string             `json:"game_id"`
	RedPlayer  string             `json:"red_player"`
	BluePlayer string             `json:"blue_player,omitempty"`
	VsAI       bool               `json:"vs_ai"`
	Difficulty ai.Difficulty      `json:"difficulty,omitempty"`
	State      rules.GameState    `json:"state"`
	Moves      []rules.MoveRecord `json:"moves"`
	Version    int64              `json:"version"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// SerializationChecksum is a deterministic digest of a snapshot's game content.
type SerializationChecksum struct {
	Hash    string // BLAKE2b-256 of the canonical representation
	Version int    // Serialization version
}

func (g *gameEntry) snapshot() *Snapshot {
	moves := make([]rules.MoveRecord, len(g.moves))
	copy(moves, g.moves)
	return &Snapshot{
		GameID:     g.id,
		RedPlayer:  g.redPlayer,
		BluePlayer: g.bluePlayer,
		VsAI:       g.vsAI,
		Difficulty: g.difficulty,
		State:      *g.state.Clone(),
		Moves:      moves,
		Version:    g.version,
		CreatedAt:  g.createdAt,
		UpdatedAt:  g.updatedAt,
	}
}

// Snapshot returns a deep copy of a game's full state.
func (e *Engine) Snapshot(gameID string) (*Snapshot, error) {
	g, err := e.lookup(gameID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.snapshot(), nil
}

// Restore loads a snapshot into the engine, replacing an already loaded game only
// when the snapshot is newer.
func (e *Engine) Restore(snap *Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	state := snap.State.Clone()
	moves := make([]rules.MoveRecord, len(snap.Moves))
	copy(moves, snap.Moves)

	apply := func(g *gameEntry) {
		g.redPlayer = snap.RedPlayer
		g.bluePlayer = snap.BluePlayer
		g.vsAI = snap.VsAI
		g.difficulty = snap.Difficulty
		g.state = state
		g.moves = moves
		g.version = snap.Version
		g.createdAt = snap.CreatedAt
		g.updatedAt = snap.UpdatedAt
	}

	if existing, err := e.lookup(snap.GameID); err == nil {
		existing.mu.Lock()
		defer existing.mu.Unlock()
		if snap.Version <= existing.version {
			return fmt.Errorf("%w: game %s at version %d, snapshot %d", ErrStaleSnapshot, snap.GameID, existing.version, snap.Version)
		}
		apply(existing)
		e.resumeRecording(existing)
		e.logger.Info("game state replaced from snapshot",
			zap.String("game_id", snap.GameID),
			zap.Int64("version", snap.Version),
		)
		return nil
	}

	g := &gameEntry{id: snap.GameID}
	apply(g)

	g.mu.Lock()
	defer g.mu.Unlock()

	e.mu.Lock()
	if _, ok := e.games[snap.GameID]; ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrGameExists, snap.GameID)
	}
	e.games[snap.GameID] = g
	e.mu.Unlock()

	e.resumeRecording(g)

	e.logger.Info("game restored",
		zap.String("game_id", snap.GameID),
		zap.String("phase", string(state.Phase)),
		zap.Int64("version", snap.Version),
	)
	return nil
}

// Validate checks that a snapshot describes a coherent game.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("nil snapshot")
	}
	if s.GameID == "" {
		return fmt.Errorf("snapshot has no game id")
	}
	if s.RedPlayer == "" {
		return fmt.Errorf("snapshot %s has no red player", s.GameID)
	}
	if s.VsAI && s.BluePlayer != AIPlayerID {
		return fmt.Errorf("snapshot %s is against the computer but blue seat is %q", s.GameID, s.BluePlayer)
	}
	if s.State.Phase != rules.PhaseWaiting && s.BluePlayer == "" {
		return fmt.Errorf("snapshot %s left waiting without a blue player", s.GameID)
	}
	if len(s.Moves) != s.State.MoveCount {
		return fmt.Errorf("snapshot %s has %d moves but move count %d", s.GameID, len(s.Moves), s.State.MoveCount)
	}
	if err := s.State.Validate(); err != nil {
		return fmt.Errorf("snapshot %s: %w", s.GameID, err)
	}
	return nil
}

// ComputeChecksum generates a deterministic checksum of the snapshot's game content.
// Timestamps and the version counter are excluded so two engines that played the
// same moves agree.
func (s *Snapshot) ComputeChecksum() (*SerializationChecksum, error) {
	sum := blake2b.Sum256([]byte(s.buildDeterministicRepresentation()))
	return &SerializationChecksum{
		Hash:    hex.EncodeToString(sum[:]),
		Version: snapshotVersion,
	}, nil
}

// StateChecksum hashes a bare game state the same way ComputeChecksum does.
func StateChecksum(state *rules.GameState) string {
	var buf strings.Builder
	writeState(&buf, state)
	sum := blake2b.Sum256([]byte(buf.String()))
	return hex.EncodeToString(sum[:])
}

// buildDeterministicRepresentation creates a canonical string representation of the game.
func (s *Snapshot) buildDeterministicRepresentation() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "GAME:%s|%s|%s|%t|%s\n", s.GameID, s.RedPlayer, s.BluePlayer, s.VsAI, s.Difficulty)
	writeState(&buf, &s.State)

	// Move order matters, so the log is written as recorded.
	for _, m := range s.Moves {
		captured := "-"
		if m.CapturedRank != nil {
			captured = fmt.Sprint(int(*m.CapturedRank))
		}
		fmt.Fprintf(&buf, "MOVE:%d|%s|%d|%s|%s|%s|%s|%t\n",
			m.Sequence, m.Color, int(m.Rank), m.From, m.To, captured, m.Result, m.GameOver)
	}
	return buf.String()
}

func writeState(buf *strings.Builder, state *rules.GameState) {
	fmt.Fprintf(buf, "STATE:%s|%s|%s|%s|%t|%t|%d\n",
		state.Phase,
		state.CurrentTurn,
		colorOrDash(state.Winner),
		colorOrDash(state.ForfeitedBy),
		state.RedSetupComplete,
		state.BlueSetupComplete,
		state.MoveCount,
	)
	state.Board.Each(func(p board.Position, sq board.Square) {
		if sq.IsOccupied() {
			fmt.Fprintf(buf, "PIECE:%d,%d|%s|%d|%t\n", p.Row, p.Col, sq.Piece.Color, int(sq.Piece.Rank), sq.Piece.Revealed)
		}
	})
}

func colorOrDash(c *pieces.Color) string {
	if c == nil {
		return "-"
	}
	return c.String()
}

// VerifyChecksum verifies that a snapshot's stored checksum matches its computed checksum.
func (s *Snapshot) VerifyChecksum(expected *SerializationChecksum) (bool, error) {
	computed, err := s.ComputeChecksum()
	if err != nil {
		return false, fmt.Errorf("failed to compute checksum: %w", err)
	}
	return computed.Hash == expected.Hash, nil
}

// snapshotWire has Snapshot's fields without its methods.
type snapshotWire Snapshot

// GobEncode carries the snapshot as JSON inside the gob stream. Plain gob drops
// pointers to zero values, which would lose a Red winner or a captured Flag.
func (s *Snapshot) GobEncode() ([]byte, error) {
	return json.Marshal((*snapshotWire)(s))
}

// GobDecode reverses GobEncode.
func (s *Snapshot) GobDecode(data []byte) error {
	return json.Unmarshal(data, (*snapshotWire)(s))
}

// SerializeToBytes encodes the snapshot with gob, the format used for replay files.
func (s *Snapshot) SerializeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeFromBytes decodes a gob-encoded snapshot.
func DeserializeFromBytes(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// MarshalState encodes a game state as JSON, the column format used by storage.
func MarshalState(state *rules.GameState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

// UnmarshalState decodes and validates a JSON game state. A structurally invalid
// board is rejected rather than repaired.
func UnmarshalState(data []byte) (*rules.GameState, error) {
	var state rules.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return &state, nil
}

// ValidateSerializationRoundtrip checks that a snapshot survives gob encoding unchanged
// by comparing checksums before and after.
func ValidateSerializationRoundtrip(s *Snapshot) error {
	original, err := s.ComputeChecksum()
	if err != nil {
		return fmt.Errorf("failed to compute original checksum: %w", err)
	}

	data, err := s.SerializeToBytes()
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}
	decoded, err := DeserializeFromBytes(data)
	if err != nil {
		return fmt.Errorf("failed to deserialize: %w", err)
	}

	roundtrip, err := decoded.ComputeChecksum()
	if err != nil {
		return fmt.Errorf("failed to compute deserialized checksum: %w", err)
	}
	if original.Hash != roundtrip.Hash {
		return fmt.Errorf("checksum mismatch: original=%s, deserialized=%s", original.Hash, roundtrip.Hash)
	}
	return nil
}

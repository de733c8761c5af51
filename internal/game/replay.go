package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	replayFormatVersion = 2
	replayExt           = ".replay"
)

// Replay is a recorded game: one snapshot after every state change, oldest first.
type Replay struct {
	GameID string
	Frames []*Snapshot
}

// Len returns the number of frames.
func (r *Replay) Len() int {
	return len(r.Frames)
}

// Final returns the last recorded frame, or nil for an empty replay.
func (r *Replay) Final() *Snapshot {
	if len(r.Frames) == 0 {
		return nil
	}
	return r.Frames[len(r.Frames)-1]
}

// AfterMove returns the first frame taken once n moves had been played. Zero
// yields the first frame of the playing phase or, before that, the setup frames.
func (r *Replay) AfterMove(n int) *Snapshot {
	for _, f := range r.Frames {
		if f.State.MoveCount == n {
			return f
		}
	}
	return nil
}

// replayHeader precedes the frames in a replay file. Checksum covers the final
// frame's game state and is checked on load.
type replayHeader struct {
	Format   int
	GameID   string
	SavedAt  time.Time
	Frames   int
	Checksum string
}

// ReplayPath is where a game's replay is stored under dir.
func ReplayPath(dir, gameID string) string {
	return filepath.Join(dir, gameID+replayExt)
}

// WriteFile stores the replay as gzipped gob under dir. The file is written
// beside its final name and renamed, so readers never see a partial replay.
func (r *Replay) WriteFile(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, r.GameID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := r.encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return os.Rename(tmp.Name(), ReplayPath(dir, r.GameID))
}

func (r *Replay) encode(w io.Writer) error {
	zw := gzip.NewWriter(w)
	enc := gob.NewEncoder(zw)

	hdr := replayHeader{
		Format:  replayFormatVersion,
		GameID:  r.GameID,
		SavedAt: time.Now().UTC(),
		Frames:  len(r.Frames),
	}
	if final := r.Final(); final != nil {
		hdr.Checksum = StateChecksum(&final.State)
	}
	if err := enc.Encode(&hdr); err != nil {
		return fmt.Errorf("failed to encode header: %w", err)
	}
	for i, f := range r.Frames {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	return zw.Close()
}

// LoadReplay reads the replay WriteFile stored for gameID under dir.
func LoadReplay(dir, gameID string) (*Replay, error) {
	f, err := os.Open(ReplayPath(dir, gameID))
	if err != nil {
		return nil, fmt.Errorf("failed to open replay: %w", err)
	}
	defer f.Close()

	r, err := decodeReplay(f)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", gameID, err)
	}
	if r.GameID != gameID {
		return nil, fmt.Errorf("replay file for %s holds game %s", gameID, r.GameID)
	}
	return r, nil
}

func decodeReplay(rd io.Reader) (*Replay, error) {
	zr, err := gzip.NewReader(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer zr.Close()
	dec := gob.NewDecoder(zr)

	var hdr replayHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	if hdr.Format != replayFormatVersion {
		return nil, fmt.Errorf("unsupported replay format %d", hdr.Format)
	}

	r := &Replay{GameID: hdr.GameID, Frames: make([]*Snapshot, 0, hdr.Frames)}
	for i := 0; i < hdr.Frames; i++ {
		frame := new(Snapshot)
		if err := dec.Decode(frame); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		r.Frames = append(r.Frames, frame)
	}
	if final := r.Final(); final != nil && StateChecksum(&final.State) != hdr.Checksum {
		return nil, fmt.Errorf("final frame does not match checksum %s", hdr.Checksum)
	}
	return r, nil
}

// ReplayRecorder collects frames of running games and writes each replay to
// disk when its game ends.
type ReplayRecorder struct {
	logger *zap.Logger
	dir    string

	mu     sync.Mutex
	active map[string]*Replay
}

// NewReplayRecorder creates a recorder saving under dir.
func NewReplayRecorder(logger *zap.Logger, dir string) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayRecorder{
		logger: logger,
		dir:    dir,
		active: make(map[string]*Replay),
	}
}

// Begin starts a fresh recording for gameID, dropping any earlier one.
func (rr *ReplayRecorder) Begin(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	rr.active[gameID] = &Replay{GameID: gameID}
}

// Record appends frame to the game's recording. Games not being recorded are ignored.
func (rr *ReplayRecorder) Record(gameID string, frame *Snapshot) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	if r, ok := rr.active[gameID]; ok {
		r.Frames = append(r.Frames, frame)
	}
}

// Recording returns a copy of the frames recorded so far for a running game.
func (rr *ReplayRecorder) Recording(gameID string) (*Replay, bool) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	r, ok := rr.active[gameID]
	if !ok {
		return nil, false
	}
	return &Replay{GameID: r.GameID, Frames: append([]*Snapshot(nil), r.Frames...)}, true
}

// Finish stops recording gameID and writes its replay to disk.
func (rr *ReplayRecorder) Finish(gameID string) error {
	rr.mu.Lock()
	r, ok := rr.active[gameID]
	delete(rr.active, gameID)
	rr.mu.Unlock()

	if !ok {
		return fmt.Errorf("game %s is not being recorded", gameID)
	}
	if err := r.WriteFile(rr.dir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}

	rr.logger.Info("replay saved",
		zap.String("game_id", gameID),
		zap.Int("frames", r.Len()),
		zap.String("path", ReplayPath(rr.dir, gameID)),
	)
	return nil
}

// Discard drops a recording without saving it.
func (rr *ReplayRecorder) Discard(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	delete(rr.active, gameID)
}

// Load reads a saved replay from the recorder's directory.
func (rr *ReplayRecorder) Load(gameID string) (*Replay, error) {
	return LoadReplay(rr.dir, gameID)
}

// recordFrame stores the game's current snapshot in its replay. g.mu must be held.
func (e *Engine) recordFrame(g *gameEntry) {
	if e.replays == nil {
		return
	}
	e.replays.Record(g.id, g.snapshot())
}

// resumeRecording continues recording a restored game, starting from its
// restored state. Frames from before the restart live only in the stored game.
// g.mu must be held.
func (e *Engine) resumeRecording(g *gameEntry) {
	if e.replays == nil || g.state.Phase.Terminal() {
		return
	}
	if _, ok := e.replays.Recording(g.id); !ok {
		e.replays.Begin(g.id)
	}
	e.recordFrame(g)
}

// saveReplay writes a finished game's replay. Failures are logged, never returned.
func (e *Engine) saveReplay(g *gameEntry) {
	if e.replays == nil {
		return
	}
	if _, ok := e.replays.Recording(g.id); !ok {
		return
	}
	if err := e.replays.Finish(g.id); err != nil {
		e.logger.Warn("failed to save replay",
			zap.String("game_id", g.id),
			zap.Error(err),
		)
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Soujiro0/market-pulse-sub000/internal/catalog"
	"github.com/Soujiro0/market-pulse-sub000/internal/config"
	"github.com/Soujiro0/market-pulse-sub000/internal/game"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestDecodeAppliesDefaults(t *testing.T) {
	st := Decode([]byte(`{"balance": 2500, "xp": 7200}`), quiet())
	assert.Equal(t, int64(2500), st.Balance)
	assert.Equal(t, int64(1), st.Turn)
	assert.Equal(t, game.BaseInterestRate, st.Loan.InterestRate)
	assert.Equal(t, game.RerollLimitPerCycle, st.Reroll.Limit)
	assert.Equal(t, 1, st.TierIndex)
	assert.Equal(t, 3, st.RankInTier)
	assert.NotNil(t, st.History)
}

func TestDecodeMalformedFallsBack(t *testing.T) {
	for _, raw := range []string{"", "   ", "{not json", `{"balance":"lots"}`, `[1,2,3]`} {
		st := Decode([]byte(raw), quiet())
		assert.Equal(t, game.StarterBalance, st.Balance, "input %q", raw)
		assert.Equal(t, int64(1), st.Turn, "input %q", raw)
	}
}

func TestDecodeNormalises(t *testing.T) {
	st := Decode([]byte(`{"turn": -4, "xp": -10, "loan": {"active": true, "amount": 0}}`), quiet())
	assert.Equal(t, int64(1), st.Turn)
	assert.Zero(t, st.XP)
	assert.False(t, st.Loan.Active)
}

func TestDecodeDropsUnplayableTrade(t *testing.T) {
	const tmpl = `{"activeTrade": {"units": %d, "investment": 100, "path": [100, 101], "playback": {"status": %q, "day": %d, "speed": 1}}}`
	cases := []struct {
		units  int
		status string
		day    int
		keeps  bool
	}{
		{units: 1, status: "running", day: 0, keeps: true},
		{units: 1, status: "running", day: -1},
		{units: 1, status: "running", day: 5},
		{units: 1, status: "finished", day: 1},
		{units: 0, status: "paused", day: 0},
	}
	for _, tc := range cases {
		st := Decode([]byte(fmt.Sprintf(tmpl, tc.units, tc.status, tc.day)), quiet())
		assert.Equal(t, tc.keeps, st.ActiveTrade != nil, "%+v", tc)
		if st.ActiveTrade == nil {
			continue
		}
		_, _, _, err := game.ApplyPlayback(st, game.NewSource(1), game.TurnDeps{Templates: catalog.Default().Templates}, game.PullOut{})
		assert.NoError(t, err, "%+v", tc)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "saves")
	store, err := NewFileStore(dir, "marketpulse_save_v1", quiet())
	require.NoError(t, err)

	st, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, game.StarterBalance, st.Balance)

	st = game.NewGameState(game.NewSource(4), catalog.Default().Templates)
	st.Balance = 777
	st.XP = 1500
	require.NoError(t, store.Save(ctx, st))

	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(777), got.Balance)
	assert.Equal(t, int64(1500), got.XP)
	assert.Equal(t, st.ActiveAssets, got.ActiveAssets)
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "slot", quiet())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slot.json"), []byte("garbage"), 0o600))

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, game.StarterBalance, st.Balance)
}

type fakeRow struct {
	raw []byte
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.raw
	return nil
}

type fakeDB struct {
	execs []string
	args  [][]any
	rows  map[string][]byte
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	f.args = append(f.args, args)
	if strings.Contains(sql, "INSERT INTO") {
		f.rows[args[0].(string)] = args[1].([]byte)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	raw, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{raw: raw}
}

func TestPGStore(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{rows: map[string][]byte{}}
	store, err := NewPGStore(ctx, db, `snap"shots`, "marketpulse_save_v1", quiet())
	require.NoError(t, err)
	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0], `CREATE TABLE IF NOT EXISTS "snap""shots"`)

	st, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, game.StarterBalance, st.Balance)

	st.Balance = 4321
	require.NoError(t, store.Save(ctx, st))
	assert.Contains(t, db.execs[1], `ON CONFLICT (save_key)`)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4321), got.Balance)
}

func TestPGStoreLoadError(t *testing.T) {
	db := &fakeDB{rows: map[string][]byte{}}
	store, err := NewPGStore(context.Background(), db, "game_snapshots", "k", quiet())
	require.NoError(t, err)
	store.db = erroringDB{db}
	_, err = store.Load(context.Background())
	require.Error(t, err)
}

type erroringDB struct{ *fakeDB }

func (erroringDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return fakeRow{err: errors.New("connection reset")}
}

func TestOpenWithoutDatabaseUsesFiles(t *testing.T) {
	dir := t.TempDir()
	store, closeFn, err := Open(context.Background(), config.GameConfig{DataDir: dir, SaveKey: "slot"}, quiet())
	require.NoError(t, err)
	defer closeFn()
	fs, ok := store.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "slot.json"), fs.Path())
}

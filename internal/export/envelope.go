package export

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/Soujiro0/market-pulse-sub000/internal/game"
)

const Version = "marketpulse-v1"

// sharedSecret is compiled in so any build can read any other build's exports.
const sharedSecret = "market-pulse/export/shared-secret/v1"

var keyInfo = []byte("marketpulse export key")

type Kind string

const (
	KindCorrupt         Kind = "corrupt"
	KindMissingFields   Kind = "missing_fields"
	KindVersionMismatch Kind = "version_mismatch"
	KindNotJSON         Kind = "not_json"
)

type ImportError struct {
	Kind   Kind
	Detail string
}

func (e *ImportError) Error() string {
	if e.Detail == "" {
		return "import failed: " + string(e.Kind)
	}
	return fmt.Sprintf("import failed: %s: %s", e.Kind, e.Detail)
}

// Is matches any *ImportError of the same kind.
func (e *ImportError) Is(target error) bool {
	t, ok := target.(*ImportError)
	return ok && t.Kind == e.Kind && t.Detail == ""
}

var (
	ErrCorrupt         = &ImportError{Kind: KindCorrupt}
	ErrMissingFields   = &ImportError{Kind: KindMissingFields}
	ErrVersionMismatch = &ImportError{Kind: KindVersionMismatch}
	ErrNotJSON         = &ImportError{Kind: KindNotJSON}
)

type Envelope struct {
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Player    string         `json:"player"`
	GameState game.GameState `json:"gameState"`
}

type wireEnvelope struct {
	Version   *string         `json:"version"`
	Timestamp string          `json:"timestamp"`
	Player    *string         `json:"player"`
	GameState json.RawMessage `json:"gameState"`
}

type Codec struct {
	aead cipher.AEAD
	now  func() time.Time
}

// NewCodec derives the envelope key from secret.
func NewCodec(secret []byte, now func() time.Time) (*Codec, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, keyInfo), key); err != nil {
		return nil, fmt.Errorf("derive export key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init export cipher: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Codec{aead: aead, now: now}, nil
}

func DefaultCodec() *Codec {
	c, err := NewCodec([]byte(sharedSecret), nil)
	if err != nil {
		panic(err)
	}
	return c
}

// Export seals the state into an opaque base64 string.
func (c *Codec) Export(player string, st game.GameState) (string, error) {
	env := Envelope{
		Version:   Version,
		Timestamp: c.now().UTC().Truncate(time.Second),
		Player:    player,
		GameState: st,
	}
	plain, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("export nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Import opens and validates an exported string. Every failure is an *ImportError.
func (c *Codec) Import(blob string) (Envelope, error) {
	sealed, err := base64.StdEncoding.DecodeString(strings.TrimSpace(blob))
	if err != nil {
		return Envelope{}, &ImportError{Kind: KindCorrupt, Detail: "not base64"}
	}
	ns := c.aead.NonceSize()
	if len(sealed) < ns+c.aead.Overhead() {
		return Envelope{}, &ImportError{Kind: KindCorrupt, Detail: "too short"}
	}
	plain, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return Envelope{}, &ImportError{Kind: KindCorrupt, Detail: "authentication failed"}
	}
	return decodePlain(plain)
}

func decodePlain(plain []byte) (Envelope, error) {
	if !json.Valid(plain) {
		return Envelope{}, &ImportError{Kind: KindNotJSON}
	}
	var w wireEnvelope
	if err := json.Unmarshal(plain, &w); err != nil {
		return Envelope{}, &ImportError{Kind: KindMissingFields, Detail: err.Error()}
	}
	var missing []string
	if w.Version == nil {
		missing = append(missing, "version")
	}
	if w.Player == nil {
		missing = append(missing, "player")
	}
	if len(w.GameState) == 0 || bytes.Equal(bytes.TrimSpace(w.GameState), []byte("null")) {
		missing = append(missing, "gameState")
	}
	if len(missing) > 0 {
		return Envelope{}, &ImportError{Kind: KindMissingFields, Detail: strings.Join(missing, ", ")}
	}
	if *w.Version != Version {
		return Envelope{}, &ImportError{Kind: KindVersionMismatch, Detail: fmt.Sprintf("got %q, want %q", *w.Version, Version)}
	}

	st := game.NewGameState(nil, nil)
	if err := json.Unmarshal(w.GameState, &st); err != nil {
		return Envelope{}, &ImportError{Kind: KindCorrupt, Detail: "gameState: " + err.Error()}
	}
	st, _ = game.Normalize(st)

	env := Envelope{Version: *w.Version, Player: *w.Player, GameState: st}
	if ts, err := time.Parse(time.RFC3339, w.Timestamp); err == nil {
		env.Timestamp = ts
	}
	return env, nil
}

package workflow

import (
	"encoding/hex"
	"fmt"

	"github.com/xraph/docflow/id"
	"github.com/xraph/docflow/schema"
)

// Mode is the lifecycle mode of an instance.
type Mode uint8

const (
	// ModeUninit means doInit has not succeeded yet.
	ModeUninit Mode = iota
	// ModeRunning means the instance accepts approve, review, signoff and abort.
	ModeRunning
	// ModeComplete is terminal, reached through signoff.
	ModeComplete
	// ModeAborted is terminal, reached through abort.
	ModeAborted
)

var modeNames = [...]string{"uninit", "running", "complete", "aborted"}

// String returns the mode name.
func (m Mode) String() string {
	if int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
	return modeNames[m]
}

// Terminal reports whether m is COMPLETE or ABORTED.
func (m Mode) Terminal() bool { return m == ModeComplete || m == ModeAborted }

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("workflow: unknown mode %q", s)
}

// DocID identifies a document: the high 32 bits are a caller-chosen local
// id, the low 32 bits the document type.
type DocID uint64

// MakeDocID packs a local id and a document type.
func MakeDocID(local, docType uint32) DocID {
	return DocID(uint64(local)<<32 | uint64(docType))
}

// Type returns the document type.
func (d DocID) Type() uint32 { return uint32(d) }

// Local returns the caller-chosen local id.
func (d DocID) Local() uint32 { return uint32(d >> 32) }

// String formats the id as "local:type".
func (d DocID) String() string { return fmt.Sprintf("%d:%d", d.Local(), d.Type()) }

// Hash is a 256-bit content hash. The zero hash is never valid content.
type Hash [32]byte

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// String returns the hex encoding.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(data []byte) error {
	parsed, err := ParseHash(string(data))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a 64-character hex string.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("workflow: parse hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("workflow: parse hash: got %d bytes, want %d", len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

// DocFlag qualifies a document type.
type DocFlag uint8

const (
	// Required types must satisfy their lower limit from doInit onward.
	Required DocFlag = 1 << iota
	// Public types are visible to every participant.
	Public
)

// DocType is the cardinality rule for one document type.
type DocType struct {
	Flags DocFlag `json:"flags"`
	Lo    uint32  `json:"lo"`
	Hi    uint32  `json:"hi"`
}

// Required reports whether the type carries the Required flag.
func (t DocType) Required() bool { return t.Flags&Required != 0 }

// DocTypeInfo is a DocType together with its live document count.
type DocTypeInfo struct {
	DocType
	Count uint32 `json:"count"`
}

// HistoryEntry records one successful lifecycle call. Its index in the
// history is the USN the call was submitted against.
type HistoryEntry struct {
	User    id.UserID    `json:"user"`
	Action  schema.Right `json:"action"`
	State   schema.State `json:"state"`
	Removed []DocID      `json:"removed,omitempty"`
	Added   []DocID      `json:"added,omitempty"`
	Content []Hash       `json:"content,omitempty"`
}

func (e HistoryEntry) clone() HistoryEntry {
	out := e
	out.Removed = append([]DocID(nil), e.Removed...)
	out.Added = append([]DocID(nil), e.Added...)
	out.Content = append([]Hash(nil), e.Content...)
	return out
}

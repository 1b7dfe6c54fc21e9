// Package chatdbtest builds small chat.db-shaped SQLite files for tests.
// The schema is the subset of the Messages schema that imsgstats reads,
// with column names and types matching what macOS writes.
package chatdbtest

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/wesm/imsgstats/internal/chatdb"
)

// Schema is a modern (macOS 11+) store: nanosecond dates, attributedBody,
// chat join tables.
const Schema = `
CREATE TABLE handle (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
	id TEXT NOT NULL,
	country TEXT,
	service TEXT NOT NULL,
	uncanonicalized_id TEXT,
	person_centric_id TEXT,
	UNIQUE (id, service)
);
CREATE TABLE chat (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT UNIQUE NOT NULL,
	style INTEGER,
	chat_identifier TEXT,
	service_name TEXT,
	display_name TEXT
);
CREATE TABLE message (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT UNIQUE NOT NULL,
	text TEXT,
	handle_id INTEGER DEFAULT 0,
	service TEXT,
	date INTEGER,
	is_from_me INTEGER DEFAULT 0,
	attributedBody BLOB,
	cache_has_attachments INTEGER DEFAULT 0
);
CREATE TABLE chat_message_join (
	chat_id INTEGER REFERENCES chat (ROWID) ON DELETE CASCADE,
	message_id INTEGER REFERENCES message (ROWID) ON DELETE CASCADE,
	message_date INTEGER DEFAULT 0,
	PRIMARY KEY (chat_id, message_id)
);
CREATE TABLE chat_handle_join (
	chat_id INTEGER REFERENCES chat (ROWID) ON DELETE CASCADE,
	handle_id INTEGER REFERENCES handle (ROWID) ON DELETE CASCADE,
	UNIQUE (chat_id, handle_id)
);
`

// LegacySchema is a pre-High Sierra store: second-resolution dates, no
// attributedBody, no service column on message, no chat tables.
const LegacySchema = `
CREATE TABLE handle (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT UNIQUE,
	id TEXT NOT NULL,
	service TEXT NOT NULL
);
CREATE TABLE message (
	ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT UNIQUE NOT NULL,
	text TEXT,
	handle_id INTEGER DEFAULT 0,
	date INTEGER,
	is_from_me INTEGER DEFAULT 0
);
`

// Start is the timestamp of the first auto-timed message.
var Start = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

// Store is a writable chat.db fixture on disk.
type Store struct {
	Path string
	DB   *sql.DB
	T    testing.TB

	legacy      bool
	nextGUID    int64
	nextChat    int64
	clock       time.Time
	chatForPeer map[int64]int64
}

// New creates an empty modern store under t.TempDir().
func New(t testing.TB) *Store {
	t.Helper()
	return newStore(t, Schema, false)
}

// NewLegacy creates an empty store with the old schema and second dates.
func NewLegacy(t testing.TB) *Store {
	t.Helper()
	return newStore(t, LegacySchema, true)
}

func newStore(t testing.TB, schema string, legacy bool) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := sql.Open(chatdb.DriverName, path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}

	return &Store{
		Path:        path,
		DB:          db,
		T:           t,
		legacy:      legacy,
		clock:       Start,
		chatForPeer: make(map[int64]int64),
	}
}

// Provider returns a chatdb.Provider reading this fixture.
func (s *Store) Provider() chatdb.PathProvider {
	return chatdb.PathProvider{Path: s.Path}
}

// AddHandle inserts a handle and returns its ROWID.
func (s *Store) AddHandle(id, service string) int64 {
	s.T.Helper()
	res, err := s.DB.Exec(`INSERT INTO handle (id, service) VALUES (?, ?)`, id, service)
	if err != nil {
		s.T.Fatalf("insert handle %q: %v", id, err)
	}
	rowID, _ := res.LastInsertId()
	return rowID
}

// AddChat inserts a chat with the given participants and returns its ROWID.
// On the legacy schema it is a no-op returning 0.
func (s *Store) AddChat(identifier string, handles ...int64) int64 {
	s.T.Helper()
	if s.legacy {
		return 0
	}
	style := 45
	if len(handles) > 1 {
		style = 43
	}
	s.nextChat++
	res, err := s.DB.Exec(`INSERT INTO chat (guid, style, chat_identifier, service_name) VALUES (?, ?, ?, 'iMessage')`,
		fmt.Sprintf("iMessage;-;%s;%d", identifier, s.nextChat), style, identifier)
	if err != nil {
		s.T.Fatalf("insert chat %q: %v", identifier, err)
	}
	chatID, _ := res.LastInsertId()
	for _, h := range handles {
		if _, err := s.DB.Exec(`INSERT INTO chat_handle_join (chat_id, handle_id) VALUES (?, ?)`, chatID, h); err != nil {
			s.T.Fatalf("insert chat_handle_join: %v", err)
		}
	}
	return chatID
}

// Msg describes a message row. Zero fields take sensible defaults.
type Msg struct {
	Handle int64 // handle ROWID; 0 for own messages in group chats or system rows
	FromMe bool
	Text   string
	At     time.Time // zero means one minute after the previous auto-timed message
	Chat   int64     // 0 means the handle's 1:1 chat, created on demand
	// RichOnly stores the body only in attributedBody, leaving text NULL.
	RichOnly bool
	// RawText, when set, is stored verbatim in text instead of Text.
	RawText []byte
	Service string
}

// AddMessage inserts m and returns its ROWID.
func (s *Store) AddMessage(m Msg) int64 {
	s.T.Helper()

	at := m.At
	if at.IsZero() {
		s.clock = s.clock.Add(time.Minute)
		at = s.clock
	}
	s.nextGUID++
	guid := fmt.Sprintf("msg-%06d", s.nextGUID)
	fromMe := 0
	if m.FromMe {
		fromMe = 1
	}

	var text any = m.Text
	if m.RawText != nil {
		text = m.RawText
	}
	if m.RichOnly {
		text = nil
	}

	var res sql.Result
	var err error
	if s.legacy {
		res, err = s.DB.Exec(`INSERT INTO message (guid, text, handle_id, date, is_from_me) VALUES (?, ?, ?, ?, ?)`,
			guid, text, m.Handle, int64(at.Sub(appleEpoch)/time.Second), fromMe)
	} else {
		service := m.Service
		if service == "" {
			service = "iMessage"
		}
		var rich any
		if m.Text != "" {
			rich = AttributedBody(m.Text)
		}
		res, err = s.DB.Exec(`INSERT INTO message (guid, text, handle_id, service, date, is_from_me, attributedBody) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			guid, text, m.Handle, service, chatdb.AppleNanos(at), fromMe, rich)
	}
	if err != nil {
		s.T.Fatalf("insert message: %v", err)
	}
	msgID, _ := res.LastInsertId()

	if s.legacy {
		return msgID
	}
	chatID := m.Chat
	if chatID == 0 && m.Handle != 0 {
		chatID = s.directChat(m.Handle)
	}
	if chatID != 0 {
		if _, err := s.DB.Exec(`INSERT INTO chat_message_join (chat_id, message_id, message_date) VALUES (?, ?, ?)`,
			chatID, msgID, chatdb.AppleNanos(at)); err != nil {
			s.T.Fatalf("insert chat_message_join: %v", err)
		}
	}
	return msgID
}

// Send adds an auto-timed message from the owner to handle.
func (s *Store) Send(handle int64, text string) int64 {
	s.T.Helper()
	return s.AddMessage(Msg{Handle: handle, FromMe: true, Text: text})
}

// Receive adds an auto-timed message from handle.
func (s *Store) Receive(handle int64, text string) int64 {
	s.T.Helper()
	return s.AddMessage(Msg{Handle: handle, Text: text})
}

func (s *Store) directChat(handle int64) int64 {
	if id, ok := s.chatForPeer[handle]; ok {
		return id
	}
	var addr string
	if err := s.DB.QueryRow(`SELECT id FROM handle WHERE ROWID = ?`, handle).Scan(&addr); err != nil {
		s.T.Fatalf("lookup handle %d: %v", handle, err)
	}
	id := s.AddChat(addr, handle)
	s.chatForPeer[handle] = id
	return id
}

var appleEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// AttributedBody encodes text the way Messages archives an
// NSAttributedString body, enough for the first-NSString extraction.
func AttributedBody(text string) []byte {
	var b bytes.Buffer
	b.WriteString("\x04\x0bstreamtyped\x81\xe8\x03\x84\x01@\x84\x84\x84\x12NSAttributedString\x00")
	b.WriteString("\x84\x84\x08NSObject\x00\x85\x92\x84\x84\x84\x08NSString\x01\x94\x84\x01+")
	n := len(text)
	switch {
	case n < 0x80:
		b.WriteByte(byte(n))
	case n <= 0xffff:
		b.WriteByte(0x81)
		_ = binary.Write(&b, binary.LittleEndian, uint16(n))
	default:
		b.WriteByte(0x82)
		_ = binary.Write(&b, binary.LittleEndian, uint32(n))
	}
	b.WriteString(text)
	b.WriteString("\x86\x84\x02iI\x01\x00\x92\x84\x84\x84\x0cNSDictionary\x00\x94\x84\x01i\x01\x92\x84\x96\x96\x1d__kIMMessagePartAttributeName\x86")
	return b.Bytes()
}

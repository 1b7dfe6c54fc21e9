package chatdb_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/nalgeon/be"
	"github.com/wesm/imsgstats/internal/apperr"
	"github.com/wesm/imsgstats/internal/chatdb"
	"github.com/wesm/imsgstats/internal/testutil/chatdbtest"
)

func TestOpenMissingFile(t *testing.T) {
	_, err := chatdb.Open(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	be.Err(t, err)
	be.True(t, apperr.Is(err, apperr.NotFound))
}

func TestOpenUnreadableFile(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file modes are not enforced for this user")
	}
	fx := chatdbtest.New(t)
	be.Err(t, os.Chmod(fx.Path, 0), nil)
	t.Cleanup(func() { _ = os.Chmod(fx.Path, 0o600) })

	_, err := chatdb.Open(context.Background(), fx.Path)
	be.Err(t, err)
	be.True(t, apperr.Is(err, apperr.Permission))
	be.True(t, len(apperr.Message(err)) > 0)
}

func TestOpenRejectsNonMessagesDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.db")
	be.Err(t, os.WriteFile(path, nil, 0o600), nil)

	_, err := chatdb.Open(context.Background(), path)
	be.Err(t, err)
	be.True(t, apperr.Is(err, apperr.Internal))
}

func TestOpenLockedStoreFailsImmediately(t *testing.T) {
	fx := chatdbtest.New(t)
	fx.Receive(fx.AddHandle("+15551234567", "iMessage"), "hi")

	ctx := context.Background()
	writer, err := fx.DB.Conn(ctx)
	be.Err(t, err, nil)
	defer writer.Close()
	_, err = writer.ExecContext(ctx, "PRAGMA journal_mode=DELETE")
	be.Err(t, err, nil)
	_, err = writer.ExecContext(ctx, "BEGIN EXCLUSIVE")
	be.Err(t, err, nil)
	defer writer.ExecContext(ctx, "ROLLBACK")

	start := time.Now()
	db, err := chatdb.Open(ctx, fx.Path)
	if err == nil {
		_, err = db.Messages(ctx, chatdb.Filter{})
		db.Close()
	}
	be.Err(t, err)
	be.True(t, apperr.Is(err, apperr.Internal))
	be.True(t, time.Since(start) < time.Second)
}

func TestOpenIsReadOnly(t *testing.T) {
	fx := chatdbtest.New(t)
	h := fx.AddHandle("+15551234567", "iMessage")
	fx.Receive(h, "hi")

	db, err := chatdb.PathProvider{Path: fx.Path}.Open(context.Background())
	be.Err(t, err, nil)
	defer db.Close()

	msgs, err := db.Messages(context.Background(), chatdb.Filter{})
	be.Err(t, err, nil)
	be.Equal(t, len(msgs), 1)
}

func TestMessagesDecodesRows(t *testing.T) {
	fx := chatdbtest.New(t)
	alice := fx.AddHandle("+15551234567", "iMessage")
	bob := fx.AddHandle("bob@example.com", "iMessage")

	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	fx.AddMessage(chatdbtest.Msg{Handle: alice, Text: "hello there", At: at})
	fx.AddMessage(chatdbtest.Msg{Handle: alice, FromMe: true, Text: "hi alice", At: at.Add(time.Minute)})
	fx.AddMessage(chatdbtest.Msg{Handle: bob, Text: "rich only", At: at.Add(2 * time.Minute), RichOnly: true})
	// System row: no handle, not from me.
	fx.AddMessage(chatdbtest.Msg{Text: "Alice named the conversation", At: at.Add(3 * time.Minute)})

	db, err := chatdb.Open(context.Background(), fx.Path)
	be.Err(t, err, nil)
	defer db.Close()

	msgs, err := db.Messages(context.Background(), chatdb.Filter{})
	be.Err(t, err, nil)
	be.Equal(t, len(msgs), 3)

	be.Equal(t, msgs[0].Sender, "+15551234567")
	be.Equal(t, msgs[0].Handle, "+15551234567")
	be.Equal(t, msgs[0].FromMe, false)
	be.Equal(t, msgs[0].Text, "hello there")
	be.True(t, msgs[0].SentAt.Equal(at))
	be.Equal(t, msgs[0].ChatID, "+15551234567")
	be.Equal(t, msgs[0].Service, "iMessage")

	be.Equal(t, msgs[1].Sender, chatdb.SenderMe)
	be.Equal(t, msgs[1].FromMe, true)

	be.Equal(t, msgs[2].Text, "rich only")
	be.Equal(t, msgs[2].Sender, "bob@example.com")
}

func TestMessagesFilter(t *testing.T) {
	fx := chatdbtest.New(t)
	alice := fx.AddHandle("+15551234567", "iMessage")
	bob := fx.AddHandle("+15559876543", "SMS")

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	fx.AddMessage(chatdbtest.Msg{Handle: alice, Text: "Lunch today?", At: base})
	fx.AddMessage(chatdbtest.Msg{Handle: bob, Text: "lunch tomorrow", At: base.Add(24 * time.Hour)})
	fx.AddMessage(chatdbtest.Msg{Handle: alice, FromMe: true, Text: "no LUNCH", At: base.Add(48 * time.Hour)})
	fx.AddMessage(chatdbtest.Msg{Handle: alice, Text: "dinner", At: base.Add(72 * time.Hour)})

	db, err := chatdb.Open(context.Background(), fx.Path)
	be.Err(t, err, nil)
	defer db.Close()
	ctx := context.Background()

	msgs, err := db.Messages(ctx, chatdb.Filter{Text: "lunch"})
	be.Err(t, err, nil)
	be.Equal(t, len(msgs), 3)

	msgs, err = db.Messages(ctx, chatdb.Filter{Text: "lunch", Limit: 2})
	be.Err(t, err, nil)
	be.Equal(t, len(msgs), 2)
	be.Equal(t, msgs[0].Text, "lunch tomorrow")
	be.Equal(t, msgs[1].Text, "no LUNCH")

	msgs, err = db.Messages(ctx, chatdb.Filter{HandleIDs: []int64{alice}})
	be.Err(t, err, nil)
	be.Equal(t, len(msgs), 3)

	msgs, err = db.Messages(ctx, chatdb.Filter{After: base.Add(24 * time.Hour), Before: base.Add(72 * time.Hour)})
	be.Err(t, err, nil)
	be.Equal(t, len(msgs), 2)
	be.Equal(t, msgs[0].Text, "lunch tomorrow")
}

func TestMessagesLegacySchema(t *testing.T) {
	fx := chatdbtest.NewLegacy(t)
	h := fx.AddHandle("friend@example.com", "iMessage")
	at := time.Date(2012, 7, 4, 18, 0, 0, 0, time.UTC)
	fx.AddMessage(chatdbtest.Msg{Handle: h, Text: "old times", At: at})

	db, err := chatdb.Open(context.Background(), fx.Path)
	be.Err(t, err, nil)
	defer db.Close()

	msgs, err := db.Messages(context.Background(), chatdb.Filter{})
	be.Err(t, err, nil)
	be.Equal(t, len(msgs), 1)
	be.True(t, msgs[0].SentAt.Equal(at))
	be.Equal(t, msgs[0].ChatID, "")
	be.Equal(t, msgs[0].Service, "")
}

func TestMessagesRepairsLegacyEncoding(t *testing.T) {
	fx := chatdbtest.New(t)
	h := fx.AddHandle("+15551234567", "SMS")
	fx.AddMessage(chatdbtest.Msg{Handle: h, RawText: []byte("caf\xe9")})

	db, err := chatdb.Open(context.Background(), fx.Path)
	be.Err(t, err, nil)
	defer db.Close()

	msgs, err := db.Messages(context.Background(), chatdb.Filter{})
	be.Err(t, err, nil)
	be.Equal(t, msgs[0].Text, "café")
}

func TestResolveHandle(t *testing.T) {
	fx := chatdbtest.New(t)
	im := fx.AddHandle("+15551234567", "iMessage")
	sms := fx.AddHandle("+15551234567", "SMS")
	fx.AddHandle("Bob@Example.com", "iMessage")

	db, err := chatdb.Open(context.Background(), fx.Path)
	be.Err(t, err, nil)
	defer db.Close()
	ctx := context.Background()

	handles, err := db.ResolveHandle(ctx, "+1 (555) 123-4567")
	be.Err(t, err, nil)
	be.Equal(t, chatdb.RowIDs(handles), []int64{im, sms})

	handles, err = db.ResolveHandle(ctx, "bob@example.com")
	be.Err(t, err, nil)
	be.Equal(t, len(handles), 1)

	handles, err = db.ResolveHandle(ctx, "555")
	be.Err(t, err, nil)
	be.Equal(t, len(handles), 0)
}

func TestNormalizeHandle(t *testing.T) {
	be.Equal(t, chatdb.NormalizeHandle(" +1 (555) 123-4567 "), "+15551234567")
	be.Equal(t, chatdb.NormalizeHandle("555.123.4567"), "5551234567")
	be.Equal(t, chatdb.NormalizeHandle("First.Last@Example.com"), "first.last@example.com")
	be.Equal(t, chatdb.NormalizeHandle(""), "")
}

func TestAppleTime(t *testing.T) {
	want := time.Date(2023, 11, 14, 9, 15, 0, 0, time.UTC)
	nanos := chatdb.AppleNanos(want)
	be.True(t, chatdb.AppleTime(nanos).Equal(want))
	be.True(t, chatdb.AppleTime(nanos/int64(time.Second)).Equal(want))
	be.True(t, chatdb.AppleTime(0).IsZero())
}

package chatdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wesm/imsgstats/internal/apperr"
	"github.com/wesm/imsgstats/internal/textutil"
)

// SenderMe is the sender label for messages written by the store's owner.
const SenderMe = "me"

// Message is one decoded row of the message table.
type Message struct {
	ID      int64
	Handle  string // counterpart handle; "" for own messages outside 1:1 chats
	Sender  string // SenderMe or the handle
	FromMe  bool
	SentAt  time.Time
	Text    string
	ChatID  string
	Service string
}

// Filter narrows a Messages query. The zero value returns every message.
type Filter struct {
	// HandleIDs restricts results to messages attached to these handle rows.
	HandleIDs []int64
	// Text keeps messages whose body contains Text, case-insensitively.
	Text string
	// After and Before bound SentAt: After is inclusive, Before exclusive.
	After  time.Time
	Before time.Time
	// Limit keeps only the most recent Limit matches. 0 means no limit.
	Limit int
}

// Messages returns the messages that match f in chronological order.
//
// Rows with no handle that were not sent by the owner are skipped; they are
// system rows (group renames, member changes) rather than conversation.
// Text and date filters run after decoding because bodies stored only in
// attributedBody are invisible to SQL and date units differ across stores.
func (d *DB) Messages(ctx context.Context, f Filter) ([]Message, error) {
	query, args := d.messagesQuery(f)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isAccessDenied(err) {
			return nil, apperr.Permissionf(err, "cannot read Messages database at %s", d.path)
		}
		return nil, apperr.Internalf(err, "query messages")
	}
	defer rows.Close()

	needle := strings.ToLower(f.Text)
	var msgs []Message
	for rows.Next() {
		var (
			m        Message
			fromMe   int64
			rawDate  int64
			text     []byte
			richText []byte
		)
		if err := rows.Scan(&m.ID, &m.Handle, &fromMe, &rawDate, &text, &richText, &m.Service, &m.ChatID); err != nil {
			return nil, apperr.Internalf(err, "scan message")
		}
		m.FromMe = fromMe != 0
		m.SentAt = AppleTime(rawDate)
		m.Text = decodeBody(text, richText)
		if m.FromMe {
			m.Sender = SenderMe
		} else {
			m.Sender = m.Handle
		}

		if !f.After.IsZero() && m.SentAt.Before(f.After) {
			continue
		}
		if !f.Before.IsZero() && !m.SentAt.Before(f.Before) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(m.Text), needle) {
			continue
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internalf(err, "iterate messages")
	}

	if f.Limit > 0 && len(msgs) > f.Limit {
		msgs = msgs[len(msgs)-f.Limit:]
	}
	return msgs, nil
}

func (d *DB) messagesQuery(f Filter) (string, []any) {
	richText := "NULL"
	if d.hasAttributedBody {
		richText = "m.attributedBody"
	}
	service := "''"
	if d.hasService {
		service = "COALESCE(m.service, '')"
	}

	var b strings.Builder
	if d.hasChatJoin {
		b.WriteString(`
		WITH chat_for_message AS (
			SELECT message_id, MIN(chat_id) AS chat_id
			FROM chat_message_join
			GROUP BY message_id
		)`)
	}
	fmt.Fprintf(&b, `
		SELECT
			m.ROWID,
			COALESCE(h.id, ''),
			COALESCE(m.is_from_me, 0),
			COALESCE(m.date, 0),
			m.text,
			%s,
			%s,
			%s
		FROM message m
		LEFT JOIN handle h ON h.ROWID = m.handle_id`, richText, service, d.chatIDColumn())
	if d.hasChatJoin {
		b.WriteString(`
		LEFT JOIN chat_for_message cfm ON cfm.message_id = m.ROWID
		LEFT JOIN chat c ON c.ROWID = cfm.chat_id`)
	}
	b.WriteString(`
		WHERE (COALESCE(m.is_from_me, 0) = 1 OR h.id IS NOT NULL)`)

	var args []any
	if len(f.HandleIDs) > 0 {
		placeholders := make([]string, len(f.HandleIDs))
		for i, id := range f.HandleIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		fmt.Fprintf(&b, `
		AND m.handle_id IN (%s)`, strings.Join(placeholders, ", "))
	}
	b.WriteString(`
		ORDER BY COALESCE(m.date, 0) ASC, m.ROWID ASC`)
	return b.String(), args
}

func (d *DB) chatIDColumn() string {
	if d.hasChatJoin {
		return "COALESCE(c.chat_identifier, '')"
	}
	return "''"
}

// decodeBody prefers the text column and falls back to attributedBody.
func decodeBody(text, richText []byte) string {
	if len(text) > 0 {
		return textutil.EnsureUTF8(text)
	}
	if len(richText) > 0 {
		if body := textFromAttributedBody(richText); len(body) > 0 {
			return textutil.EnsureUTF8(body)
		}
	}
	return ""
}

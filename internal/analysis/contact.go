package analysis

import (
	"context"
	"math"
	"time"

	"github.com/wesm/imsgstats/internal/apperr"
	"github.com/wesm/imsgstats/internal/chatdb"
)

// Transcript limits.
const (
	DefaultConversationLimit = 100
	MaxConversationLimit     = 1000
)

// ConversationOptions select a window of a conversation. DaysBack and After
// both bound the start; the later of the two wins. Before is exclusive.
type ConversationOptions struct {
	Limit    int
	DaysBack int
	After    time.Time
	Before   time.Time
}

// ConversationAnalysis compares my messages with the contact's.
func (a *Analyzer) ConversationAnalysis(ctx context.Context, contact string) (ConversationAnalysis, error) {
	handle, msgs, err := a.loadContact(ctx, contact, chatdb.Filter{})
	if err != nil {
		return ConversationAnalysis{}, err
	}
	return conversationAnalysis(handle, msgs), nil
}

func conversationAnalysis(contact string, msgs []chatdb.Message) ConversationAnalysis {
	sent, received := split(msgs)
	ca := ConversationAnalysis{
		Contact:            contact,
		Total:              len(msgs),
		Sent:               sent,
		Received:           received,
		SentPercentage:     percent(sent, len(msgs)),
		ReceivedPercentage: percent(received, len(msgs)),
		WhoTalksMore:       whoTalksMore(sent, received),
	}
	if received > 0 {
		ca.Ratio = math.Round(float64(sent)/float64(received)*100) / 100
	}
	ca.AvgMessageLength, _ = textLengths(msgs)
	return ca
}

// split counts messages from me and from the other side.
func split(msgs []chatdb.Message) (sent, received int) {
	for _, m := range msgs {
		if m.FromMe {
			sent++
		} else {
			received++
		}
	}
	return sent, received
}

// ContactStats summarizes the whole history with one contact.
func (a *Analyzer) ContactStats(ctx context.Context, contact string) (ContactStats, error) {
	handle, msgs, err := a.loadContact(ctx, contact, chatdb.Filter{})
	if err != nil {
		return ContactStats{}, err
	}
	return contactStats(handle, msgs), nil
}

// contactStats expects msgs to be non-empty and in chronological order.
func contactStats(contact string, msgs []chatdb.Message) ContactStats {
	sent, received := split(msgs)
	cs := ContactStats{
		Contact:            contact,
		MessageCount:       len(msgs),
		Sent:               sent,
		Received:           received,
		SentPercentage:     percent(sent, len(msgs)),
		ReceivedPercentage: percent(received, len(msgs)),
		FirstMessage:       msgs[0].SentAt,
		LastMessage:        msgs[len(msgs)-1].SentAt,
		WhoTalksMore:       whoTalksMore(sent, received),
	}
	cs.AvgMessageLength, _ = textLengths(msgs)
	return cs
}

// GetConversation returns the most recent messages exchanged with contact,
// oldest first, with bodies verbatim.
func (a *Analyzer) GetConversation(ctx context.Context, contact string, opts ConversationOptions) (Transcript, error) {
	switch {
	case opts.Limit < 0:
		return Transcript{}, apperr.InvalidInputf("limit must be positive")
	case opts.Limit > MaxConversationLimit:
		return Transcript{}, apperr.InvalidInputf("limit cannot exceed %d messages", MaxConversationLimit)
	case opts.DaysBack < 0:
		return Transcript{}, apperr.InvalidInputf("days_back must be positive")
	case opts.Limit == 0:
		opts.Limit = DefaultConversationLimit
	}

	after := opts.After
	if opts.DaysBack > 0 {
		if since := a.now().UTC().AddDate(0, 0, -opts.DaysBack); since.After(after) {
			after = since
		}
	}
	if err := checkRange(after, opts.Before); err != nil {
		return Transcript{}, err
	}

	handle, msgs, err := a.loadContact(ctx, contact, chatdb.Filter{After: after, Before: opts.Before})
	if err != nil {
		return Transcript{}, err
	}
	return transcript(handle, msgs, opts.Limit), nil
}

// transcript shows the last limit messages of msgs. Sent and Received
// cover the whole range, not just the shown window.
func transcript(contact string, msgs []chatdb.Message, limit int) Transcript {
	sent, received := split(msgs)
	shown := lastN(msgs, limit)
	t := Transcript{
		Contact:       contact,
		TotalMessages: len(msgs),
		MessagesShown: len(shown),
		Limited:       len(shown) < len(msgs),
		Sent:          sent,
		Received:      received,
		Messages:      make([]MessageView, len(shown)),
		PrivacyNotice: PrivacyNotice,
	}
	for i, m := range shown {
		t.Messages[i] = viewOf(m)
	}
	if len(shown) > 0 {
		first, last := shown[0].SentAt, shown[len(shown)-1].SentAt
		t.FirstMessage, t.LastMessage = &first, &last
	}
	return t
}

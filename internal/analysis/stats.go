package analysis

import (
	"context"
	"unicode/utf8"

	"github.com/wesm/imsgstats/internal/chatdb"
)

// BasicStats counts every message in the store. The owner's own messages
// are attributed to the sender "me".
func (a *Analyzer) BasicStats(ctx context.Context) (BasicStats, error) {
	msgs, err := a.load(ctx, chatdb.Filter{})
	if err != nil {
		return BasicStats{}, err
	}
	return basicStats(msgs, a.opts.TopSenders), nil
}

func basicStats(msgs []chatdb.Message, topN int) BasicStats {
	senders := newTally()
	for _, m := range msgs {
		senders.add(m.Sender)
	}

	top := senders.top(topN)
	stats := BasicStats{
		TotalMessages: len(msgs),
		UniqueSenders: senders.len(),
		TopSenders:    make([]SenderCount, len(top)),
	}
	for i, r := range top {
		stats.TopSenders[i] = SenderCount{Sender: r.key, Count: r.count}
	}
	stats.AvgMessageLength, stats.LongestMessage = textLengths(msgs)
	return stats
}

// textLengths returns the mean and maximum body length in characters,
// ignoring messages without text (attachments, reactions).
func textLengths(msgs []chatdb.Message) (avg float64, longest int) {
	var total, n int
	for _, m := range msgs {
		if m.Text == "" {
			continue
		}
		l := utf8.RuneCountInString(m.Text)
		total += l
		n++
		longest = max(longest, l)
	}
	if n == 0 {
		return 0, 0
	}
	return round1(float64(total) / float64(n)), longest
}

// WordFrequency tokenizes every message body and returns the topN most
// common words. topN <= 0 returns all of them.
func (a *Analyzer) WordFrequency(ctx context.Context, topN int) (WordFrequency, error) {
	msgs, err := a.load(ctx, chatdb.Filter{})
	if err != nil {
		return WordFrequency{}, err
	}
	return wordFrequency(msgs, a.words, topN), nil
}

func wordFrequency(msgs []chatdb.Message, tok tokenizer, topN int) WordFrequency {
	words := newTally()
	total := 0
	for _, m := range msgs {
		for _, w := range tok.tokens(m.Text) {
			words.add(w)
			total++
		}
	}

	top := words.top(topN)
	wf := WordFrequency{
		TotalWords:  total,
		UniqueWords: words.len(),
		Words:       make([]WordCount, len(top)),
	}
	for i, r := range top {
		wf.Words[i] = WordCount{Word: r.key, Count: r.count}
	}
	return wf
}

// ListContacts returns contact identifiers by message count, both
// directions included. limit <= 0 returns every contact.
func (a *Analyzer) ListContacts(ctx context.Context, limit int) ([]ContactCount, error) {
	msgs, err := a.load(ctx, chatdb.Filter{})
	if err != nil {
		return nil, err
	}
	return contactCounts(msgs, limit), nil
}

func contactCounts(msgs []chatdb.Message, limit int) []ContactCount {
	contacts := newTally()
	for _, m := range msgs {
		if m.Handle != "" {
			contacts.add(m.Handle)
		}
	}
	top := contacts.top(limit)
	out := make([]ContactCount, len(top))
	for i, r := range top {
		out[i] = ContactCount{Contact: r.key, MessageCount: r.count}
	}
	return out
}

// TopConversations analyzes the topN largest conversations, where a
// conversation is every message exchanged with one handle. topN <= 0
// returns all of them.
func (a *Analyzer) TopConversations(ctx context.Context, topN int) (ConversationOverview, error) {
	msgs, err := a.load(ctx, chatdb.Filter{})
	if err != nil {
		return ConversationOverview{}, err
	}
	return conversationOverview(msgs, topN), nil
}

func conversationOverview(msgs []chatdb.Message, topN int) ConversationOverview {
	byHandle := make(map[string][]chatdb.Message)
	sizes := newTally()
	for _, m := range msgs {
		if m.Handle == "" {
			continue
		}
		sizes.add(m.Handle)
		byHandle[m.Handle] = append(byHandle[m.Handle], m)
	}

	top := sizes.top(topN)
	overview := ConversationOverview{
		TotalConversations: sizes.len(),
		Conversations:      make([]ConversationAnalysis, len(top)),
	}
	for i, r := range top {
		overview.Conversations[i] = conversationAnalysis(r.key, byHandle[r.key])
	}
	return overview
}

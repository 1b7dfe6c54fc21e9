package analysis

import (
	"time"

	"github.com/wesm/imsgstats/internal/chatdb"
)

// Values of WhoTalksMore.
const (
	WhoMe    = "me"
	WhoThem  = "them"
	WhoEqual = "equal"
)

// PrivacyNotice is attached to every transcript.
const PrivacyNotice = "This conversation contains private messages. Handle the content with care and do not share it beyond this session."

// SenderCount is the number of messages written by one sender.
type SenderCount struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

// BasicStats summarizes the whole store.
type BasicStats struct {
	TotalMessages    int           `json:"total_messages"`
	UniqueSenders    int           `json:"unique_senders"`
	TopSenders       []SenderCount `json:"top_senders"`
	AvgMessageLength float64       `json:"avg_message_length"`
	LongestMessage   int           `json:"longest_message"`
}

// WordCount is one row of a word-frequency table.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordFrequency is the word-frequency table. TotalWords counts every token
// that survived filtering, not only the ones listed.
type WordFrequency struct {
	TotalWords  int         `json:"total_words"`
	UniqueWords int         `json:"unique_words"`
	Words       []WordCount `json:"words"`
}

// ConversationAnalysis compares how much each side of a conversation writes.
// Sent counts messages from me, Received messages from the contact.
// Ratio is Sent/Received, or 0 when nothing was received.
//
// Counts follow the contact's handle rows. Received therefore includes what
// the contact wrote in group chats, while my own group-chat messages carry
// no handle and are not counted in Sent. Contacts are identified by handle
// (phone number or email), never by address-book display name.
type ConversationAnalysis struct {
	Contact            string  `json:"contact"`
	Total              int     `json:"total_messages"`
	Sent               int     `json:"sent"`
	Received           int     `json:"received"`
	SentPercentage     float64 `json:"sent_percentage"`
	ReceivedPercentage float64 `json:"received_percentage"`
	Ratio              float64 `json:"ratio"`
	AvgMessageLength   float64 `json:"avg_message_length"`
	WhoTalksMore       string  `json:"who_talks_more"`
}

// ConversationOverview ranks conversations by size.
type ConversationOverview struct {
	TotalConversations int                    `json:"total_conversations"`
	Conversations      []ConversationAnalysis `json:"top_conversations"`
}

// ContactCount is a contact identifier as stored, with its message count.
// Identifiers are not resolved to address-book names.
type ContactCount struct {
	Contact      string `json:"contact"`
	MessageCount int    `json:"message_count"`
}

// MessageView is a message as returned by search and transcripts.
type MessageView struct {
	Sender string    `json:"sender"`
	SentAt time.Time `json:"date"`
	Text   string    `json:"text"`
	ChatID string    `json:"chat_id,omitempty"`
}

// SearchResult holds messages containing Query, oldest first.
// TotalMatches counts all matches before the limit was applied.
type SearchResult struct {
	Query        string        `json:"query"`
	TotalMatches int           `json:"total_matches"`
	Messages     []MessageView `json:"messages"`
}

// ContactStats describes the conversation with one contact. Sent and
// Received are counted the same way as in ConversationAnalysis: the
// contact's group-chat messages are Received, my group-chat messages are
// not Sent.
type ContactStats struct {
	Contact            string    `json:"contact"`
	MessageCount       int       `json:"total_messages"`
	Sent               int       `json:"sent"`
	Received           int       `json:"received"`
	SentPercentage     float64   `json:"sent_percentage"`
	ReceivedPercentage float64   `json:"received_percentage"`
	FirstMessage       time.Time `json:"first_message"`
	LastMessage        time.Time `json:"last_message"`
	AvgMessageLength   float64   `json:"average_message_length"`
	WhoTalksMore       string    `json:"who_talks_more"`
}

// Transcript is a window of the conversation with one contact, oldest first.
// Limited reports whether older messages in range were left out.
type Transcript struct {
	Contact       string        `json:"contact"`
	TotalMessages int           `json:"total_messages"`
	MessagesShown int           `json:"messages_shown"`
	Limited       bool          `json:"limited"`
	Sent          int           `json:"sent"`
	Received      int           `json:"received"`
	FirstMessage  *time.Time    `json:"first_message,omitempty"`
	LastMessage   *time.Time    `json:"last_message,omitempty"`
	Messages      []MessageView `json:"messages"`
	PrivacyNotice string        `json:"privacy_notice"`
}

// Report bundles every store-wide statistic.
type Report struct {
	GeneratedAt   time.Time            `json:"generated_at"`
	Basic         BasicStats           `json:"basic_stats"`
	Words         WordFrequency        `json:"word_frequency"`
	Conversations ConversationOverview `json:"conversations"`
}

func viewOf(m chatdb.Message) MessageView {
	return MessageView{
		Sender: m.Sender,
		SentAt: m.SentAt,
		Text:   m.Text,
		ChatID: m.ChatID,
	}
}

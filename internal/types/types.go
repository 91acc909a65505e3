package types

// RawMessage is one scraped channel message as written to the raw JSON files.
type RawMessage struct {
	MessageID int64   `json:"message_id"`
	Text      *string `json:"text"`
	Date      *string `json:"date"`
	Media     bool    `json:"media"`
}

// Record is one row of the record table. Nil pointers mark absent values.
type Record struct {
	ID       int64   `json:"message_id" db:"message_id"`
	Text     *string `json:"text" db:"text"`
	Date     *string `json:"date" db:"date"`
	Channel  *string `json:"channel" db:"channel"`
	HasMedia bool    `json:"has_media" db:"has_media"`
}

// Table is an ordered collection of records sharing one schema.
type Table []Record

// FromRaw converts raw messages of one channel into records.
func FromRaw(channel string, msgs []RawMessage) Table {
	t := make(Table, 0, len(msgs))
	for _, m := range msgs {
		t = append(t, Record{
			ID:       m.MessageID,
			Text:     m.Text,
			Date:     m.Date,
			Channel:  StringPtr(channel),
			HasMedia: m.Media,
		})
	}
	return t
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns the value behind p, or "" when p is nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

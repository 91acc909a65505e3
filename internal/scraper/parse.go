package scraper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibeckermayer/tgharvest/internal/types"
)

// RawDateLayout is how scraped dates are written to the raw files.
const RawDateLayout = "2006-01-02 15:04:05-07:00"

// ParsePage extracts the messages on a rendered preview page, in page order
// (oldest first). Nodes without a usable message id are skipped.
func ParsePage(html string) ([]types.RawMessage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var msgs []types.RawMessage
	doc.Find(MessageWrap).Each(func(_ int, sel *goquery.Selection) {
		id, ok := messageID(sel.AttrOr(PostAttr, ""))
		if !ok {
			return
		}

		msgs = append(msgs, types.RawMessage{
			MessageID: id,
			Text:      messageText(sel),
			Date:      messageDate(sel),
			Media:     sel.Find(MessageMedia).Length() > 0,
		})
	})

	return msgs, nil
}

// messageID reads the numeric id from a "channel/123" data-post value.
func messageID(post string) (int64, bool) {
	idx := strings.LastIndexByte(post, '/')
	if idx < 0 {
		return 0, false
	}

	id, err := strconv.ParseInt(post[idx+1:], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func messageText(sel *goquery.Selection) *string {
	textSel := sel.Find(MessageText).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsFiltered(ReplyBlock).Length() == 0
	}).First()
	if textSel.Length() == 0 {
		return nil
	}

	textSel.Find("br").ReplaceWithHtml("\n")
	text := strings.TrimSpace(textSel.Text())
	return &text
}

func messageDate(sel *goquery.Selection) *string {
	raw, ok := sel.Find(MessageDate).First().Attr(DateAttr)
	if !ok || raw == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Keep the source value; date standardization reports it later.
		return &raw
	}

	out := t.Format(RawDateLayout)
	return &out
}

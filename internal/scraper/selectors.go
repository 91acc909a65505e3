package scraper

// Telegram web preview (t.me/s/<channel>) selectors.
// These are isolated here because the preview markup changes occasionally.
// Update these when scraping breaks.

const (
	// Message container; data-post holds "<channel>/<id>"
	MessageWrap = `.tgme_widget_message[data-post]`
	PostAttr    = "data-post"

	// Message content; ReplyBlock quotes another message's text
	MessageText = `.tgme_widget_message_text`
	ReplyBlock  = `.tgme_widget_message_reply`
	MessageDate = `.tgme_widget_message_date time[datetime]`
	DateAttr    = "datetime"

	// Any of these marks non-text content
	MessageMedia = `.tgme_widget_message_photo_wrap, ` +
		`.tgme_widget_message_video_player, ` +
		`.tgme_widget_message_roundvideo_player, ` +
		`.tgme_widget_message_document_wrap, ` +
		`.tgme_widget_message_voice_player, ` +
		`.tgme_widget_message_sticker_wrap, ` +
		`.tgme_widget_message_poll, ` +
		`.tgme_widget_message_location_wrap`
)

// PreviewBase is the public preview root.
const PreviewBase = "https://t.me/s/"

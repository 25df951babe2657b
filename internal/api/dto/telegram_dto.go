package dto

// TelegramUpdate is the subset of a Bot API update the webhook reads.
type TelegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *TelegramMessage `json:"message,omitempty"`
}

// TelegramMessage is an incoming Bot API message.
type TelegramMessage struct {
	MessageID int64        `json:"message_id"`
	Chat      TelegramChat `json:"chat"`
	Text      string       `json:"text"`
}

// TelegramChat identifies the chat a message came from.
type TelegramChat struct {
	ID int64 `json:"id"`
}

package api

import (
	"captionsync/internal/captions"
)

// Message types on the caption stream.
const (
	MessageTime  = "time"
	MessageEnded = "ended"
	MessageShow  = "show"
	MessageHide  = "hide"
	MessageError = "error"
)

// ClientMessage is sent by the player.
type ClientMessage struct {
	Type string  `json:"type"`
	Time float64 `json:"time"`
}

// ShowMessage tells the player to display a caption.
type ShowMessage struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Speaker int    `json:"speaker"`
	Text    string `json:"text"`
	Color   string `json:"color"`
}

// StatusMessage carries hide and error notifications.
type StatusMessage struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
}

func showMessage(e captions.Event) ShowMessage {
	return ShowMessage{
		Type:    MessageShow,
		Index:   e.Index,
		Speaker: e.Speaker,
		Text:    e.Text,
		Color:   e.Color,
	}
}

// ErrorResponse is the body of non-2xx JSON responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

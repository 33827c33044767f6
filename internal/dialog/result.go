package dialog

import "github.com/ksred/gmedchain-web/internal/gmedchain"

// ResultDialog shows the outcome of a command. It is purely presentational.
type ResultDialog struct {
	message gmedchain.Message
}

func NewResultDialog(msg gmedchain.Message) *ResultDialog {
	return &ResultDialog{message: msg}
}

func (r *ResultDialog) Message() gmedchain.Message {
	return r.message
}

// Text is the message body shown to the user
func (r *ResultDialog) Text() string {
	return r.message.Data
}

// Dismiss closes the dialog. Nothing happens on close.
func (r *ResultDialog) Dismiss() {}

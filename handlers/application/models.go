package application

import "strings"

// TransitionRequest is the optional body of accept and reject.
type TransitionRequest struct {
	ResponseMessage string `json:"response_message"`
}

func (t TransitionRequest) message() *string {
	msg := strings.TrimSpace(t.ResponseMessage)
	if msg == "" {
		return nil
	}
	return &msg
}

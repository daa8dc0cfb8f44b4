// Package message defines the CDP envelopes exchanged with the client.
//
// Inbound traffic is a Command. Outbound traffic is either a Response, which
// echoes its command and carries exactly one of result or error, or an Event,
// which is unsolicited and has no id.
package message

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates outbound envelopes.
type Kind string

const (
	// KindResponse is the reply to a command.
	KindResponse Kind = "response"
	// KindEvent is an unsolicited notification.
	KindEvent Kind = "event"
)

// Message is any outbound envelope.
// Use type assertion or type switch to determine the concrete type.
type Message interface {
	MessageKind() Kind
}

// Compile-time verification that all envelope types implement Message.
var (
	_ Message = (*Response)(nil)
	_ Message = (*Event)(nil)
)

// emptyResult is the result of a command whose host reply carried no value.
var emptyResult = json.RawMessage(`{}`)

// NullResult is the literal result of commands that return nothing.
var NullResult = json.RawMessage(`null`)

// Command is a request received from the CDP client.
//
// Wire format:
//
//	{"id": 2, "method": "Page.navigate", "params": {"url": "..."}, "sessionId": "A1"}
type Command struct {
	ID        int64           `json:"id"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// ResponseError is the error member of a failed response.
type ResponseError struct {
	Message string `json:"message,omitempty"`
}

// Response is the reply to a Command.
//
// Wire format for success:
//
//	{"id": 2, "method": "Page.navigate", "params": {...}, "result": {"frameId": "F1"}}
//
// Wire format for error:
//
//	{"id": 2, "method": "Page.navigate", "params": {...}, "error": {"message": "No tab with given id"}}
type Response struct {
	ID        int64           `json:"id"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ResponseError  `json:"error,omitempty"`
}

// MessageKind implements Message.
func (r *Response) MessageKind() Kind { return KindResponse }

// IsError reports whether the response carries an error.
func (r *Response) IsError() bool {
	return r.Error != nil
}

// Success builds the response to cmd with the given result.
// An empty result becomes {} so that the response always carries a result.
func Success(cmd *Command, result json.RawMessage) *Response {
	if len(result) == 0 {
		result = emptyResult
	}

	return &Response{
		ID:        cmd.ID,
		Method:    cmd.Method,
		Params:    cmd.Params,
		SessionID: cmd.SessionID,
		Result:    result,
	}
}

// Failure builds the error response to cmd. An empty message is omitted.
func Failure(cmd *Command, errMsg string) *Response {
	return &Response{
		ID:        cmd.ID,
		Method:    cmd.Method,
		Params:    cmd.Params,
		SessionID: cmd.SessionID,
		Error:     &ResponseError{Message: errMsg},
	}
}

// Event is an unsolicited notification.
//
// Events relayed from the attached page carry the session id. The synthetic
// Target events (targetCreated, attachedToTarget, detachedFromTarget) belong
// to the browser-level session, so SessionID stays empty and the session id
// travels in their params instead. A CDP client routes a stamped event to
// the page session, which does not exist yet when attachedToTarget arrives.
//
// Wire format:
//
//	{"method": "Page.loadEventFired", "params": {"timestamp": 1.5}, "sessionId": "A1"}
type Event struct {
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// MessageKind implements Message.
func (e *Event) MessageKind() Kind { return KindEvent }

// NewEvent builds an event, marshaling params.
func NewEvent(method string, params any, sessionID string) (*Event, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}

	return &Event{Method: method, Params: data, SessionID: sessionID}, nil
}

// Encode serializes an outbound envelope.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.MessageKind(), err)
	}

	return data, nil
}

package message

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/cdpshim/internal/errors"
)

// commandSchema describes the shape of a command envelope.
var commandSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"id", "method"},
	Properties: map[string]*jsonschema.Schema{
		"id":        {Type: "integer"},
		"method":    {Type: "string", MinLength: jsonschema.Ptr(1)},
		"params":    {Type: "object"},
		"sessionId": {Type: "string"},
	},
}

// resolvedCommandSchema resolves commandSchema once.
var resolvedCommandSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	return commandSchema.Resolve(nil)
})

// ParseCommand decodes and validates a serialized command envelope.
//
// Returns a MalformedCommandError if the data is not JSON or does not have the
// shape of a command.
func ParseCommand(log *slog.Logger, data []byte) (*Command, error) {
	log = log.With("component", "message_parser")

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Debug("Command is not a JSON object", "error", err)

		return nil, &errors.MalformedCommandError{RawData: string(data), Err: err}
	}

	resolved, err := resolvedCommandSchema()
	if err != nil {
		return nil, fmt.Errorf("resolve command schema: %w", err)
	}

	if err := resolved.Validate(raw); err != nil {
		log.Debug("Command failed validation", "error", err)

		return nil, &errors.MalformedCommandError{RawData: string(data), Err: err}
	}

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, &errors.MalformedCommandError{RawData: string(data), Err: err}
	}

	log.Debug("Parsed command", "id", cmd.ID, "method", cmd.Method)

	return &cmd, nil
}

// Parse decodes a serialized outbound envelope into a Response or an Event.
// Envelopes carrying an id are responses.
func Parse(data []byte) (Message, error) {
	var probe struct {
		ID *int64 `json:"id"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}

	if probe.ID != nil {
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("parse response: %w", err)
		}

		return &resp, nil
	}

	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}

	return &evt, nil
}

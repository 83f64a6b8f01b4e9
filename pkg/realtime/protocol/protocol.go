// Package protocol defines the JSON control protocol spoken with the
// realtime AI peer over the session data channel.
//
// Outbound frames are client messages (session.update, conversation
// item creation, response control). Inbound frames are decoded into a
// tagged union of ServerEvent values; unknown frame types are preserved
// raw so callers can log them without failing the session.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Client message types.
const (
	TypeSessionUpdate  = "session.update"
	TypeItemCreate     = "conversation.item.create"
	TypeResponseCreate = "response.create"
	TypeResponseCancel = "response.cancel"
)

// TurnDetection configures the peer's server-side voice activity
// detection for user turn boundaries.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMS int     `json:"silence_duration_ms,omitempty"`
	CreateResponse    bool    `json:"create_response,omitempty"`
	InterruptResponse bool    `json:"interrupt_response,omitempty"`
}

// TranscriptionConfig selects the transcription model and language for
// one direction of the audio stream.
type TranscriptionConfig struct {
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

// Tool declares a function the peer may invoke.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// SessionPatch carries the mutable session settings sent with a
// session.update message. Empty fields are left unchanged by the peer.
type SessionPatch struct {
	Instructions            string               `json:"instructions,omitempty"`
	Voice                   string               `json:"voice,omitempty"`
	Modalities              []string             `json:"modalities,omitempty"`
	Temperature             float64              `json:"temperature,omitempty"`
	TurnDetection           *TurnDetection       `json:"turn_detection,omitempty"`
	InputAudioTranscription *TranscriptionConfig `json:"input_audio_transcription,omitempty"`
	OutputAudioFormat       string               `json:"output_audio_format,omitempty"`
	Tools                   []Tool               `json:"tools,omitempty"`
	ToolChoice              string               `json:"tool_choice,omitempty"`
}

// SessionUpdate is the outbound session.update control message.
type SessionUpdate struct {
	Type    string       `json:"type"`
	Session SessionPatch `json:"session"`
}

// NewSessionUpdate wraps a patch in a typed session.update frame.
func NewSessionUpdate(patch SessionPatch) SessionUpdate {
	return SessionUpdate{Type: TypeSessionUpdate, Session: patch}
}

// ContentPart is one part of a conversation item's content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Item is a conversation item injected into the shared dialogue
// history: either a message attributed to a role, or the output of a
// function call the peer previously requested.
type Item struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

// ItemCreate is the outbound conversation.item.create message.
type ItemCreate struct {
	Type string `json:"type"`
	Item Item   `json:"item"`
}

// NewUserMessage builds an item carrying user-attributed text.
func NewUserMessage(text string) ItemCreate {
	return ItemCreate{
		Type: TypeItemCreate,
		Item: Item{
			Type:    "message",
			Role:    "user",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}

// NewSystemMessage builds an item carrying a system-level instruction.
func NewSystemMessage(text string) ItemCreate {
	return ItemCreate{
		Type: TypeItemCreate,
		Item: Item{
			Type:    "message",
			Role:    "system",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}

// NewFunctionOutput builds the reply item for a structured tool
// invocation from the peer.
func NewFunctionOutput(callID string, output any) (ItemCreate, error) {
	payload, err := json.Marshal(output)
	if err != nil {
		return ItemCreate{}, fmt.Errorf("marshal function output: %w", err)
	}
	return ItemCreate{
		Type: TypeItemCreate,
		Item: Item{
			Type:   "function_call_output",
			CallID: callID,
			Output: string(payload),
		},
	}, nil
}

// ResponseSpec customizes a single requested response turn.
type ResponseSpec struct {
	Modalities   []string `json:"modalities,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

// ResponseCreate asks the peer to generate a new turn.
type ResponseCreate struct {
	Type     string        `json:"type"`
	Response *ResponseSpec `json:"response,omitempty"`
}

// NewResponseCreate builds a response request. Instructions override
// the session prompt for this one turn; empty instructions request a
// default response.
func NewResponseCreate(instructions string) ResponseCreate {
	msg := ResponseCreate{Type: TypeResponseCreate}
	if instructions != "" {
		msg.Response = &ResponseSpec{
			Modalities:   []string{"text", "audio"},
			Instructions: instructions,
		}
	}
	return msg
}

// NewResponseCancel asks the peer to abort its in-progress turn.
func NewResponseCancel() ResponseCancel {
	return ResponseCancel{Type: TypeResponseCancel}
}

// ResponseCancel asks the peer to abort its in-progress turn.
type ResponseCancel struct {
	Type string `json:"type"`
}

// ServerEvent is the tagged union of inbound peer events.
type ServerEvent interface {
	serverEventType() string
}

// SessionCreatedEvent acknowledges session establishment.
type SessionCreatedEvent struct {
	Session json.RawMessage
}

func (e SessionCreatedEvent) serverEventType() string { return "session.created" }

// SessionUpdatedEvent acknowledges a session.update.
type SessionUpdatedEvent struct{}

func (e SessionUpdatedEvent) serverEventType() string { return "session.updated" }

// ResponseCreatedEvent marks the start of a new peer response.
type ResponseCreatedEvent struct {
	ResponseID string
}

func (e ResponseCreatedEvent) serverEventType() string { return "response.created" }

// Usage is the peer's wholesale token usage report for one response.
type Usage struct {
	TotalTokens       int
	InputTokens       int
	OutputTokens      int
	InputAudioTokens  int
	OutputAudioTokens int
}

// ResponseDoneEvent marks completion of a peer response. Transcript is
// the final audio transcript recovered from the response output when
// the peer streamed no text deltas; it is empty otherwise.
type ResponseDoneEvent struct {
	ResponseID string
	Transcript string
	Usage      *Usage
}

func (e ResponseDoneEvent) serverEventType() string { return "response.done" }

// TextDeltaEvent carries an incremental piece of the peer's text output.
type TextDeltaEvent struct {
	Delta string
}

func (e TextDeltaEvent) serverEventType() string { return "response.text.delta" }

// AudioTranscriptDeltaEvent carries an incremental piece of the
// transcript of the peer's audio output.
type AudioTranscriptDeltaEvent struct {
	Delta string
}

func (e AudioTranscriptDeltaEvent) serverEventType() string { return "response.audio_transcript.delta" }

// OutputItemAddedEvent surfaces text content attached to a response
// output item. Some peer versions deliver text here rather than as
// deltas.
type OutputItemAddedEvent struct {
	Text string
}

func (e OutputItemAddedEvent) serverEventType() string { return "response.output_item.added" }

// FunctionCallDoneEvent is a completed structured tool invocation from
// the peer. Arguments is the raw JSON argument payload.
type FunctionCallDoneEvent struct {
	Name      string
	CallID    string
	Arguments string
}

func (e FunctionCallDoneEvent) serverEventType() string { return "response.function_call_done" }

// SpeechStartedEvent marks the onset of user speech.
type SpeechStartedEvent struct {
	AudioStartMS int64
}

func (e SpeechStartedEvent) serverEventType() string { return "input_audio_buffer.speech_started" }

// SpeechStoppedEvent marks the end of user speech.
type SpeechStoppedEvent struct {
	AudioEndMS int64
}

func (e SpeechStoppedEvent) serverEventType() string { return "input_audio_buffer.speech_stopped" }

// TranscriptionCompletedEvent delivers the finalized transcript of a
// user utterance.
type TranscriptionCompletedEvent struct {
	Transcript string
}

func (e TranscriptionCompletedEvent) serverEventType() string {
	return "conversation.item.input_audio_transcription.completed"
}

// ErrorEvent is a peer-reported error.
type ErrorEvent struct {
	Code    string
	Message string
}

func (e ErrorEvent) serverEventType() string { return "error" }

// UnknownEvent preserves a frame type the decoder does not recognize.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) serverEventType() string { return e.Type }

// wire shapes used only during decoding.

type responseDoneFrame struct {
	Response struct {
		ID     string `json:"id"`
		Output []struct {
			Content []struct {
				Type       string `json:"type"`
				Transcript string `json:"transcript"`
			} `json:"content"`
		} `json:"output"`
		Usage *struct {
			TotalTokens       int `json:"total_tokens"`
			InputTokens       int `json:"input_tokens"`
			OutputTokens      int `json:"output_tokens"`
			InputTokenDetails struct {
				AudioTokens int `json:"audio_tokens"`
			} `json:"input_token_details"`
			OutputTokenDetails struct {
				AudioTokens int `json:"audio_tokens"`
			} `json:"output_token_details"`
		} `json:"usage"`
	} `json:"response"`
}

type outputItemAddedFrame struct {
	Item struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"item"`
}

// Decode parses one inbound frame into a ServerEvent. A malformed
// envelope is an error; an unrecognized type is not.
func Decode(data []byte) (ServerEvent, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode frame envelope: %w", err)
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, fmt.Errorf("frame missing type")
	}

	switch typ {
	case "session.created":
		var frame struct {
			Session json.RawMessage `json:"session"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode session.created: %w", err)
		}
		return SessionCreatedEvent{Session: frame.Session}, nil

	case "session.updated":
		return SessionUpdatedEvent{}, nil

	case "response.created":
		var frame struct {
			Response struct {
				ID string `json:"id"`
			} `json:"response"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode response.created: %w", err)
		}
		return ResponseCreatedEvent{ResponseID: frame.Response.ID}, nil

	case "response.done":
		var frame responseDoneFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode response.done: %w", err)
		}
		event := ResponseDoneEvent{ResponseID: frame.Response.ID}
		for _, item := range frame.Response.Output {
			for _, part := range item.Content {
				if part.Type == "audio" && part.Transcript != "" {
					event.Transcript = part.Transcript
					break
				}
			}
			if event.Transcript != "" {
				break
			}
		}
		if u := frame.Response.Usage; u != nil {
			event.Usage = &Usage{
				TotalTokens:       u.TotalTokens,
				InputTokens:       u.InputTokens,
				OutputTokens:      u.OutputTokens,
				InputAudioTokens:  u.InputTokenDetails.AudioTokens,
				OutputAudioTokens: u.OutputTokenDetails.AudioTokens,
			}
		}
		return event, nil

	case "response.text.delta", "response.output_text.delta":
		var frame struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode text delta: %w", err)
		}
		return TextDeltaEvent{Delta: frame.Delta}, nil

	case "response.audio_transcript.delta":
		var frame struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode audio transcript delta: %w", err)
		}
		return AudioTranscriptDeltaEvent{Delta: frame.Delta}, nil

	case "response.output_item.added":
		var frame outputItemAddedFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode response.output_item.added: %w", err)
		}
		event := OutputItemAddedEvent{}
		if frame.Item.Type == "message" {
			for _, part := range frame.Item.Content {
				if part.Type == "text" && part.Text != "" {
					event.Text = part.Text
					break
				}
			}
		}
		return event, nil

	case "response.function_call_done":
		var frame struct {
			Name      string `json:"name"`
			CallID    string `json:"call_id"`
			Arguments string `json:"arguments"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode function call: %w", err)
		}
		return FunctionCallDoneEvent{
			Name:      frame.Name,
			CallID:    frame.CallID,
			Arguments: frame.Arguments,
		}, nil

	case "input_audio_buffer.speech_started":
		var frame struct {
			AudioStartMS int64 `json:"audio_start_ms"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode speech_started: %w", err)
		}
		return SpeechStartedEvent{AudioStartMS: frame.AudioStartMS}, nil

	case "input_audio_buffer.speech_stopped":
		var frame struct {
			AudioEndMS int64 `json:"audio_end_ms"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode speech_stopped: %w", err)
		}
		return SpeechStoppedEvent{AudioEndMS: frame.AudioEndMS}, nil

	case "conversation.item.input_audio_transcription.completed":
		var frame struct {
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode transcription: %w", err)
		}
		return TranscriptionCompletedEvent{Transcript: frame.Transcript}, nil

	case "error":
		var frame struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode error frame: %w", err)
		}
		return ErrorEvent{Code: frame.Error.Code, Message: frame.Error.Message}, nil

	default:
		return UnknownEvent{
			Type: typ,
			Raw:  append(json.RawMessage(nil), data...),
		}, nil
	}
}

// EventType returns the wire type string for an event.
func EventType(e ServerEvent) string {
	if e == nil {
		return ""
	}
	return e.serverEventType()
}

// GuessResultArgs is the argument payload of the taboo_guess_result
// tool invocation.
type GuessResultArgs struct {
	GuessedWord string  `json:"guessed_word"`
	IsCorrect   bool    `json:"is_correct"`
	Confidence  float64 `json:"confidence"`
	Action      string  `json:"action"`
}

// ParseGuessResult decodes the taboo_guess_result argument payload.
func ParseGuessResult(arguments string) (GuessResultArgs, error) {
	var args GuessResultArgs
	if arguments == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return GuessResultArgs{}, fmt.Errorf("parse guess result args: %w", err)
	}
	return args, nil
}

package redis

import (
	"errors"
	"testing"

	"blog-chat/internal/models"

	"github.com/goccy/go-json"
)

type sinkRecorder struct {
	envs []models.Envelope
	err  error
}

func (s *sinkRecorder) Emit(env models.Envelope) error {
	s.envs = append(s.envs, env)
	return s.err
}

func TestForward(t *testing.T) {
	env := models.Envelope{
		Event:  models.EventNewPrivateMessage,
		Target: "sock-b",
		Except: "sock-a",
		Data:   json.RawMessage(`{"text":"hi"}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	sink := &sinkRecorder{}
	forward(sink, payload)

	if len(sink.envs) != 1 {
		t.Fatalf("forwarded %d envelopes, want 1", len(sink.envs))
	}
	got := sink.envs[0]
	if got.Event != env.Event || got.Target != env.Target || got.Except != env.Except {
		t.Errorf("forwarded %+v, want %+v", got, env)
	}
	if string(got.Data) != `{"text":"hi"}` {
		t.Errorf("data = %s", got.Data)
	}
}

func TestForward_SkipsBadPayloads(t *testing.T) {
	for _, payload := range []string{"not json", `{"target":"x"}`} {
		sink := &sinkRecorder{}
		forward(sink, []byte(payload))
		if len(sink.envs) != 0 {
			t.Errorf("forward(%q) delivered %d envelopes, want 0", payload, len(sink.envs))
		}
	}
}

func TestForward_SinkErrorIsSwallowed(t *testing.T) {
	sink := &sinkRecorder{err: errors.New("closed")}
	forward(sink, []byte(`{"event":"newMessage","data":{}}`))
	if len(sink.envs) != 1 {
		t.Errorf("sink called %d times, want 1", len(sink.envs))
	}
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"decodo-usage-bot/pkg/chart"
	"decodo-usage-bot/pkg/decodo"
	"decodo-usage-bot/pkg/models"
	"decodo-usage-bot/pkg/usage"

	"go.uber.org/zap"
)

type sentMessage struct {
	kind     string // text / photo / document
	chatID   int64
	text     string
	filename string
	keyboard bool
}

type fakeSender struct {
	mu       sync.Mutex
	messages []sentMessage
	actions  []string
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string, keyboard bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{kind: "text", chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (f *fakeSender) SendPhoto(_ context.Context, chatID int64, _ []byte, filename, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{kind: "photo", chatID: chatID, text: caption, filename: filename})
	return nil
}

func (f *fakeSender) SendDocument(_ context.Context, chatID int64, _ []byte, filename, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{kind: "document", chatID: chatID, text: caption, filename: filename})
	return nil
}

func (f *fakeSender) SendAction(_ context.Context, _ int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	if len(f.messages) == 0 {
		t.Fatal("no message sent")
	}
	return f.messages[len(f.messages)-1]
}

type fakeSource struct {
	queries int
	result  *usage.Result
	err     error
	panic   bool
}

func (f *fakeSource) Query(context.Context) (*usage.Result, error) {
	f.queries++
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeSource) Text(r *usage.Result) string {
	return "usage text " + r.ProxyType()
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) RenderPNG([]models.TrafficRecord, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("\x89PNG"), nil
}

func (f *fakeRenderer) RenderHTML([]models.TrafficRecord, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("<html></html>"), nil
}

func sampleResult() *usage.Result {
	window := models.UsageWindow{
		Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}
	limit := 5.0
	return &usage.Result{
		Window: window,
		Usage: &decodo.Usage{
			ProxyType:  models.ProxyTypeMobile,
			Records:    []models.TrafficRecord{{Date: window.Start, Bytes: models.BytesPerGB}, {Date: window.Start.AddDate(0, 0, 1)}},
			TotalBytes: models.BytesPerGB,
		},
		Summary: usage.Summarize(models.BytesPerGB, &limit),
		Now:     window.End,
	}
}

func newTestDispatcher(allowed ...int64) (*Dispatcher, *fakeSender, *fakeSource, *fakeRenderer) {
	cfg := &models.Config{AllowedChatIDs: map[int64]bool{}}
	for _, id := range allowed {
		cfg.AllowedChatIDs[id] = true
	}
	sender := &fakeSender{}
	source := &fakeSource{result: sampleResult()}
	renderer := &fakeRenderer{}
	return NewDispatcher(cfg, source, renderer, sender, zap.NewNop()), sender, source, renderer
}

func TestRoute(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"/start", CommandStart},
		{"/usage", CommandUsage},
		{"/USAGE", CommandUsage},
		{"/usage@decodo_bot", CommandUsage},
		{"/chart", CommandChart},
		{"/charthtml", CommandChartHTML},
		{"/help", CommandHelp},
		{"/unknown", CommandHelp},
		{"Usage", CommandUsage},
		{"  daily chart ", CommandChart},
		{"Stats image", CommandChart},
		{"hello there", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Route(tt.text); got != tt.want {
			t.Errorf("Route(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestHandleUnauthorized(t *testing.T) {
	d, sender, source, _ := newTestDispatcher(100)

	d.Handle(context.Background(), 999, "/usage")

	if source.queries != 0 {
		t.Errorf("queries = %d, want 0 for unauthorized chat", source.queries)
	}
	msg := sender.last(t)
	if msg.text != TextNotAuthorized || msg.chatID != 999 {
		t.Errorf("reply = %+v, want %q", msg, TextNotAuthorized)
	}
}

func TestHandleUsage(t *testing.T) {
	d, sender, source, _ := newTestDispatcher(100)

	d.Handle(context.Background(), 100, "/usage")

	if source.queries != 1 {
		t.Errorf("queries = %d, want 1", source.queries)
	}
	msg := sender.last(t)
	if msg.text != "usage text mobile_proxies" || !msg.keyboard {
		t.Errorf("reply = %+v", msg)
	}
	if len(sender.actions) != 1 || sender.actions[0] != ActionTyping {
		t.Errorf("actions = %v, want [typing]", sender.actions)
	}
}

func TestHandleEmptyAllowListAllowsEveryone(t *testing.T) {
	d, sender, source, _ := newTestDispatcher()

	d.Handle(context.Background(), 12345, "Usage")

	if source.queries != 1 {
		t.Errorf("queries = %d, want 1", source.queries)
	}
	if sender.last(t).text == TextNotAuthorized {
		t.Error("empty allow-list should allow every chat")
	}
}

func TestHandleIgnoresFreeText(t *testing.T) {
	d, sender, source, _ := newTestDispatcher()

	d.Handle(context.Background(), 1, "what is my usage?")

	if len(sender.messages) != 0 || source.queries != 0 {
		t.Errorf("free text should be ignored, sent %d messages and %d queries", len(sender.messages), source.queries)
	}
}

func TestHandleStartAndHelp(t *testing.T) {
	d, sender, source, _ := newTestDispatcher()

	d.Handle(context.Background(), 1, "/start")
	if msg := sender.last(t); msg.text != TextGreeting || !msg.keyboard {
		t.Errorf("start reply = %+v", msg)
	}

	d.Handle(context.Background(), 1, "/whatever")
	if msg := sender.last(t); msg.text != TextHelp {
		t.Errorf("unknown command reply = %q, want help", msg.text)
	}
	if source.queries != 0 {
		t.Errorf("queries = %d, want 0", source.queries)
	}
}

func TestHandleChart(t *testing.T) {
	d, sender, _, _ := newTestDispatcher()

	d.Handle(context.Background(), 1, "/chart")

	msg := sender.last(t)
	if msg.kind != "photo" || msg.filename != "daily_usage.png" {
		t.Fatalf("reply = %+v, want photo daily_usage.png", msg)
	}
	if !strings.Contains(msg.text, "Used: 1.00 GB of 5.00 GB") {
		t.Errorf("caption = %q", msg.text)
	}
	if sender.actions[0] != ActionUploadPhoto {
		t.Errorf("actions = %v", sender.actions)
	}
}

func TestHandleChartHTML(t *testing.T) {
	d, sender, _, _ := newTestDispatcher()

	d.Handle(context.Background(), 1, "/charthtml")

	msg := sender.last(t)
	if msg.kind != "document" || msg.filename != "daily_usage.html" {
		t.Fatalf("reply = %+v, want document daily_usage.html", msg)
	}
}

func TestHandleChartNoDataFallsBackToText(t *testing.T) {
	d, sender, _, renderer := newTestDispatcher()
	renderer.err = chart.ErrNoData

	d.Handle(context.Background(), 1, "daily usage")

	msg := sender.last(t)
	if msg.kind != "text" || msg.text != "usage text mobile_proxies" {
		t.Errorf("reply = %+v, want text summary", msg)
	}
}

func TestHandleFetchError(t *testing.T) {
	d, sender, source, _ := newTestDispatcher()
	source.err = fmt.Errorf("查询用量失败: %w", &decodo.FetchError{
		Attempted: []string{"mobile_proxies", "default"},
		Last:      &decodo.StatusError{StatusCode: 401, Body: "unauthorized"},
	})

	d.Handle(context.Background(), 1, "/usage")

	if got := sender.last(t).text; got != "Error fetching usage: HTTP 401" {
		t.Errorf("reply = %q", got)
	}
}

func TestHandleRecoversPanic(t *testing.T) {
	d, sender, source, _ := newTestDispatcher()
	source.panic = true

	d.Handle(context.Background(), 1, "/usage")

	if got := sender.last(t).text; got != "Internal error." {
		t.Errorf("reply = %q, want Internal error.", got)
	}
}

func TestErrorReply(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "status error",
			err:  &decodo.StatusError{StatusCode: 500},
			want: "Error: HTTP 500",
		},
		{
			name: "no records",
			err:  &decodo.FetchError{Attempted: []string{"a"}, Last: decodo.ErrNoRecords},
			want: "Error: no usage data returned",
		},
		{
			name: "network failures",
			err:  &decodo.FetchError{Attempted: []string{"a", "b", "c"}, Last: errors.New("dial tcp: refused")},
			want: "Error: all 3 service types failed",
		},
		{
			name: "timeout",
			err:  fmt.Errorf("wrapped: %w", context.DeadlineExceeded),
			want: "Error: request timed out",
		},
		{
			name: "other",
			err:  errors.New("boom"),
			want: "Error: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorReply("Error", tt.err); got != tt.want {
				t.Errorf("ErrorReply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMainKeyboard(t *testing.T) {
	kb := MainKeyboard()
	if len(kb.Keyboard) != 1 || len(kb.Keyboard[0]) != 2 {
		t.Fatalf("keyboard layout = %+v", kb.Keyboard)
	}
	if kb.Keyboard[0][0].Text != ButtonUsage || kb.Keyboard[0][1].Text != ButtonChart {
		t.Errorf("buttons = %q, %q", kb.Keyboard[0][0].Text, kb.Keyboard[0][1].Text)
	}
	if !kb.ResizeKeyboard {
		t.Error("keyboard should resize")
	}
}

// Package voice interprets spoken or typed utterances: spend commands are
// logged as receipts, everything else gets a canned reply.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/inference"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/money"
	"github.com/google/uuid"
)

// ErrNoRecorder is returned by New when no store is given.
var ErrNoRecorder = errors.New("voice assistant requires a receipt store")

// Recorder is the store side the assistant logs spends into.
type Recorder interface {
	Add(ctx context.Context, payload model.NewReceipt) (model.Receipt, error)
}

// Reply is the outcome of one utterance. Handled is false for blank input.
// Receipt is set when the utterance logged a spend.
type Reply struct {
	Text    string
	Handled bool
	Receipt *model.Receipt
}

// Assistant keeps the conversation log and turns utterances into replies.
type Assistant struct {
	store      Recorder
	speaker    Speaker
	recognizer Recognizer
	now        func() time.Time
	currency   string

	mu       sync.Mutex
	messages []model.Message

	speakMu     sync.Mutex
	stopSpeech  context.CancelFunc
	speechGroup sync.WaitGroup
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithSpeaker sets where replies are spoken.
func WithSpeaker(s Speaker) Option {
	return func(a *Assistant) { a.speaker = s }
}

// WithRecognizer sets the speech source used by Listen.
func WithRecognizer(r Recognizer) Option {
	return func(a *Assistant) { a.recognizer = r }
}

// WithClock sets the time source for receipt dates.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) {
		if now != nil {
			a.now = now
		}
	}
}

// WithCurrency sets the currency code for logged spends.
func WithCurrency(code string) Option {
	return func(a *Assistant) {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			a.currency = code
		}
	}
}

// New creates an assistant whose conversation opens with the greeting.
func New(store Recorder, opts ...Option) (*Assistant, error) {
	if store == nil {
		return nil, ErrNoRecorder
	}
	a := &Assistant{
		store:    store,
		now:      time.Now,
		currency: money.DefaultCurrency,
		messages: []model.Message{{ID: "assistant-hello", Role: model.RoleAssistant, Content: Greeting}},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Process handles one utterance.
func (a *Assistant) Process(ctx context.Context, utterance string) (Reply, error) {
	if strings.TrimSpace(utterance) == "" {
		return Reply{}, nil
	}
	a.append(model.RoleUser, utterance)

	if !IsSpendCommand(utterance) {
		reply := Reply{Text: CannedReply(utterance), Handled: true}
		a.respond(reply.Text)
		return reply, nil
	}

	amount := ParseAmount(utterance)
	category := inference.CategoryOf(utterance)
	formatted := money.Format(amount, a.currency)

	receipt, err := a.store.Add(ctx, model.NewReceipt{
		Date:     a.now().UTC().Format(model.DateLayout),
		Merchant: Merchant,
		Category: category,
		Method:   Method,
		Currency: a.currency,
		Notes:    Notes,
		Source:   model.SourceVoice,
		Summary:  fmt.Sprintf("Logged %s under %s via voice command.", formatted, category),
		Amount:   amount,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("log voice spend: %w", err)
	}
	slog.Info("Logged voice spend", "id", receipt.ID, "amount", receipt.Amount, "category", receipt.Category)

	reply := Reply{
		Text: fmt.Sprintf("Got it. I logged %s under %s. I’ll keep an eye on trends. Anything else?",
			money.Format(receipt.Amount, receipt.Currency), receipt.Category),
		Handled: true,
		Receipt: &receipt,
	}
	a.respond(reply.Text)
	return reply, nil
}

// Listen captures one utterance from the recognizer and processes it. Without
// a working recognizer the assistant says so in the conversation instead.
func (a *Assistant) Listen(ctx context.Context) (Reply, error) {
	if a.recognizer == nil {
		return a.unsupported(), nil
	}
	transcript, err := a.recognizer.Recognize(ctx)
	if errors.Is(err, ErrRecognitionUnsupported) {
		return a.unsupported(), nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("recognize speech: %w", err)
	}
	return a.Process(ctx, transcript)
}

// Messages returns a copy of the conversation log.
func (a *Assistant) Messages() []model.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]model.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// LastMessage returns the most recent message.
func (a *Assistant) LastMessage() model.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.messages[len(a.messages)-1]
}

// Speak sends text to the speaker, interrupting any reply still being
// spoken. It does not wait for speech to finish.
func (a *Assistant) Speak(text string) {
	if a.speaker == nil || strings.TrimSpace(text) == "" {
		return
	}

	a.speakMu.Lock()
	if a.stopSpeech != nil {
		a.stopSpeech()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.stopSpeech = cancel
	a.speechGroup.Add(1)
	a.speakMu.Unlock()

	go func() {
		defer a.speechGroup.Done()
		if err := a.speaker.Speak(ctx, text); err != nil && !errors.Is(err, context.Canceled) {
			slog.Debug("Speech failed", "error", err)
		}
	}()
}

// Close stops any reply being spoken and waits for the speaker to return.
func (a *Assistant) Close() {
	a.speakMu.Lock()
	if a.stopSpeech != nil {
		a.stopSpeech()
	}
	a.speakMu.Unlock()
	a.speechGroup.Wait()
}

func (a *Assistant) unsupported() Reply {
	a.append(model.RoleAssistant, UnsupportedMessage)
	return Reply{Text: UnsupportedMessage}
}

func (a *Assistant) respond(text string) {
	a.append(model.RoleAssistant, text)
	a.Speak(text)
}

func (a *Assistant) append(role model.Role, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, model.Message{
		ID:      string(role) + "-" + uuid.NewString(),
		Role:    role,
		Content: content,
	})
}

// Package capture turns submitted files into receipts after a short
// simulated extraction delay.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-receipts-must-flow/internal/inference"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/service"
	"github.com/google/uuid"
)

// DefaultDelay is the simulated extraction time.
const DefaultDelay = 1800 * time.Millisecond

// Capture errors.
var (
	ErrSessionBusy = errors.New("capture session is not idle")
	ErrDismissed   = errors.New("capture dismissed")
	ErrNoFileName  = errors.New("file has no name")
	ErrNoStore     = errors.New("capture requires a receipt store")
)

// Status is the phase of a capture session.
type Status string

// Session phases.
const (
	StatusIdle      Status = "idle"
	StatusScanning  Status = "scanning"
	StatusSuccess   Status = "success"
	StatusDismissed Status = "dismissed"
)

// State is a snapshot of a session. FileName is set while scanning and on
// success, Summary and ReceiptID only on success.
type State struct {
	Status    Status
	FileName  string
	Summary   string
	ReceiptID string
}

// Scanner holds the shared configuration for capture sessions.
type Scanner struct {
	store     service.ReceiptWriter
	delay     time.Duration
	summaries []string
	preview   Previewer
	now       func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDelay sets the extraction delay. Zero commits on the next scheduler tick.
func WithDelay(d time.Duration) Option {
	return func(s *Scanner) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithSummaries replaces the canned summary pool.
func WithSummaries(summaries []string) Option {
	return func(s *Scanner) {
		if len(summaries) > 0 {
			s.summaries = append([]string(nil), summaries...)
		}
	}
}

// WithRand sets the random source used to pick summaries.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scanner) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithPreviewer sets how preview URLs are produced.
func WithPreviewer(p Previewer) Option {
	return func(s *Scanner) {
		if p != nil {
			s.preview = p
		}
	}
}

// WithClock sets the time source for receipt dates.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScanner creates a Scanner committing to store.
func NewScanner(store service.ReceiptWriter, opts ...Option) (*Scanner, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	s := &Scanner{
		store:     store,
		delay:     DefaultDelay,
		summaries: Summaries(),
		preview:   DefaultPreviewer,
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5ca9)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Delay returns the configured extraction delay.
func (s *Scanner) Delay() time.Duration {
	return s.delay
}

// NewSession starts an idle session.
func (s *Scanner) NewSession() *Session {
	return &Session{
		id:      uuid.NewString(),
		scanner: s,
		state:   State{Status: StatusIdle},
	}
}

// Capture runs a single file through a fresh session and waits for the result.
func (s *Scanner) Capture(ctx context.Context, file FileRef) (model.Receipt, error) {
	session := s.NewSession()
	ext, err := session.Submit(ctx, file)
	if err != nil {
		return model.Receipt{}, err
	}
	receipt, err := ext.Wait(ctx)
	if err != nil {
		session.Dismiss()
		return model.Receipt{}, err
	}
	return receipt, nil
}

func (s *Scanner) pickSummary() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.summaries[s.rng.IntN(len(s.summaries))]
}

func (s *Scanner) draft(name, fileURL string) model.NewReceipt {
	return model.NewReceipt{
		Date:     s.now().UTC().Format(model.DateLayout),
		Merchant: inference.GuessMerchant(name),
		Category: inference.FilenameCategory(name),
		Method:   DefaultMethod,
		Currency: DefaultCurrency,
		Notes:    DefaultNotes,
		FileName: name,
		FileURL:  fileURL,
		Source:   model.SourceUpload,
		Summary:  s.pickSummary(),
		Items:    PlaceholderItems(),
		Amount:   AmountFromFilename(name),
	}
}

// Session is one capture dialog. A session handles one file at a time.
type Session struct {
	id      string
	scanner *Scanner

	mu      sync.Mutex
	state   State
	pending *Extraction
}

// ID returns the session identifier used in preview URLs.
func (s *Session) ID() string {
	return s.id
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit starts extracting file. It fails with ErrSessionBusy unless the
// session is idle.
func (s *Session) Submit(ctx context.Context, file FileRef) (*Extraction, error) {
	if file == nil {
		return nil, ErrNoFileName
	}
	name := file.Name()
	if strings.TrimSpace(name) == "" || name == "." {
		return nil, ErrNoFileName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusIdle {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, s.state.Status)
	}

	ext := &Extraction{
		session:  s,
		fileName: name,
		done:     make(chan struct{}),
		cancel:   make(chan struct{}),
	}
	s.state = State{Status: StatusScanning, FileName: name}
	s.pending = ext

	fileURL := s.scanner.preview.PreviewURL(s.id, file)
	slog.Debug("Capture started", "session", s.id, "file", name)
	go s.run(ctx, ext, fileURL)
	return ext, nil
}

// Dismiss closes the dialog. A pending extraction is cancelled and will not
// commit. A session that already succeeded keeps its result.
func (s *Session) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dismissLocked()
}

func (s *Session) dismissLocked() {
	if s.pending != nil {
		s.pending.abort()
	}
	if s.state.Status != StatusSuccess {
		s.state = State{Status: StatusDismissed, FileName: s.state.FileName}
	}
}

// Reset returns a finished or dismissed session to idle.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == StatusScanning {
		return ErrSessionBusy
	}
	s.state = State{Status: StatusIdle}
	s.pending = nil
	return nil
}

func (s *Session) run(ctx context.Context, ext *Extraction, fileURL string) {
	timer := time.NewTimer(s.scanner.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ext.cancel:
		ext.finish(model.Receipt{}, ErrDismissed)
		return
	case <-ctx.Done():
		s.mu.Lock()
		if s.pending == ext {
			s.state = State{Status: StatusDismissed, FileName: ext.fileName}
		}
		s.mu.Unlock()
		ext.finish(model.Receipt{}, ctx.Err())
		return
	}

	// Commit under the session lock so a concurrent Dismiss either happens
	// before the write or observes Success.
	s.mu.Lock()
	defer s.mu.Unlock()
	if ext.cancelled() {
		ext.finish(model.Receipt{}, ErrDismissed)
		return
	}

	receipt, err := s.scanner.store.Add(ctx, s.scanner.draft(ext.fileName, fileURL))
	if err != nil {
		s.state = State{Status: StatusIdle}
		s.pending = nil
		ext.finish(model.Receipt{}, fmt.Errorf("commit captured receipt: %w", err))
		return
	}

	s.state = State{
		Status:    StatusSuccess,
		FileName:  ext.fileName,
		Summary:   receipt.Summary,
		ReceiptID: receipt.ID,
	}
	s.pending = nil
	slog.Info("Captured receipt",
		"session", s.id,
		"id", receipt.ID,
		"file", ext.fileName,
		"merchant", receipt.Merchant,
		"amount", receipt.Amount)
	ext.finish(receipt, nil)
}

// Extraction is the handle for one in-flight capture.
type Extraction struct {
	session  *Session
	fileName string

	done    chan struct{}
	receipt model.Receipt
	err     error

	cancel     chan struct{}
	cancelOnce sync.Once
}

// FileName returns the submitted file name.
func (e *Extraction) FileName() string {
	return e.fileName
}

// Done is closed once the extraction committed, failed or was cancelled.
func (e *Extraction) Done() <-chan struct{} {
	return e.done
}

// Wait blocks until the extraction finishes or ctx is done.
func (e *Extraction) Wait(ctx context.Context) (model.Receipt, error) {
	select {
	case <-e.done:
		return e.receipt, e.err
	case <-ctx.Done():
		return model.Receipt{}, ctx.Err()
	}
}

// Cancel dismisses the owning session if this extraction is still its
// current one.
func (e *Extraction) Cancel() {
	s := e.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != e {
		e.abort()
		return
	}
	s.dismissLocked()
}

func (e *Extraction) abort() {
	e.cancelOnce.Do(func() { close(e.cancel) })
}

func (e *Extraction) cancelled() bool {
	select {
	case <-e.cancel:
		return true
	default:
		return false
	}
}

func (e *Extraction) finish(receipt model.Receipt, err error) {
	e.receipt = receipt
	e.err = err
	close(e.done)
}

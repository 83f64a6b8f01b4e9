package game

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kezlabs/taboo-live/internal/metrics"
	"github.com/kezlabs/taboo-live/pkg/coach"
	"github.com/kezlabs/taboo-live/pkg/realtime"
	"github.com/kezlabs/taboo-live/pkg/realtime/protocol"
)

// Sender is the outbound half of the realtime channel.
type Sender interface {
	Send(msg any) error
	EnsureOpen(ctx context.Context) error
}

// FeedbackStore persists coach feedback records.
type FeedbackStore interface {
	StoreFeedbackSession(ctx context.Context, fs coach.FeedbackSession) error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithStore sets the feedback store.
func WithStore(store FeedbackStore) Option {
	return func(s *Session) { s.store = store }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session is the game controller for one live voice session. It drives
// the round state machine from inbound peer events and exposes player
// operations (start, skip, continue, feedback). Inbound events are
// expected from a single goroutine; player operations may come from
// another.
type Session struct {
	cfg     Config
	logger  *zap.Logger
	sender  Sender
	bank    *Bank
	store   FeedbackStore
	metrics *metrics.Metrics

	log     *TranscriptLog
	pending *PendingBuffer
	sched   *ResponseScheduler
	meter   *UsageMeter

	events chan Event

	activeResp atomic.Bool
	baseCtx    atomic.Value // ctxHolder

	mu               sync.Mutex
	state            State
	word             Word
	tracker          *Tracker
	detector         *Detector
	activeRespID     string
	cancelledResps   map[string]bool
	toolCallHandled  bool
	pendingUserSeq   uint64
	assistantSeq     uint64
	assistantBuf     strings.Builder
	guessed          bool
	score            int
	roundStartSeq    uint64
	awaitingFeedback bool
	feedbackWord     Word
	feedbackUserText string
	startedAt        time.Time
	settleTimer      *time.Timer
	closed           bool
}

// NewSession builds a controller over a connected channel and word
// bank.
func NewSession(cfg Config, sender Sender, bank *Bank, opts ...Option) *Session {
	s := &Session{
		cfg:            cfg,
		logger:         zap.NewNop(),
		sender:         sender,
		bank:           bank,
		log:            NewTranscriptLog(),
		pending:        NewPendingBuffer(cfg.PendingSafetyDelay),
		meter:          &UsageMeter{},
		events:         make(chan Event, 32),
		cancelledResps: make(map[string]bool),
		state:          StateIdle,
	}
	s.baseCtx.Store(ctxHolder{ctx: context.Background()})
	for _, opt := range opts {
		opt(s)
	}
	s.sched = NewResponseScheduler(
		s.sendChecked,
		s.activeResp.Load,
		func(err error) { s.emit(ErrorEvent{Err: err}) },
		cfg.ResponseCooldown,
		cfg.CancelSettleDelay,
	)
	return s
}

// Events returns the observer event stream. Closed by End.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current controller state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Score returns the number of correctly guessed words.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// CurrentWord returns the word in play and whether a round is assigned.
func (s *Session) CurrentWord() (Word, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.word, s.word.Word != ""
}

// Turns returns a copy of the conversation log.
func (s *Session) Turns() []Turn {
	return s.log.Turns()
}

// Usage returns cumulative token usage and estimated cost.
func (s *Session) Usage() (protocol.Usage, CostReport) {
	return s.meter.Totals()
}

// Start configures the peer session and schedules the greeting. The
// context is retained for reconnection attempts made by later
// operations.
func (s *Session) Start(ctx context.Context) error {
	s.baseCtx.Store(ctxHolder{ctx: ctx})
	s.mu.Lock()
	s.startedAt = time.Now()
	mode := s.cfg.Mode
	s.mu.Unlock()

	patch := protocol.SessionPatch{
		Instructions: ModePrompt(mode),
		Voice:        s.cfg.Voice,
		Modalities:   []string{"text", "audio"},
		Temperature:  s.cfg.Pace.Temperature(),
		TurnDetection: &protocol.TurnDetection{
			Type:              "server_vad",
			Threshold:         s.cfg.VADThreshold,
			PrefixPaddingMS:   s.cfg.PrefixPaddingMS,
			SilenceDurationMS: s.cfg.Pace.SilenceDurationMS(),
			CreateResponse:    true,
			InterruptResponse: true,
		},
		InputAudioTranscription: &protocol.TranscriptionConfig{
			Model:    "whisper-1",
			Language: s.cfg.TranscriptionLanguage,
		},
	}
	if mode == ModeTaboo {
		patch.Tools = []protocol.Tool{GuessResultTool()}
		patch.ToolChoice = "auto"
	}
	if err := s.sendChecked(protocol.NewSessionUpdate(patch)); err != nil {
		return err
	}

	// The peer applies session.update asynchronously; give it a moment
	// before the greeting so the new instructions are in effect.
	s.mu.Lock()
	s.settleTimer = time.AfterFunc(s.cfg.SessionSettleDelay+s.cfg.GreetingDelay, func() {
		if _, err := s.sched.Request(GreetingInstruction(mode)); err != nil {
			s.emit(ErrorEvent{Err: err})
		}
	})
	s.mu.Unlock()

	s.logger.Info("session started",
		zap.String("mode", string(mode)),
		zap.String("voice", s.cfg.Voice),
		zap.String("pace", string(s.cfg.Pace)))
	return nil
}

// StartRound draws a word and begins a round. Also used to deal the
// next word after a completed or skipped round.
func (s *Session) StartRound() error {
	s.mu.Lock()
	previous := s.word.Word
	word := s.bank.Draw(previous)
	if previous != "" {
		// Fresh word, fresh transcript. Unlocks and feedback keep the
		// log; only round transitions clear it.
		s.log.Clear()
	}
	s.beginRoundLocked(word)
	first := previous == ""
	s.mu.Unlock()

	s.emit(RoundStartedEvent{Word: word.Word, Forbidden: word.Forbidden})
	if s.metrics != nil {
		s.metrics.RoundsStarted.Inc()
	}
	s.logger.Info("round started",
		zap.String("word", word.Word),
		zap.Strings("forbidden", word.Forbidden))

	var msg string
	if first {
		msg = NewRoundMessage(word.Word, word.Forbidden)
	} else {
		msg = NextWordMessage(word.Word, word.Forbidden)
	}
	if err := s.sendChecked(protocol.NewSystemMessage(msg)); err != nil {
		return err
	}
	_, err := s.sched.Request("")
	return err
}

// SkipWord abandons the current word and deals a new one.
func (s *Session) SkipWord() error {
	return s.StartRound()
}

// ContinueRound resumes play on the same word after a forbidden-word
// pause.
func (s *Session) ContinueRound() error {
	s.mu.Lock()
	if s.state != StatePausedForbidden {
		s.mu.Unlock()
		return nil
	}
	s.setStateLocked(StateRoundActive)
	word := s.word.Word
	s.mu.Unlock()

	if err := s.sendChecked(protocol.NewSystemMessage(ContinueAfterForbiddenMessage(word))); err != nil {
		return err
	}
	_, err := s.sched.Request("")
	return err
}

// RequestFeedback asks the peer for language feedback on the round
// just played. Only available after a correct guess; detection is
// suspended until EndFeedback.
func (s *Session) RequestFeedback() error {
	s.mu.Lock()
	if s.state != StatePausedCorrect || s.word.Word == "" {
		s.mu.Unlock()
		return nil
	}
	s.setStateLocked(StateFeedback)
	s.awaitingFeedback = true
	s.feedbackWord = s.word
	s.feedbackUserText = s.log.UserTextSince(s.roundStartSeq)
	word := s.feedbackWord
	description := s.feedbackUserText
	s.mu.Unlock()

	if err := s.sendChecked(protocol.NewSystemMessage(
		FeedbackRequestMessage(word.Word, description, word.Forbidden))); err != nil {
		return err
	}
	_, err := s.sched.Request("")
	return err
}

// EndFeedback returns from feedback mode to the paused game.
func (s *Session) EndFeedback() error {
	s.mu.Lock()
	if s.state != StateFeedback {
		s.mu.Unlock()
		return nil
	}
	s.awaitingFeedback = false
	s.setStateLocked(StatePausedCorrect)
	s.mu.Unlock()

	if err := s.sendChecked(protocol.NewSystemMessage(FeedbackSessionEndMessage())); err != nil {
		return err
	}
	_, err := s.sched.Request("")
	return err
}

// SetPace retunes the peer's speaking temperature and VAD patience.
func (s *Session) SetPace(pace Pace) error {
	s.mu.Lock()
	s.cfg.Pace = pace
	s.mu.Unlock()

	return s.sendChecked(protocol.NewSessionUpdate(protocol.SessionPatch{
		Temperature: pace.Temperature(),
		TurnDetection: &protocol.TurnDetection{
			Type:              "server_vad",
			Threshold:         s.cfg.VADThreshold,
			PrefixPaddingMS:   s.cfg.PrefixPaddingMS,
			SilenceDurationMS: pace.SilenceDurationMS(),
			CreateResponse:    true,
			InterruptResponse: true,
		},
	}))
}

// End closes the controller and emits the session summary.
func (s *Session) End() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.settleTimer != nil {
		s.settleTimer.Stop()
	}
	score := s.score
	duration := time.Since(s.startedAt)
	s.mu.Unlock()

	if err := s.sched.CancelActive(); err != nil {
		s.logger.Debug("cancel on shutdown", zap.Error(err))
	}
	s.sched.Close()
	s.pending.Reset()
	s.emit(SessionEndedEvent{Score: score, Duration: duration})
	close(s.events)
	s.logger.Info("session ended",
		zap.Int("score", score),
		zap.Duration("duration", duration))
}

// HandleEvent dispatches one inbound peer event through the state
// machine.
func (s *Session) HandleEvent(event protocol.ServerEvent) {
	switch ev := event.(type) {
	case protocol.ResponseCreatedEvent:
		s.onResponseCreated(ev)
	case protocol.TextDeltaEvent:
		s.onAssistantDelta(ev.Delta)
	case protocol.AudioTranscriptDeltaEvent:
		s.onAssistantDelta(ev.Delta)
	case protocol.OutputItemAddedEvent:
		s.onOutputItemAdded(ev)
	case protocol.ResponseDoneEvent:
		s.onResponseDone(ev)
	case protocol.FunctionCallDoneEvent:
		s.onFunctionCall(ev)
	case protocol.SpeechStartedEvent:
		s.emit(SpeechActivityEvent{Speaking: true})
	case protocol.SpeechStoppedEvent:
		s.onSpeechStopped()
	case protocol.TranscriptionCompletedEvent:
		s.onUserTranscript(ev.Transcript)
	case protocol.ErrorEvent:
		s.logger.Warn("peer error", zap.String("code", ev.Code), zap.String("message", ev.Message))
		s.emit(ErrorEvent{Err: realtime.NewPeerError(ev.Message, ev.Code)})
	case protocol.UnknownEvent:
		s.logger.Debug("unhandled frame", zap.String("type", ev.Type))
	}
}

func (s *Session) onResponseCreated(ev protocol.ResponseCreatedEvent) {
	s.activeResp.Store(true)
	s.mu.Lock()
	s.activeRespID = ev.ResponseID
	s.toolCallHandled = false
	s.assistantBuf.Reset()
	s.assistantSeq = 0
	s.mu.Unlock()
}

func (s *Session) onAssistantDelta(delta string) {
	if delta == "" {
		return
	}
	s.mu.Lock()
	if s.assistantSeq == 0 {
		s.assistantSeq = s.log.Begin(RoleAssistant, "...")
	}
	s.assistantBuf.WriteString(delta)
	s.mu.Unlock()
	s.emit(AssistantDeltaEvent{Delta: delta})
}

func (s *Session) onOutputItemAdded(ev protocol.OutputItemAddedEvent) {
	if ev.Text == "" {
		return
	}
	s.mu.Lock()
	// Some peer versions deliver whole message text here instead of
	// streaming deltas; prefer the delta stream when it exists.
	if s.assistantBuf.Len() == 0 {
		if s.assistantSeq == 0 {
			s.assistantSeq = s.log.Begin(RoleAssistant, "...")
		}
		s.assistantBuf.WriteString(ev.Text)
	}
	s.mu.Unlock()
}

func (s *Session) onResponseDone(ev protocol.ResponseDoneEvent) {
	s.activeResp.Store(false)

	s.mu.Lock()
	content := s.assistantBuf.String()
	if content == "" {
		content = ev.Transcript
	}
	content = strings.TrimSpace(content)
	seq := s.assistantSeq
	s.assistantBuf.Reset()
	s.assistantSeq = 0

	cancelled := ev.ResponseID != "" && s.cancelledResps[ev.ResponseID]
	delete(s.cancelledResps, ev.ResponseID)
	if cancelled {
		if seq != 0 {
			s.log.Discard(seq)
		}
		s.mu.Unlock()
		s.logger.Debug("discarding cancelled response", zap.String("response_id", ev.ResponseID))
		s.recordUsage(ev.Usage)
		s.pending.Drain()
		return
	}

	var turn Turn
	haveTurn := false
	if content != "" && !s.log.HasFinalAssistant(content) {
		if seq != 0 {
			s.log.Complete(seq, content)
		} else {
			seq = s.log.Append(RoleAssistant, content)
		}
		for _, t := range s.log.Turns() {
			if t.Seq == seq {
				turn = t
				haveTurn = true
				break
			}
		}
	}
	s.mu.Unlock()

	if haveTurn {
		s.emit(TurnEvent{Turn: turn})
		s.runAssistantLogic(content)
	}
	s.recordUsage(ev.Usage)
	s.pending.Drain()
}

// runAssistantLogic applies game rules to a finalized AI message:
// forbidden-word unlocks and the heuristic guess path.
func (s *Session) runAssistantLogic(content string) {
	s.mu.Lock()
	if s.state == StateFeedback {
		awaiting := s.awaitingFeedback
		s.awaitingFeedback = false
		word := s.feedbackWord
		description := s.feedbackUserText
		s.mu.Unlock()
		if awaiting {
			s.storeFeedback(word, description, content)
		}
		return
	}
	if s.state != StateRoundActive || s.tracker == nil {
		s.mu.Unlock()
		return
	}

	effect := s.tracker.CheckText(content, SpeakerAI)
	isGuess := !s.toolCallHandled && s.detector != nil && s.detector.IsGuess(content)
	word := s.word.Word
	s.mu.Unlock()

	if effect.Kind == EffectUnlock {
		unlocked := effect.Word
		s.pending.Push(content, func() {
			if err := s.sendChecked(protocol.NewSystemMessage(UnlockMessage(unlocked))); err != nil {
				s.emit(ErrorEvent{Err: err})
				return
			}
			if _, err := s.sched.Request(UnlockResponseInstruction(unlocked)); err != nil {
				s.emit(ErrorEvent{Err: err})
			}
		})
		s.emit(WordUnlockedEvent{Word: unlocked})
		if s.metrics != nil {
			s.metrics.Unlocks.Inc()
		}
		s.logger.Info("forbidden word unlocked", zap.String("word", unlocked))
	}

	if isGuess {
		s.handleCorrectGuess(word, "heuristic")
	}
}

func (s *Session) onFunctionCall(ev protocol.FunctionCallDoneEvent) {
	if ev.Name != GuessResultToolName {
		s.logger.Debug("unhandled tool call", zap.String("name", ev.Name))
		return
	}
	args, err := protocol.ParseGuessResult(ev.Arguments)
	if err != nil {
		s.emit(ErrorEvent{Err: err})
		return
	}

	s.mu.Lock()
	s.toolCallHandled = true
	word := s.word.Word
	inRound := s.state == StateRoundActive
	s.mu.Unlock()

	if ev.CallID != "" {
		reply, err := protocol.NewFunctionOutput(ev.CallID, map[string]any{
			"success": true,
			"action":  args.Action,
		})
		if err == nil {
			if err := s.sendChecked(reply); err != nil {
				s.emit(ErrorEvent{Err: err})
			}
		}
	}

	if inRound && args.IsCorrect && strings.EqualFold(strings.TrimSpace(args.GuessedWord), word) {
		s.handleCorrectGuess(word, "tool_call")
	}
}

// handleCorrectGuess is idempotent per round: the tool call and the
// heuristic path may both fire for the same guess.
func (s *Session) handleCorrectGuess(word, source string) {
	s.mu.Lock()
	if s.guessed || s.state != StateRoundActive {
		s.mu.Unlock()
		return
	}
	s.guessed = true
	s.score++
	score := s.score
	s.markActiveCancelledLocked()
	s.setStateLocked(StatePausedCorrect)
	s.mu.Unlock()

	s.emit(CorrectGuessEvent{Word: word, Score: score, Source: source})
	if s.metrics != nil {
		s.metrics.RecordCorrectGuess(source)
	}
	s.logger.Info("correct guess",
		zap.String("word", word),
		zap.String("source", source),
		zap.Int("score", score))

	if _, err := s.sched.Request(CorrectGuessSilence()); err != nil {
		s.emit(ErrorEvent{Err: err})
	}
}

func (s *Session) onSpeechStopped() {
	s.emit(SpeechActivityEvent{Speaking: false})
	s.mu.Lock()
	if s.pendingUserSeq == 0 {
		s.pendingUserSeq = s.log.Begin(RoleUser, "...")
	}
	s.mu.Unlock()
}

func (s *Session) onUserTranscript(transcript string) {
	transcript = strings.TrimSpace(transcript)

	s.mu.Lock()
	seq := s.pendingUserSeq
	s.pendingUserSeq = 0
	if transcript == "" {
		if seq != 0 {
			s.log.Discard(seq)
		}
		s.mu.Unlock()
		return
	}
	if seq != 0 {
		s.log.Complete(seq, transcript)
	} else {
		seq = s.log.Append(RoleUser, transcript)
	}
	var turn Turn
	for _, t := range s.log.Turns() {
		if t.Seq == seq {
			turn = t
			break
		}
	}

	inRound := s.state == StateRoundActive && s.tracker != nil
	var effect Effect
	if inRound {
		effect = s.tracker.CheckText(transcript, SpeakerUser)
	}
	if effect.Kind == EffectViolation {
		s.markActiveCancelledLocked()
		s.setStateLocked(StatePausedForbidden)
	}
	s.mu.Unlock()

	s.emit(TurnEvent{Turn: turn})

	if effect.Kind == EffectViolation {
		s.emit(ViolationEvent{Word: effect.Word})
		if s.metrics != nil {
			s.metrics.Violations.Inc()
		}
		s.logger.Info("forbidden word violation", zap.String("word", effect.Word))
		s.pending.Reset()
		if err := s.sendChecked(protocol.NewSystemMessage(ForbiddenWordUsedMessage(effect.Word))); err != nil {
			s.emit(ErrorEvent{Err: err})
			return
		}
		if _, err := s.sched.Request(""); err != nil {
			s.emit(ErrorEvent{Err: err})
		}
		return
	}

	s.pending.Drain()
}

func (s *Session) storeFeedback(word Word, description, feedback string) {
	fs := coach.NewFeedbackSession(word.Word, word.Difficulty(), description, feedback)
	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.StoreFeedbackSession(ctx, fs); err != nil {
			s.logger.Warn("store feedback", zap.Error(err))
			s.emit(ErrorEvent{Err: err})
		}
	}
	s.emit(FeedbackReadyEvent{Word: word.Word, Feedback: feedback})
	s.logger.Info("feedback stored", zap.String("word", word.Word))
}

func (s *Session) recordUsage(u *protocol.Usage) {
	if u == nil {
		return
	}
	prev, prevCost := s.meter.Totals()
	total, cost := s.meter.Observe(*u)
	s.emit(UsageEvent{Usage: total, Cost: cost})
	if s.metrics != nil {
		s.metrics.RecordCost(cost.TotalUSD - prevCost.TotalUSD)
		// Reports cover the whole conversation so far; meter the growth.
		din := u.InputTokens - prev.InputTokens
		dout := u.OutputTokens - prev.OutputTokens
		if din < 0 {
			din = u.InputTokens
		}
		if dout < 0 {
			dout = u.OutputTokens
		}
		s.metrics.RecordTokens(din, dout)
	}
}

func (s *Session) beginRoundLocked(word Word) {
	s.word = word
	if s.cfg.Mode == ModeTaboo {
		if s.tracker == nil {
			s.tracker = NewTracker(s.cfg.MatchSubstring)
		}
		s.tracker.Initialize(word)
		s.detector = NewDetector(word.Word, s.cfg.Strictness)
	}
	s.guessed = false
	s.roundStartSeq = s.log.Seq()
	s.pending.Reset()
	s.setStateLocked(StateRoundActive)
}

// markActiveCancelledLocked records the in-flight response as doomed
// so its late response.done is discarded instead of logged. The cancel
// frame itself is sent by the scheduler on the next Request.
func (s *Session) markActiveCancelledLocked() {
	if !s.activeResp.Load() || s.activeRespID == "" {
		return
	}
	s.cancelledResps[s.activeRespID] = true
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	prev := s.state
	s.state = next
	s.logger.Debug("state change",
		zap.String("from", prev.String()),
		zap.String("to", next.String()))
	s.emit(StateChangedEvent{From: prev, To: next})
}

// sendChecked verifies the channel is open before writing, redialing
// once if the connection dropped.
func (s *Session) sendChecked(msg any) error {
	ctx := context.Background()
	if holder, ok := s.baseCtx.Load().(ctxHolder); ok && holder.ctx != nil {
		ctx = holder.ctx
	}
	if err := s.sender.EnsureOpen(ctx); err != nil {
		return err
	}
	return s.sender.Send(msg)
}

// ctxHolder keeps atomic.Value stores monomorphic across differently
// typed contexts.
type ctxHolder struct {
	ctx context.Context
}

func (s *Session) emit(event Event) {
	defer func() {
		// The events channel closes on End; late timer callbacks must
		// not crash the process.
		_ = recover()
	}()
	select {
	case s.events <- event:
	default:
		s.logger.Debug("observer event dropped", zap.String("type", event.EventType()))
	}
}

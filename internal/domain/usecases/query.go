// Package usecases - query.go answers questions from retrieved context.
package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/0xcro3dile/docqa-go/internal/domain/conversation"
	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

const (
	// DefaultTopK is how many excerpts are retrieved per question.
	DefaultTopK = 4

	// DefaultSessionID is used when a request carries no session.
	DefaultSessionID = "default"
)

// QueryUseCase is the retrieval QA controller: cache check, retrieve,
// assemble, generate, then commit to memory and cache.
type QueryUseCase struct {
	retriever     ports.Retriever
	generator     ports.Generator
	cache         ports.AnswerCache
	conversations ports.ConversationStore

	topK            int
	recordCacheHits bool
	coalesce        bool
	attempts        uint
	retryDelay      time.Duration

	observer ports.Observer
	logger   *zap.Logger
	flight   singleflight.Group
}

// QueryOption configures a QueryUseCase.
type QueryOption func(*QueryUseCase)

// WithTopK sets how many excerpts are requested per question.
func WithTopK(k int) QueryOption {
	return func(uc *QueryUseCase) {
		if k > 0 {
			uc.topK = k
		}
	}
}

// WithRecordCacheHits controls whether answers served from the cache are
// also appended to the session history. Enabled by default.
func WithRecordCacheHits(on bool) QueryOption {
	return func(uc *QueryUseCase) { uc.recordCacheHits = on }
}

// WithCoalescing makes concurrent misses for the same session and question
// share one retrieval, generation and commit.
func WithCoalescing(on bool) QueryOption {
	return func(uc *QueryUseCase) { uc.coalesce = on }
}

// WithGenerationRetry retries transient generation failures up to attempts
// calls in total, backing off from delay. attempts <= 1 disables retry.
func WithGenerationRetry(attempts uint, delay time.Duration) QueryOption {
	return func(uc *QueryUseCase) {
		if attempts < 1 {
			attempts = 1
		}
		uc.attempts = attempts
		uc.retryDelay = delay
	}
}

// WithObserver reports outcomes, stage timings and cache events to o.
func WithObserver(o ports.Observer) QueryOption {
	return func(uc *QueryUseCase) {
		if o != nil {
			uc.observer = o
		}
	}
}

// WithQueryLogger sets the logger; nil keeps the no-op default.
func WithQueryLogger(l *zap.Logger) QueryOption {
	return func(uc *QueryUseCase) {
		if l != nil {
			uc.logger = l
		}
	}
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
func NewQueryUseCase(
	retriever ports.Retriever,
	generator ports.Generator,
	cache ports.AnswerCache,
	conversations ports.ConversationStore,
	opts ...QueryOption,
) *QueryUseCase {
	uc := &QueryUseCase{
		retriever:       retriever,
		generator:       generator,
		cache:           cache,
		conversations:   conversations,
		topK:            DefaultTopK,
		recordCacheHits: true,
		attempts:        1,
		retryDelay:      200 * time.Millisecond,
		observer:        ports.NopObserver{},
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// GetAnswer returns the answer text for a question within a session.
func (uc *QueryUseCase) GetAnswer(ctx context.Context, sessionID, question string) (string, error) {
	resp, err := uc.Query(ctx, &entities.ChatRequest{SessionID: sessionID, Question: question})
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// Query answers req. Zero retrieved excerpts yields NoContextAnswer with no
// error; retrieval and generation failures are returned and leave cache and
// history untouched.
func (uc *QueryUseCase) Query(ctx context.Context, req *entities.ChatRequest) (*entities.ChatResponse, error) {
	start := time.Now()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, entities.ErrEmptyQuestion
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	log := uc.logger.With(zap.String("session", sessionID))

	if resp, ok := uc.fromCache(ctx, log, sessionID, question); ok {
		uc.observer.ObserveAnswer(ports.OutcomeCached, time.Since(start))
		return resp, nil
	}

	var (
		resp *entities.ChatResponse
		err  error
	)
	if uc.coalesce {
		resp, err = uc.shared(ctx, log, sessionID, question)
	} else {
		resp, err = uc.answer(ctx, log, sessionID, question)
	}

	switch {
	case err != nil:
		uc.observer.ObserveAnswer(ports.OutcomeFailed, time.Since(start))
		log.Warn("question failed", zap.Error(err))
		return nil, err
	case resp.Cached:
		uc.observer.ObserveAnswer(ports.OutcomeCached, time.Since(start))
	case resp.NoContext:
		uc.observer.ObserveAnswer(ports.OutcomeNoContext, time.Since(start))
	default:
		uc.observer.ObserveAnswer(ports.OutcomeAnswered, time.Since(start))
	}
	return resp, nil
}

func (uc *QueryUseCase) fromCache(ctx context.Context, log *zap.Logger, sessionID, question string) (*entities.ChatResponse, bool) {
	answer, ok := uc.cache.Get(question)
	if !ok {
		uc.observer.ObserveCache("miss")
		return nil, false
	}
	uc.observer.ObserveCache("hit")
	return uc.cachedResponse(ctx, log, sessionID, question, answer), true
}

func (uc *QueryUseCase) cachedResponse(ctx context.Context, log *zap.Logger, sessionID, question, answer string) *entities.ChatResponse {
	if uc.recordCacheHits {
		uc.appendRound(ctx, log, sessionID, question, answer)
	}
	log.Debug("answered from cache")
	return &entities.ChatResponse{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Cached:    true,
	}
}

// peeker is implemented by caches that can look up without counting the
// lookup or promoting the entry.
type peeker interface {
	Peek(question string) (string, bool)
}

func (uc *QueryUseCase) peek(question string) (string, bool) {
	if p, ok := uc.cache.(peeker); ok {
		return p.Peek(question)
	}
	return uc.cache.Get(question)
}

// shared runs one miss per (session, question) for all concurrent callers.
// The flight is detached from the first caller's cancellation; each caller
// stops waiting when its own ctx ends. Generation timeouts still bound it.
func (uc *QueryUseCase) shared(ctx context.Context, log *zap.Logger, sessionID, question string) (*entities.ChatResponse, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := uc.flight.DoChan(sessionID+"\x00"+question, func() (interface{}, error) {
		// A flight that finished between our lookup and now has already cached the answer.
		if answer, ok := uc.peek(question); ok {
			return uc.cachedResponse(flightCtx, log, sessionID, question, answer), nil
		}
		return uc.answer(flightCtx, log, sessionID, question)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			log.Debug("joined in-flight question")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		r := *res.Val.(*entities.ChatResponse)
		return &r, nil
	}
}

// answer runs the miss path: retrieve, assemble, generate, commit.
func (uc *QueryUseCase) answer(ctx context.Context, log *zap.Logger, sessionID, question string) (*entities.ChatResponse, error) {
	stageStart := time.Now()
	excerpts, err := uc.retriever.Retrieve(ctx, question, uc.topK)
	uc.observer.ObserveStage(ports.StageRetrieve, time.Since(stageStart))
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	if len(excerpts) == 0 {
		log.Info("no relevant documents found")
		return &entities.ChatResponse{
			SessionID: sessionID,
			Question:  question,
			Answer:    entities.NoContextAnswer,
			NoContext: true,
		}, nil
	}

	turns, err := uc.conversations.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	promptContext := AssembleContext(excerpts, conversation.RenderTurns(turns))

	stageStart = time.Now()
	answer, err := uc.generate(ctx, log, promptContext, question)
	uc.observer.ObserveStage(ports.StageGenerate, time.Since(stageStart))
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	uc.appendRound(ctx, log, sessionID, question, answer)
	uc.cache.Put(question, answer)

	log.Info("question answered",
		zap.Int("excerpts", len(excerpts)),
		zap.Int("history_turns", len(turns)),
	)
	return &entities.ChatResponse{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Sources:   excerpts,
	}, nil
}

func (uc *QueryUseCase) generate(ctx context.Context, log *zap.Logger, promptContext, question string) (string, error) {
	var answer string
	err := retry.Do(
		func() error {
			a, err := uc.generator.Generate(ctx, promptContext, question)
			if err != nil {
				return err
			}
			answer = a
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uc.attempts),
		retry.Delay(uc.retryDelay),
		retry.RetryIf(entities.IsRetryableGeneration),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if n+1 < uc.attempts {
				log.Warn("generation attempt failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
			}
		}),
	)
	return answer, err
}

// appendRound records the question/answer pair. The write outlives request
// cancellation; a failed write is logged and does not fail the answer.
func (uc *QueryUseCase) appendRound(ctx context.Context, log *zap.Logger, sessionID, question, answer string) {
	err := uc.conversations.Append(context.WithoutCancel(ctx), sessionID,
		entities.HumanTurn(question),
		entities.AssistantTurn(answer),
	)
	if err != nil {
		log.Error("recording conversation turn", zap.Error(err))
	}
}

// ClearSession forgets a session's history. Cached answers are kept.
func (uc *QueryUseCase) ClearSession(ctx context.Context, sessionID string) error {
	if err := uc.conversations.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("clearing session %s: %w", sessionID, err)
	}
	return nil
}

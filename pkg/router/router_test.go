package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/tripgate/internal/adapters/memory"
	"github.com/aretw0/tripgate/pkg/clarify"
	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/aretw0/tripgate/pkg/draft"
	"github.com/aretw0/tripgate/pkg/ports"
	"github.com/aretw0/tripgate/pkg/qp"
	"github.com/aretw0/tripgate/pkg/router"
	"github.com/aretw0/tripgate/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []sse.Event
}

func (r *recorder) Emit(ev sse.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []domain.EventType {
	out := make([]domain.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	router   *router.Router
	gate     *clarify.Gate
	episodes *memory.EpisodeStore
	states   ports.StateStore
}

func newFixture(t *testing.T, gen ports.DraftGenerator, opts ...router.Option) *fixture {
	t.Helper()
	return newFixtureWithStates(t, memory.NewStateStore(), gen, opts...)
}

func newFixtureWithStates(t *testing.T, states ports.StateStore, gen ports.DraftGenerator, opts ...router.Option) *fixture {
	t.Helper()
	episodes := memory.NewEpisodeStore()
	gate := clarify.New(episodes)
	if gen == nil {
		gen = draft.New()
	}
	return &fixture{
		router:   router.New(gate, states, gen, opts...),
		gate:     gate,
		episodes: episodes,
		states:   states,
	}
}

func (f *fixture) handle(t *testing.T, req router.Request) (*recorder, domain.Outcome, *router.Turn) {
	t.Helper()
	turn, err := f.router.NewTurn(req)
	require.NoError(t, err)
	rec := &recorder{}
	outcome, err := f.router.Handle(context.Background(), turn, rec)
	require.NoError(t, err)
	return rec, outcome, turn
}

func userID(v int64) *int64 { return &v }

func TestRouter_ClarifyThenResume(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	rec, outcome, turn := f.handle(t, router.Request{Query: "去北京", UserID: userID(7)})
	assert.Equal(t, domain.OutcomeClarification, outcome)
	assert.Equal(t, []domain.EventType{
		domain.EventIntentRouted,
		domain.EventStageStart,
		domain.EventStageProgress,
	}, rec.types())

	progress := rec.events[2]
	payload, ok := progress.Payload.(clarify.Payload)
	require.True(t, ok)
	assert.Equal(t, clarify.StageClarifyConstraints, payload.Stage)
	assert.Equal(t, []domain.Field{domain.FieldDuration, domain.FieldBudget}, payload.MissingRequired)
	assert.Equal(t, payload.Message, progress.Text)

	state, err := f.states.Get(ctx, turn.ConversationID)
	require.NoError(t, err)
	require.NotNil(t, state.LastUserQuery)
	assert.Equal(t, "去北京", *state.LastUserQuery)
	assert.False(t, state.HasItinerary())

	rec, outcome, _ = f.handle(t, router.Request{
		Query:          "5天，预算3000",
		UserID:         userID(7),
		ConversationID: turn.ConversationID,
		Mode:           router.ModeResume,
	})
	assert.Equal(t, domain.OutcomeItinerary, outcome)
	require.Equal(t, []domain.EventType{
		domain.EventIntentRouted,
		domain.EventFinalItinerary,
		"",
	}, rec.types())

	final := rec.events[1]
	require.NotNil(t, final.RevisionID)
	raw, err := json.Marshal(final.Payload)
	require.NoError(t, err)
	var body struct {
		Itinerary struct {
			RevisionID  string `json:"revision_id"`
			TripProfile struct {
				DestinationCity string `json:"destination_city"`
			} `json:"trip_profile"`
			Days []json.RawMessage `json:"days"`
		} `json:"itinerary"`
		Explanation string `json:"explanation"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, *final.RevisionID, body.Itinerary.RevisionID)
	assert.Equal(t, "北京", body.Itinerary.TripProfile.DestinationCity)
	assert.Len(t, body.Itinerary.Days, 5)
	assert.Equal(t, body.Explanation, rec.events[2].Text)

	pending, err := f.gate.HasPending(ctx, turn.ConversationID)
	require.NoError(t, err)
	assert.False(t, pending)

	state, err = f.states.Get(ctx, turn.ConversationID)
	require.NoError(t, err)
	assert.True(t, state.HasItinerary())
	require.NotNil(t, state.CurrentRevisionID)
	assert.Equal(t, *final.RevisionID, *state.CurrentRevisionID)
	assert.Contains(t, string(state.TripProfile), `"destination_city":"北京"`)
	require.NotNil(t, state.UserID)
	assert.Equal(t, int64(7), *state.UserID)
}

func TestRouter_QueryGeneratesDirectly(t *testing.T) {
	f := newFixture(t, nil)

	rec, outcome, turn := f.handle(t, router.Request{Query: "上海 4 天，预算 6000，情侣"})
	assert.Equal(t, domain.OutcomeItinerary, outcome)
	assert.Equal(t, []domain.EventType{domain.EventIntentRouted, domain.EventFinalItinerary, ""}, rec.types())
	assert.Equal(t, "已基于你提供的约束生成 4 天的最小行程草案。", rec.events[2].Text)

	ids, err := f.gate.List(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, ids, turn.ConversationID)
}

func TestRouter_QueryModeRestartsEpisode(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, _, turn := f.handle(t, router.Request{Query: "去北京"})
	_, outcome, _ := f.handle(t, router.Request{Query: "5天", ConversationID: turn.ConversationID})
	assert.Equal(t, domain.OutcomeClarification, outcome)

	ep, err := f.gate.Pending(ctx, turn.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "5天", ep.InitialQuery, "query mode never continues an episode")
	assert.Empty(t, ep.Followups)
}

func TestRouter_ResumeWithoutPending(t *testing.T) {
	f := newFixture(t, nil)

	rec, outcome, _ := f.handle(t, router.Request{
		Query:          "去杭州 2天 预算2000",
		ConversationID: "resume-direct",
		Mode:           router.ModeResume,
	})
	assert.Equal(t, domain.OutcomeItinerary, outcome)
	assert.Equal(t, domain.EventFinalItinerary, rec.events[1].Type)

	// Nothing pending and constraints missing: the generator reports them.
	rec, outcome, _ = f.handle(t, router.Request{
		Query:          "去北京",
		ConversationID: "resume-missing",
		Mode:           router.ModeResume,
	})
	assert.Equal(t, domain.OutcomeFallbackText, outcome)
	require.Len(t, rec.events, 2)
	assert.Equal(t, domain.EventFinalText, rec.events[1].Type)
	assert.Equal(t, "为了生成结构化行程草案，请补充：行程天数、预算。", rec.events[1].Text)
}

func TestRouter_ResumeStillMissing(t *testing.T) {
	f := newFixture(t, nil)

	_, _, turn := f.handle(t, router.Request{Query: "去北京"})
	rec, outcome, _ := f.handle(t, router.Request{
		Query:          "5天",
		ConversationID: turn.ConversationID,
		Mode:           router.ModeResume,
	})
	assert.Equal(t, domain.OutcomeClarification, outcome)
	payload := rec.events[2].Payload.(clarify.Payload)
	assert.Equal(t, []domain.Field{domain.FieldBudget}, payload.MissingRequired)
}

func TestRouter_Reset(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, _, turn := f.handle(t, router.Request{Query: "上海 4 天，预算 6000"})
	_, err := f.gate.StartNew(ctx, turn.ConversationID, "去北京")
	require.NoError(t, err)

	rec, outcome, _ := f.handle(t, router.Request{Query: "重置", ConversationID: turn.ConversationID})
	assert.Equal(t, domain.OutcomeReset, outcome)
	assert.Equal(t, []domain.EventType{domain.EventIntentRouted, domain.EventResetDone}, rec.types())
	assert.Equal(t, router.TextResetDone, rec.events[1].Text)

	state, err := f.states.Get(ctx, turn.ConversationID)
	require.NoError(t, err)
	assert.False(t, state.HasItinerary())
	assert.Nil(t, state.CurrentRevisionID)
	require.NotNil(t, state.LastUserQuery)
	assert.Equal(t, "重置", *state.LastUserQuery)

	pending, err := f.gate.HasPending(ctx, turn.ConversationID)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestRouter_EditAndQA(t *testing.T) {
	f := newFixture(t, nil)

	rec, outcome, turn := f.handle(t, router.Request{Query: "把第2天改成博物馆"})
	assert.Equal(t, domain.OutcomeDeferred, outcome)
	assert.Equal(t, []domain.EventType{domain.EventIntentRouted, domain.EventFinalText}, rec.types())
	assert.Equal(t, router.TextNoItinerary, rec.events[1].Text)

	_, _, _ = f.handle(t, router.Request{Query: "上海 4 天，预算 6000", ConversationID: turn.ConversationID})

	rec, _, _ = f.handle(t, router.Request{Query: "把第2天改成博物馆", ConversationID: turn.ConversationID})
	assert.Equal(t, "已识别编辑意图，下一步将接入 patch 编辑引擎执行结构化修改。", rec.events[1].Text)

	rec, _, _ = f.handle(t, router.Request{Query: "外滩几点开放", ConversationID: turn.ConversationID})
	assert.Equal(t, domain.EventFinalText, rec.events[1].Type)
	assert.Equal(t, "已识别问答意图，下一步将接入行程问答分支。", rec.events[1].Text)
}

type echoEngine struct{}

func (echoEngine) Reply(_ context.Context, req router.EngineRequest) (string, error) {
	return fmt.Sprintf("%s:%s", req.Analysis.IntentDetail, req.ConversationID), nil
}

func TestRouter_CustomEngine(t *testing.T) {
	f := newFixture(t, nil, router.WithEngine(domain.IntentQA, echoEngine{}))

	_, _, turn := f.handle(t, router.Request{Query: "上海 4 天，预算 6000"})
	rec, _, _ := f.handle(t, router.Request{Query: "为什么推荐外滩", ConversationID: turn.ConversationID})
	assert.Equal(t, "qa_evidence:"+turn.ConversationID, rec.events[1].Text)
}

func TestRouter_NilEngineKeepsDefault(t *testing.T) {
	f := newFixture(t, nil, router.WithEngine(domain.IntentQA, nil))

	_, _, turn := f.handle(t, router.Request{Query: "上海 4 天，预算 6000"})
	rec, outcome, _ := f.handle(t, router.Request{Query: "外滩几点开放", ConversationID: turn.ConversationID})
	assert.Equal(t, domain.OutcomeDeferred, outcome)
	assert.Equal(t, "已识别问答意图，下一步将接入行程问答分支。", rec.events[1].Text)
}

type stubGenerator struct {
	res *ports.DraftResult
	err error
}

func (s stubGenerator) Generate(context.Context, ports.DraftRequest) (*ports.DraftResult, error) {
	return s.res, s.err
}

func TestRouter_GeneratorFailure(t *testing.T) {
	f := newFixture(t, stubGenerator{err: errors.New("upstream timeout")})

	rec, outcome, turn := f.handle(t, router.Request{Query: "上海 4 天，预算 6000"})
	assert.Equal(t, domain.OutcomeFailed, outcome)
	assert.Equal(t, []domain.EventType{domain.EventIntentRouted, domain.EventError}, rec.types())
	assert.Equal(t, router.TextDraftFailed, rec.events[1].Text)

	state, err := f.states.Get(context.Background(), turn.ConversationID)
	require.NoError(t, err)
	assert.False(t, state.HasItinerary())
}

func TestRouter_GeneratorEmptyResult(t *testing.T) {
	f := newFixture(t, stubGenerator{res: &ports.DraftResult{}})

	rec, outcome, _ := f.handle(t, router.Request{Query: "上海 4 天，预算 6000"})
	assert.Equal(t, domain.OutcomeFallbackText, outcome)
	assert.Equal(t, router.TextDraftFallback, rec.events[1].Text)
}

type failingStates struct {
	*memory.StateStore
}

func (failingStates) Upsert(context.Context, string, domain.StateUpdate) (*domain.ConversationState, error) {
	return nil, errors.New("database is down")
}

func TestRouter_PersistFailureDoesNotAbort(t *testing.T) {
	var (
		mu      sync.Mutex
		persist []*domain.PersistEvent
		ended   *domain.TurnEvent
		started int
	)
	hooks := domain.LifecycleHooks{
		OnTurnStart: func(_ context.Context, _ *domain.TurnEvent) { started++ },
		OnTurnEnd:   func(_ context.Context, e *domain.TurnEvent) { ended = e },
		OnPersist: func(_ context.Context, e *domain.PersistEvent) {
			mu.Lock()
			defer mu.Unlock()
			persist = append(persist, e)
		},
	}
	f := newFixtureWithStates(t, failingStates{memory.NewStateStore()}, nil, router.WithLifecycleHooks(hooks))

	rec, outcome, _ := f.handle(t, router.Request{Query: "上海 4 天，预算 6000"})
	assert.Equal(t, domain.OutcomeItinerary, outcome)
	assert.Equal(t, []domain.EventType{domain.EventIntentRouted, domain.EventFinalItinerary, ""}, rec.types())

	require.Len(t, persist, 2)
	assert.Equal(t, router.OpRecordQuery, persist[0].Operation)
	assert.Error(t, persist[0].Err)
	assert.Equal(t, router.OpSaveItinerary, persist[1].Operation)
	assert.Error(t, persist[1].Err)

	assert.Equal(t, 1, started)
	require.NotNil(t, ended)
	assert.Equal(t, domain.OutcomeItinerary, ended.Outcome)
	assert.Equal(t, domain.IntentCreate, ended.Intent)
}

func TestRouter_EmitterFailure(t *testing.T) {
	f := newFixture(t, nil)
	turn, err := f.router.NewTurn(router.Request{Query: "上海 4 天，预算 6000"})
	require.NoError(t, err)

	gone := errors.New("client went away")
	outcome, err := f.router.Handle(context.Background(), turn, router.EmitterFunc(func(sse.Event) error {
		return gone
	}))
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, domain.OutcomeFailed, outcome)
}

func TestRouter_NewTurn(t *testing.T) {
	n := 0
	f := newFixture(t, nil, router.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))

	turn, err := f.router.NewTurn(router.Request{Query: "去北京"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", turn.ConversationID)
	assert.Equal(t, "id-2", turn.RequestID)
	assert.Equal(t, router.ModeQuery, turn.Mode)

	turn, err = f.router.NewTurn(router.Request{Query: "去北京", ConversationID: "given"})
	require.NoError(t, err)
	assert.Equal(t, "given", turn.ConversationID)

	_, err = f.router.NewTurn(router.Request{Query: "  "})
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)

	_, err = f.router.NewTurn(router.Request{Query: "5天", Mode: router.ModeResume})
	assert.ErrorIs(t, err, router.ErrConversationRequired)

	turn, err = f.router.NewTurn(router.Request{Query: "去\x1b北京\x00"})
	require.NoError(t, err)
	assert.Equal(t, "去北京", turn.Query)

	_, err = f.router.NewTurn(router.Request{Query: strings.Repeat("a", qp.DefaultMaxInputSize+1)})
	assert.ErrorIs(t, err, qp.ErrInputTooLarge)
}

func TestRouter_State(t *testing.T) {
	f := newFixture(t, nil)

	state, err := f.router.State(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, state)

	_, _, turn := f.handle(t, router.Request{Query: "上海 4 天，预算 6000"})
	state, err = f.router.State(context.Background(), turn.ConversationID)
	require.NoError(t, err)
	assert.True(t, state.HasItinerary())
}

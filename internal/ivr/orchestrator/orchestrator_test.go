package orchestrator

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/Hurricane0017/agri-advisor/config"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/finding"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/query"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/specialist"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/transcript"
	"github.com/Hurricane0017/agri-advisor/llm"
	"github.com/Hurricane0017/agri-advisor/schema"
)

// fakeModel is a minimal llm.ChatModel test double, mirroring the one in
// internal/ivr/specialist's tests.
type fakeModel struct {
	reply string
	err   error
}

var _ llm.ChatModel = (*fakeModel)(nil)

func (f *fakeModel) Generate(ctx context.Context, msgs []schema.Message, opts ...llm.GenerateOption) (*schema.AIMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return schema.NewAIMessage(f.reply), nil
}
func (f *fakeModel) Stream(ctx context.Context, msgs []schema.Message, opts ...llm.GenerateOption) iter.Seq2[schema.StreamChunk, error] {
	return func(yield func(schema.StreamChunk, error) bool) {}
}
func (f *fakeModel) BindTools(tools []schema.ToolDefinition) llm.ChatModel { return f }
func (f *fakeModel) ModelID() string                                      { return "fake" }

// stubSpecialist returns a fixed finding for whatever tag it is registered
// under, regardless of query text, so dispatch can be exercised without a
// real domain specialist.
type stubSpecialist struct {
	tag    query.Agent
	status finding.Status
	delay  time.Duration
}

func (s *stubSpecialist) Tag() query.Agent { return s.tag }

func (s *stubSpecialist) Process(ctx context.Context, queryText string, p profile.FarmerProfile, mode specialist.Mode) (finding.AgentFinding, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return finding.AgentFinding{Agent: string(s.tag), Status: finding.Failed, Err: ctx.Err()}, nil
		}
	}
	f := finding.AgentFinding{Agent: string(s.tag), Pipeline: string(mode), Status: s.status, Timestamp: time.Now().UTC()}
	if s.status == finding.Ok {
		f.Prose = string(s.tag) + " finding"
		f.Insights = map[string]any{}
	}
	return f, nil
}

var _ specialist.Specialist = (*stubSpecialist)(nil)

func testTranscript(text string) transcript.Transcript {
	return transcript.Transcript{
		AudioTaskID:   "call1",
		Transcription: transcript.Transcription{Transcript: text, Language: "hi"},
		Success:       true,
	}
}

func TestOrchestrator_Handle_SpecificPipelineUsesRequiredAgentsOnly(t *testing.T) {
	o := &Orchestrator{
		LLM:      &fakeModel{reply: `{"pipeline_kind":"specific","confidence":0.9,"required_agents":["weather"],"urgency":"normal","complexity":"focused"}`},
		Registry: specialist.NewRegistry(&stubSpecialist{tag: query.Weather, status: finding.Ok}, &stubSpecialist{tag: query.Soil, status: finding.Ok}),
		Cfg:      config.Config{MaxConcurrentAgents: 4, SpecialistDeadline: time.Second},
	}

	result, err := o.Handle(context.Background(), testTranscript("will it rain tomorrow, phone 9876543210"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Query.PipelineKind != query.Specific {
		t.Fatalf("expected Specific pipeline, got %v", result.Query.PipelineKind)
	}
	if len(result.Findings) != 1 || result.Findings[0].Agent != string(query.Weather) {
		t.Fatalf("expected only the weather finding, got %+v", result.Findings)
	}
	if result.Answer == "" {
		t.Error("expected a non-empty Specific-mode answer")
	}
}

func TestOrchestrator_Handle_GenericPipelineBuildsRoadmapAndHyperlocal(t *testing.T) {
	o := &Orchestrator{
		LLM:      nil, // forces keyword classification fallback
		Registry: specialist.NewRegistry(&stubSpecialist{tag: query.Weather, status: finding.Ok}, &stubSpecialist{tag: query.Soil, status: finding.Ok}, &stubSpecialist{tag: query.Pest, status: finding.Empty}, &stubSpecialist{tag: query.Scheme, status: finding.Ok}),
		Cfg:      config.Config{MaxConcurrentAgents: 4, SpecialistDeadline: time.Second},
	}

	result, err := o.Handle(context.Background(), testTranscript("general guidance please for my farm this season"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Query.PipelineKind != query.Generic {
		t.Fatalf("expected Generic pipeline from keyword fallback, got %v", result.Query.PipelineKind)
	}
	if len(result.Findings) != 4 {
		t.Fatalf("expected all four specialists dispatched, got %d", len(result.Findings))
	}
	if result.Roadmap == nil || result.Hyperlocal == nil {
		t.Fatal("expected Roadmap and Hyperlocal to be built for Generic mode")
	}
	if result.Strategy == "" {
		t.Error("expected a non-empty comprehensive strategy")
	}
}

func TestOrchestrator_Handle_FailsWhenNoSpecialistReturnsOk(t *testing.T) {
	o := &Orchestrator{
		Registry: specialist.NewRegistry(&stubSpecialist{tag: query.Weather, status: finding.Failed}),
		Cfg:      config.Config{MaxConcurrentAgents: 4, SpecialistDeadline: time.Second},
	}

	_, err := o.Handle(context.Background(), testTranscript("rain forecast"))
	if err == nil {
		t.Fatal("expected an error when every dispatched specialist fails")
	}
}

func TestOrchestrator_Dispatch_UnregisteredAgentIsSkippedNotFatal(t *testing.T) {
	o := &Orchestrator{
		Registry: specialist.NewRegistry(&stubSpecialist{tag: query.Weather, status: finding.Ok}),
		Cfg:      config.Config{MaxConcurrentAgents: 4, SpecialistDeadline: time.Second},
	}

	q := query.Query{ExtractedQuestion: "x", PipelineKind: query.Specific, RequiredAgents: []query.Agent{query.Weather, query.Pest}}
	findings, err := o.dispatch(context.Background(), q, profile.FarmerProfile{})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected only the registered specialist's finding, got %d", len(findings))
	}
}

func TestOrchestrator_ResolveProfile_NoPhoneAssignsEphemeralID(t *testing.T) {
	o := &Orchestrator{}
	p := o.resolveProfile(context.Background(), testTranscript("no phone number mentioned here"))
	if !p.Ephemeral {
		t.Fatal("expected profile to be marked ephemeral")
	}
	if p.EphemeralID == "" {
		t.Error("expected a synthetic EphemeralID to be assigned")
	}
}

func TestOrchestrator_ResolveProfile_PhonePersistsViaStore(t *testing.T) {
	store := newMemoryStore()
	o := &Orchestrator{
		ProfileStore: store,
		LLM:          &fakeModel{reply: `{"name":"Ram","phone":"9876543210","pincode":"110001"}`},
	}

	p := o.resolveProfile(context.Background(), testTranscript("my number is 9876543210"))
	if p.Phone != "9876543210" {
		t.Fatalf("expected extracted phone, got %q", p.Phone)
	}
	if p.Ephemeral {
		t.Error("a profile with a phone number must not be ephemeral")
	}

	stored, ok, err := store.Get(context.Background(), "9876543210")
	if err != nil || !ok {
		t.Fatalf("expected profile persisted to store, ok=%v err=%v", ok, err)
	}
	if stored.Phone != "9876543210" {
		t.Errorf("stored profile phone = %q", stored.Phone)
	}
}

// memoryStore is a minimal profile.Store test double.
type memoryStore struct {
	data map[string]profile.FarmerProfile
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]profile.FarmerProfile)}
}

func (m *memoryStore) Get(ctx context.Context, phone string) (profile.FarmerProfile, bool, error) {
	p, ok := m.data[phone]
	return p, ok, nil
}

func (m *memoryStore) Put(ctx context.Context, p profile.FarmerProfile) error {
	if p.Phone == "" {
		return nil
	}
	m.data[p.Phone] = p
	return nil
}

var _ profile.Store = (*memoryStore)(nil)

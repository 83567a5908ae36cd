package qa_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/TopicQA/internal/config"
	"github.com/akolanti/TopicQA/internal/domain/topicModel"
	"github.com/akolanti/TopicQA/internal/indexer"
	"github.com/akolanti/TopicQA/internal/qa"
)

func readyTopic(id string) topicModel.Topic {
	return topicModel.Topic{
		Id:              id,
		Title:           "Financial Conduct Handbook",
		RawStorageKey:   "topics/" + id + "/handbook.pdf",
		BucketRef:       "test-bucket",
		Status:          topicModel.StatusReady,
		IndexPipelineId: "pipeline-1",
		IndexFileId:     "file-1",
	}
}

func TestRunIndexing_Scenarios(t *testing.T) {
	tests := []struct {
		name             string
		initialTopic     *topicModel.Topic
		setupMocks       func(g *MockIndexingGateway)
		expectSuccess    bool
		expectedErr      error
		expectedStatus   topicModel.TopicStatus
		expectedPipeline string
	}{
		{
			name:             "Success_From_Pending",
			initialTopic:     &topicModel.Topic{Id: "t1", Title: "Handbook", Status: topicModel.StatusPending},
			setupMocks:       func(g *MockIndexingGateway) {},
			expectSuccess:    true,
			expectedStatus:   topicModel.StatusReady,
			expectedPipeline: "pipeline-default",
		},
		{
			name:         "Success_Retry_From_Failed",
			initialTopic: &topicModel.Topic{Id: "t1", Title: "Handbook", Status: topicModel.StatusFailed, LastError: "old failure"},
			setupMocks: func(g *MockIndexingGateway) {
				g.OnBeginIndexing = func(ctx context.Context, topicId, bucketRef, storageKey, title string) (indexer.IndexResult, error) {
					return indexer.IndexResult{PipelineId: "pipeline-2", FileId: "file-2"}, nil
				}
			},
			expectSuccess:    true,
			expectedStatus:   topicModel.StatusReady,
			expectedPipeline: "pipeline-2",
		},
		{
			name:         "Unknown_Topic",
			initialTopic: nil,
			setupMocks:   func(g *MockIndexingGateway) {},
			expectedErr:  qa.ErrTopicNotFound,
		},
		{
			name:             "Conflict_Already_Ready",
			initialTopic:     func() *topicModel.Topic { tp := readyTopic("t1"); return &tp }(),
			setupMocks:       func(g *MockIndexingGateway) {},
			expectedErr:      topicModel.ErrStatusConflict,
			expectedStatus:   topicModel.StatusReady,
			expectedPipeline: "pipeline-1",
		},
		{
			// another worker owns the INDEXING state, this attempt loses
			name:           "Conflict_Concurrent_Indexing",
			initialTopic:   &topicModel.Topic{Id: "t1", Title: "Handbook", Status: topicModel.StatusIndexing},
			setupMocks:     func(g *MockIndexingGateway) {},
			expectedErr:    topicModel.ErrStatusConflict,
			expectedStatus: topicModel.StatusIndexing,
		},
		{
			name:         "Failure_Pipeline_Create",
			initialTopic: &topicModel.Topic{Id: "t1", Title: "Handbook", Status: topicModel.StatusPending},
			setupMocks: func(g *MockIndexingGateway) {
				g.OnBeginIndexing = func(ctx context.Context, topicId, bucketRef, storageKey, title string) (indexer.IndexResult, error) {
					return indexer.IndexResult{}, &indexer.ServiceError{Step: indexer.StepPipelineCreate, StatusCode: 400, Body: "bad request"}
				}
			},
			expectedStatus:   topicModel.StatusFailed,
			expectedPipeline: "",
		},
		{
			name:         "Failure_Attach_Keeps_Pipeline_Id",
			initialTopic: &topicModel.Topic{Id: "t1", Title: "Handbook", Status: topicModel.StatusPending},
			setupMocks: func(g *MockIndexingGateway) {
				g.OnBeginIndexing = func(ctx context.Context, topicId, bucketRef, storageKey, title string) (indexer.IndexResult, error) {
					return indexer.IndexResult{PipelineId: "pipeline-orphan"}, &indexer.ServiceError{Step: indexer.StepFileAttach, StatusCode: 500, Body: "upstream down"}
				}
			},
			expectedStatus:   topicModel.StatusFailed,
			expectedPipeline: "pipeline-orphan",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMockTopicStore()
			if tt.initialTopic != nil {
				store.Topics[tt.initialTopic.Id] = *tt.initialTopic
			}
			gateway := &MockIndexingGateway{}
			tt.setupMocks(gateway)

			s := qa.NewService(store, gateway, &MockRetrievalGateway{}, &MockLLM{})

			ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
			outcome := s.RunIndexing(ctx, "t1")

			if outcome.Success != tt.expectSuccess {
				t.Errorf("Success got %v, want %v", outcome.Success, tt.expectSuccess)
			}
			if tt.expectedErr != nil && !errors.Is(outcome.Err, tt.expectedErr) {
				t.Errorf("Err got %v, want %v", outcome.Err, tt.expectedErr)
			}
			if !tt.expectSuccess && tt.expectedErr == nil && outcome.Err == nil {
				t.Error("expected an error, got none")
			}

			if tt.initialTopic == nil {
				return
			}
			stored, _ := store.GetTopic(ctx, "t1")
			if tt.expectedStatus != "" && stored.Status != tt.expectedStatus {
				t.Errorf("Status got %s, want %s", stored.Status, tt.expectedStatus)
			}
			if stored.Status == topicModel.StatusIndexing && tt.expectedStatus != topicModel.StatusIndexing {
				t.Error("topic must never be left in INDEXING after RunIndexing returns")
			}
			if stored.IndexPipelineId != tt.expectedPipeline {
				t.Errorf("IndexPipelineId got %q, want %q", stored.IndexPipelineId, tt.expectedPipeline)
			}
			if tt.expectSuccess {
				if stored.LastError != "" {
					t.Errorf("LastError should be cleared on success, got %q", stored.LastError)
				}
				if stored.IndexedAt.IsZero() {
					t.Error("IndexedAt should be set on success")
				}
			}
			if tt.expectedStatus == topicModel.StatusFailed && stored.LastError == "" {
				t.Error("LastError should be recorded on failure")
			}
		})
	}
}

func TestAnswerQuery_Preconditions(t *testing.T) {
	tests := []struct {
		name     string
		topic    *topicModel.Topic
		checkErr func(t *testing.T, err error)
	}{
		{
			name:  "Topic_Not_Found",
			topic: nil,
			checkErr: func(t *testing.T, err error) {
				if !errors.Is(err, qa.ErrTopicNotFound) {
					t.Errorf("got %v, want ErrTopicNotFound", err)
				}
			},
		},
		{
			name:  "Topic_Still_Indexing",
			topic: &topicModel.Topic{Id: "t1", Status: topicModel.StatusIndexing},
			checkErr: func(t *testing.T, err error) {
				var notReady *qa.NotReadyError
				if !errors.As(err, &notReady) {
					t.Fatalf("got %v, want NotReadyError", err)
				}
				if notReady.Status != topicModel.StatusIndexing {
					t.Errorf("Status got %s, want INDEXING", notReady.Status)
				}
			},
		},
		{
			name:  "Topic_Failed",
			topic: &topicModel.Topic{Id: "t1", Status: topicModel.StatusFailed},
			checkErr: func(t *testing.T, err error) {
				var notReady *qa.NotReadyError
				if !errors.As(err, &notReady) {
					t.Fatalf("got %v, want NotReadyError", err)
				}
			},
		},
		{
			name:  "Ready_Without_Pipeline",
			topic: &topicModel.Topic{Id: "t1", Status: topicModel.StatusReady},
			checkErr: func(t *testing.T, err error) {
				if !errors.Is(err, qa.ErrPipelineMissing) {
					t.Errorf("got %v, want ErrPipelineMissing", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMockTopicStore()
			if tt.topic != nil {
				store.Topics[tt.topic.Id] = *tt.topic
			}
			retrievalCalled := false
			retrieval := &MockRetrievalGateway{
				OnRetrieve: func(ctx context.Context, pipelineId, query string, topK int) ([]indexer.Passage, error) {
					retrievalCalled = true
					return nil, nil
				},
			}

			s := qa.NewService(store, &MockIndexingGateway{}, retrieval, &MockLLM{})

			_, err := s.AnswerQuery(context.Background(), "t1", "what is rule 4?", 0)
			if err == nil {
				t.Fatal("expected an error")
			}
			tt.checkErr(t, err)
			if retrievalCalled {
				t.Error("retrieval must not run when preconditions fail")
			}
		})
	}
}

func TestAnswerQuery_NoPassages(t *testing.T) {
	store := NewMockTopicStore(readyTopic("t1"))
	retrieval := &MockRetrievalGateway{
		OnRetrieve: func(ctx context.Context, pipelineId, query string, topK int) ([]indexer.Passage, error) {
			return []indexer.Passage{}, nil
		},
	}
	synthCalled := false
	llm := &MockLLM{
		OnSynthesize: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			synthCalled = true
			return "should not happen", nil
		},
	}

	s := qa.NewService(store, &MockIndexingGateway{}, retrieval, llm)

	result, err := s.AnswerQuery(context.Background(), "t1", "unrelated question", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != config.NoAnswerText {
		t.Errorf("Answer got %q, want the canned no-answer text", result.Answer)
	}
	if result.Citations == nil || len(result.Citations) != 0 {
		t.Errorf("Citations should be an empty slice, got %v", result.Citations)
	}
	if result.Metadata.NodesRetrieved != 0 {
		t.Errorf("NodesRetrieved got %d, want 0", result.Metadata.NodesRetrieved)
	}
	if synthCalled {
		t.Error("LLM must not be called when no passages were retrieved")
	}
}

func TestAnswerQuery_CitedAnswer(t *testing.T) {
	store := NewMockTopicStore(readyTopic("t1"))

	longText := strings.Repeat("x", config.ExcerptLimit+50)
	passages := []indexer.Passage{
		{Text: "Joint capital qualifications are set out in section 3.", Score: 0.91, PageLabel: "12", FileName: "handbook.pdf"},
		{Text: longText, Score: 0.87, PageLabel: "45", FileName: "handbook.pdf"},
	}

	var seenTopK int
	var seenPipeline string
	retrieval := &MockRetrievalGateway{
		OnRetrieve: func(ctx context.Context, pipelineId, query string, topK int) ([]indexer.Passage, error) {
			seenPipeline = pipelineId
			seenTopK = topK
			return passages, nil
		},
	}
	var seenPrompt string
	llm := &MockLLM{
		OnSynthesize: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
			seenPrompt = userPrompt
			return "Both spouses must qualify individually (Page 12).", nil
		},
	}

	s := qa.NewService(store, &MockIndexingGateway{}, retrieval, llm)

	result, err := s.AnswerQuery(context.Background(), "t1", "who must qualify?", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if seenPipeline != "pipeline-1" {
		t.Errorf("retrieval pipeline got %q, want pipeline-1", seenPipeline)
	}
	if seenTopK != config.QueryTopK {
		t.Errorf("topK got %d, want default %d", seenTopK, config.QueryTopK)
	}
	if result.Answer != "Both spouses must qualify individually (Page 12)." {
		t.Errorf("Answer got %q", result.Answer)
	}
	if len(result.Citations) != 2 {
		t.Fatalf("Citations got %d, want 2", len(result.Citations))
	}
	for i, c := range result.Citations {
		if c.Ordinal != i+1 {
			t.Errorf("Citation %d Ordinal got %d, want %d", i, c.Ordinal, i+1)
		}
	}
	if result.Citations[0].Page != "12" || result.Citations[1].Page != "45" {
		t.Errorf("Pages got %s and %s, want 12 and 45", result.Citations[0].Page, result.Citations[1].Page)
	}
	if result.Citations[0].Excerpt != passages[0].Text {
		t.Errorf("short excerpt must be untouched, got %q", result.Citations[0].Excerpt)
	}
	wantExcerpt := longText[:config.ExcerptLimit] + "..."
	if result.Citations[1].Excerpt != wantExcerpt {
		t.Errorf("long excerpt should be truncated to %d chars plus ellipsis", config.ExcerptLimit)
	}
	if result.Metadata.NodesRetrieved != len(result.Citations) {
		t.Errorf("NodesRetrieved %d must match citation count %d", result.Metadata.NodesRetrieved, len(result.Citations))
	}
	if result.Metadata.TopicTitle != "Financial Conduct Handbook" {
		t.Errorf("TopicTitle got %q", result.Metadata.TopicTitle)
	}
	if !strings.Contains(seenPrompt, "[1] (Page 12, handbook.pdf)") {
		t.Errorf("prompt is missing the numbered page-labeled block, got %q", seenPrompt)
	}
	if !strings.Contains(seenPrompt, "User Question: who must qualify?") {
		t.Errorf("prompt is missing the user question, got %q", seenPrompt)
	}
}

func TestAnswerQuery_StepFailures(t *testing.T) {
	t.Run("Retrieval_Failure", func(t *testing.T) {
		store := NewMockTopicStore(readyTopic("t1"))
		retrieval := &MockRetrievalGateway{
			OnRetrieve: func(ctx context.Context, pipelineId, query string, topK int) ([]indexer.Passage, error) {
				return nil, &indexer.ServiceError{Step: indexer.StepRetrieve, StatusCode: 502, Body: "bad gateway"}
			},
		}
		s := qa.NewService(store, &MockIndexingGateway{}, retrieval, &MockLLM{})

		_, err := s.AnswerQuery(context.Background(), "t1", "q", 0)
		if indexer.StepOf(err) != indexer.StepRetrieve {
			t.Errorf("got %v, want RETRIEVAL step error", err)
		}
	})

	t.Run("Synthesis_Failure", func(t *testing.T) {
		store := NewMockTopicStore(readyTopic("t1"))
		llm := &MockLLM{
			OnSynthesize: func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
				return "", errors.New("provider down")
			},
		}
		s := qa.NewService(store, &MockIndexingGateway{}, &MockRetrievalGateway{}, llm)

		_, err := s.AnswerQuery(context.Background(), "t1", "q", 0)
		if err == nil || err.Error() != "provider down" {
			t.Errorf("got %v, want provider down", err)
		}
	})
}

func TestRetrieve_Diagnostic(t *testing.T) {
	store := NewMockTopicStore(readyTopic("t1"))

	var seenTopK int
	retrieval := &MockRetrievalGateway{
		OnRetrieve: func(ctx context.Context, pipelineId, query string, topK int) ([]indexer.Passage, error) {
			seenTopK = topK
			return []indexer.Passage{{Text: "raw passage", PageLabel: "3", FileName: "handbook.pdf", Score: 0.7}}, nil
		},
	}
	s := qa.NewService(store, &MockIndexingGateway{}, retrieval, &MockLLM{})

	passages, err := s.Retrieve(context.Background(), "t1", "q", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seenTopK != config.DiagnosticTopK {
		t.Errorf("topK got %d, want diagnostic default %d", seenTopK, config.DiagnosticTopK)
	}
	if len(passages) != 1 || passages[0].Text != "raw passage" {
		t.Errorf("passages got %v", passages)
	}

	t.Run("Explicit_TopK_Passes_Through", func(t *testing.T) {
		if _, err := s.Retrieve(context.Background(), "t1", "q", 3); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seenTopK != 3 {
			t.Errorf("topK got %d, want 3", seenTopK)
		}
	})
}

package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/unicore-lms/aicore/internal/artifacts"
	"github.com/unicore-lms/aicore/internal/chunker"
	"github.com/unicore-lms/aicore/internal/models"
	"github.com/unicore-lms/aicore/internal/settings"
	"github.com/unicore-lms/aicore/internal/usage"
)

// Artifact categories.
const (
	CategorySummary   = "summary"
	CategoryQuestions = "questions"
	CategoryChat      = "chat"
)

const (
	defaultSummaryWords = 500
	chunkSummaryWords   = 200
	answerMaxTokens     = 1000
	questionsMaxTokens  = 4000
)

// apologyAnswer is returned when interactive Q&A cannot reach upstream.
const apologyAnswer = "عذراً، حدث خطأ أثناء معالجة سؤالك. يرجى المحاولة مرة أخرى."

// Service composes extraction, chunking, completion, parsing, and
// artifact persistence into the public generation operations.
type Service struct {
	db       *gorm.DB
	client   Completer
	settings *settings.Service
	usage    *usage.Recorder
	store    *artifacts.Store
	cache    *resultCache
	nowFn    func() time.Time
}

// NewService wires the orchestrator. All collaborators are required
// except store, which may be nil when artifact persistence is disabled.
func NewService(conn *gorm.DB, client Completer, svc *settings.Service, recorder *usage.Recorder, store *artifacts.Store) *Service {
	return &Service{
		db:       conn,
		client:   client,
		settings: svc,
		usage:    recorder,
		store:    store,
		cache:    newResultCache(),
		nowFn:    time.Now,
	}
}

// SummarizeRequest describes one summarization call.
type SummarizeRequest struct {
	Actor        string
	DocumentID   uint64
	SourceTitle  string
	Text         string
	MaxWords     int
	Instructions string
}

// SummaryResult is the outcome of Summarize. Degraded marks the local
// fallback summarizer path.
type SummaryResult struct {
	Summary      string `json:"summary"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	JobReference string `json:"job_reference"`
	Degraded     bool   `json:"degraded"`
	Cached       bool   `json:"cached"`
	TokensUsed   int    `json:"tokens_used"`
}

// Summarize produces a Markdown summary of the source text. Texts that
// span several chunks are summarized per chunk and combined; individual
// chunk failures are skipped. If every upstream attempt fails the
// deterministic local summarizer supplies a degraded result, so the
// operation returns an error only for the administrative kill switch or
// empty input.
func (s *Service) Summarize(ctx context.Context, req SummarizeRequest) (SummaryResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return SummaryResult{}, errors.New("empty source text")
	}
	maxWords := req.MaxWords
	if maxWords <= 0 {
		maxWords = defaultSummaryWords
	}

	job := s.createJob(ctx, req.Actor, req.DocumentID, models.JobKindSummary, nil, req.Instructions)

	key := cacheKey("summary", text, maxWords, req.Instructions)
	if hit, ok := s.cache.get(key); ok {
		if result, ok := hit.(SummaryResult); ok {
			result.Cached = true
			result.JobReference = jobReference(job)
			s.recordUsage(ctx, req.Actor, models.RequestKindSummary, 0, true, true, "", 0)
			s.completeJob(ctx, job, result.ArtifactPath)
			return result, nil
		}
	}

	s.startJob(ctx, job)

	cfg := s.settings.Generation(ctx)
	chunks, err := chunker.Split(text, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		s.failJob(ctx, job, err.Error())
		return SummaryResult{}, fmt.Errorf("chunk source text: %w", err)
	}

	summary, tokens, credID, degraded, err := s.summarizeChunks(ctx, req, chunks, text, maxWords)
	if err != nil {
		s.recordUsage(ctx, req.Actor, models.RequestKindSummary, 0, false, false, err.Error(), 0)
		s.failJob(ctx, job, err.Error())
		return SummaryResult{}, err
	}

	result := SummaryResult{
		Summary:      summary,
		JobReference: jobReference(job),
		Degraded:     degraded,
		TokensUsed:   tokens,
	}
	if s.store != nil {
		path, saveErr := s.store.Save(CategorySummary, req.DocumentID, summary, s.artifactMeta(req.SourceTitle, cfg.ActiveModel, nil))
		if saveErr != nil {
			log.WithError(saveErr).Warn("summary artifact save failed")
		} else {
			result.ArtifactPath = path
		}
	}
	errDetail := ""
	if degraded {
		errDetail = "degraded: local fallback summary"
	}
	s.recordUsage(ctx, req.Actor, models.RequestKindSummary, tokens, false, !degraded, errDetail, credID)
	s.completeJob(ctx, job, result.ArtifactPath)
	if !degraded {
		s.cache.put(key, result)
	}
	return result, nil
}

// summarizeChunks runs the single-chunk or map-reduce summary flow.
func (s *Service) summarizeChunks(ctx context.Context, req SummarizeRequest, chunks []string, text string, maxWords int) (summary string, tokens int, credID uint64, degraded bool, err error) {
	if len(chunks) <= 1 {
		resp, callErr := s.client.Complete(ctx, Request{
			Actor:        req.Actor,
			SystemPrompt: summarySystemPrompt,
			Prompt:       summaryPrompt(text, maxWords, req.Instructions),
			MaxTokens:    maxWords * 3,
		})
		if callErr != nil {
			if errors.Is(callErr, ErrServiceDisabled) {
				return "", 0, 0, false, callErr
			}
			log.WithError(callErr).Warn("summary generation failed, using local fallback")
			return localSummary(text, maxWords*4), 0, 0, true, nil
		}
		return resp.Content, resp.TokensUsed, resp.CredentialID, false, nil
	}

	var parts []string
	for i, chunk := range chunks {
		note := fmt.Sprintf("هذا الجزء %d من %d. %s", i+1, len(chunks), req.Instructions)
		resp, callErr := s.client.Complete(ctx, Request{
			Actor:        req.Actor,
			SystemPrompt: summarySystemPrompt,
			Prompt:       summaryPrompt(chunk, chunkSummaryWords, note),
			MaxTokens:    chunkSummaryWords * 3,
		})
		if callErr != nil {
			if errors.Is(callErr, ErrServiceDisabled) {
				return "", 0, 0, false, callErr
			}
			log.WithError(callErr).WithField("chunk", i+1).Warn("chunk summary failed, skipping")
			continue
		}
		parts = append(parts, resp.Content)
		tokens += resp.TokensUsed
		credID = resp.CredentialID
	}
	if len(parts) == 0 {
		return localSummary(text, maxWords*4), 0, 0, true, nil
	}

	combineNote := fmt.Sprintf("هذا ملخص مُجمَّع من %d أجزاء. أعد صياغته كملخص متماسك واحد. %s", len(chunks), req.Instructions)
	resp, callErr := s.client.Complete(ctx, Request{
		Actor:        req.Actor,
		SystemPrompt: summarySystemPrompt,
		Prompt:       summaryPrompt(strings.Join(parts, "\n\n"), maxWords, combineNote),
		MaxTokens:    maxWords * 3,
	})
	if callErr != nil {
		if errors.Is(callErr, ErrServiceDisabled) {
			return "", 0, 0, false, callErr
		}
		// The per-chunk summaries are still usable as-is.
		log.WithError(callErr).Warn("combine pass failed, returning joined chunk summaries")
		return strings.Join(parts, "\n\n"), tokens, credID, false, nil
	}
	return resp.Content, tokens + resp.TokensUsed, resp.CredentialID, false, nil
}

// QuestionsRequest describes one question-generation call.
type QuestionsRequest struct {
	Actor        string
	DocumentID   uint64
	SourceTitle  string
	Text         string
	Matrix       QuestionMatrix
	Instructions string
}

// QuestionsResult is the outcome of GenerateQuestions.
type QuestionsResult struct {
	Questions    []Question `json:"questions"`
	ArtifactPath string     `json:"artifact_path,omitempty"`
	JobReference string     `json:"job_reference"`
	Cached       bool       `json:"cached"`
	TokensUsed   int        `json:"tokens_used"`
}

// GenerateQuestions produces a question list per the matrix. A failed
// upstream call yields an empty list with the error attached to the
// job; no placeholder questions are fabricated.
func (s *Service) GenerateQuestions(ctx context.Context, req QuestionsRequest) (QuestionsResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return QuestionsResult{}, errors.New("empty source text")
	}
	if req.Matrix.TotalQuestions() == 0 {
		return QuestionsResult{Questions: nil}, nil
	}

	matrixJSON, _ := json.Marshal(req.Matrix)
	job := s.createJob(ctx, req.Actor, req.DocumentID, models.JobKindQuestions, matrixJSON, req.Instructions)

	key := cacheKey("questions", text, req.Matrix, req.Instructions)
	if hit, ok := s.cache.get(key); ok {
		if result, ok := hit.(QuestionsResult); ok {
			result.Cached = true
			result.JobReference = jobReference(job)
			s.recordUsage(ctx, req.Actor, models.RequestKindQuestions, 0, true, true, "", 0)
			s.completeJob(ctx, job, result.ArtifactPath)
			return result, nil
		}
	}

	s.startJob(ctx, job)

	cfg := s.settings.Generation(ctx)
	chunks, err := chunker.Split(text, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		s.failJob(ctx, job, err.Error())
		return QuestionsResult{}, fmt.Errorf("chunk source text: %w", err)
	}

	// Bounded-size approximation: the first chunk, or the first three
	// joined, never the whole document.
	source := text
	if len(chunks) > 0 {
		source = chunks[0]
	}
	if len(chunks) > 1 {
		limit := 3
		if limit > len(chunks) {
			limit = len(chunks)
		}
		source = strings.Join(chunks[:limit], chunkSeparator)
	}

	resp, err := s.client.Complete(ctx, Request{
		Actor:        req.Actor,
		SystemPrompt: questionsSystemPrompt,
		Prompt:       questionsPrompt(source, req.Matrix, req.Instructions),
		MaxTokens:    questionsMaxTokens,
	})
	if err != nil {
		s.recordUsage(ctx, req.Actor, models.RequestKindQuestions, 0, false, false, err.Error(), 0)
		s.failJob(ctx, job, err.Error())
		return QuestionsResult{JobReference: jobReference(job)}, err
	}

	questions := ParseQuestions(resp.Content)
	if len(questions) == 0 {
		errParse := errors.New("model response contained no parseable questions")
		s.recordUsage(ctx, req.Actor, models.RequestKindQuestions, resp.TokensUsed, false, false, errParse.Error(), resp.CredentialID)
		s.failJob(ctx, job, errParse.Error())
		return QuestionsResult{JobReference: jobReference(job)}, errParse
	}

	result := QuestionsResult{
		Questions:    questions,
		JobReference: jobReference(job),
		TokensUsed:   resp.TokensUsed,
	}
	if s.store != nil {
		extra := []artifacts.Meta{
			{Key: "total_questions", Value: fmt.Sprintf("%d", len(questions))},
			{Key: "total_score", Value: fmt.Sprintf("%g", req.Matrix.TotalScore())},
		}
		path, saveErr := s.store.Save(CategoryQuestions, req.DocumentID, QuestionsMarkdown(questions), s.artifactMeta(req.SourceTitle, cfg.ActiveModel, extra))
		if saveErr != nil {
			log.WithError(saveErr).Warn("questions artifact save failed")
		} else {
			result.ArtifactPath = path
		}
	}
	s.recordUsage(ctx, req.Actor, models.RequestKindQuestions, resp.TokensUsed, false, true, "", resp.CredentialID)
	s.completeJob(ctx, job, result.ArtifactPath)
	s.cache.put(key, result)
	return result, nil
}

// AnswerRequest describes one document Q&A call.
type AnswerRequest struct {
	Actor        string
	DocumentID   uint64
	Text         string
	Question     string
	Instructions string
}

// AnswerResult is the outcome of AnswerQuestion. Degraded marks the
// apology path taken when upstream could not be reached.
type AnswerResult struct {
	Answer       string `json:"answer"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	Degraded     bool   `json:"degraded"`
	TokensUsed   int    `json:"tokens_used"`
}

// AnswerQuestion answers a free-form question from the document text.
// Context is the most relevant chunks when the text spans several.
// Interactive Q&A degrades to an apology on upstream failure instead of
// propagating; only the administrative kill switch returns an error.
func (s *Service) AnswerQuestion(ctx context.Context, req AnswerRequest) (AnswerResult, error) {
	text := strings.TrimSpace(req.Text)
	question := strings.TrimSpace(req.Question)
	if text == "" || question == "" {
		return AnswerResult{}, errors.New("source text and question are required")
	}

	cfg := s.settings.Generation(ctx)
	chunks, err := chunker.Split(text, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("chunk source text: %w", err)
	}
	docContext := text
	if len(chunks) == 1 {
		docContext = chunks[0]
	} else if len(chunks) > 1 {
		docContext = strings.Join(TopRelevant(chunks, question), chunkSeparator)
	}

	resp, err := s.client.Complete(ctx, Request{
		Actor:        req.Actor,
		SystemPrompt: answerSystemPrompt,
		Prompt:       answerPrompt(docContext, question, req.Instructions),
		MaxTokens:    answerMaxTokens,
	})
	if err != nil {
		if errors.Is(err, ErrServiceDisabled) {
			return AnswerResult{}, err
		}
		log.WithError(err).Warn("document q&a failed, returning apology")
		s.recordUsage(ctx, req.Actor, models.RequestKindChat, 0, false, false, err.Error(), 0)
		return AnswerResult{Answer: apologyAnswer, Degraded: true}, nil
	}

	result := AnswerResult{Answer: resp.Content, TokensUsed: resp.TokensUsed}
	if s.store != nil {
		path, saveErr := s.store.Save(CategoryChat, req.DocumentID, chatMarkdown(question, resp.Content), nil)
		if saveErr != nil {
			log.WithError(saveErr).Warn("chat artifact save failed")
		} else {
			result.ArtifactPath = path
		}
	}
	s.recordUsage(ctx, req.Actor, models.RequestKindChat, resp.TokensUsed, false, true, "", resp.CredentialID)
	return result, nil
}

// ConnectionTestResult reports a one-shot upstream probe.
type ConnectionTestResult struct {
	Response  string `json:"response"`
	LatencyMs int64  `json:"latency_ms"`
	Model     string `json:"model"`
}

// TestConnection issues a tiny completion so operators can verify the
// upstream credential path end to end.
func (s *Service) TestConnection(ctx context.Context) (ConnectionTestResult, error) {
	cfg := s.settings.Generation(ctx)
	started := s.nowFn()
	resp, err := s.client.Complete(ctx, Request{
		Prompt:    "قل: مرحباً، أنا جاهز!",
		MaxTokens: 50,
	})
	if err != nil {
		return ConnectionTestResult{}, err
	}
	return ConnectionTestResult{
		Response:  resp.Content,
		LatencyMs: time.Since(started).Milliseconds(),
		Model:     cfg.ActiveModel,
	}, nil
}

func (s *Service) artifactMeta(sourceTitle, model string, extra []artifacts.Meta) []artifacts.Meta {
	meta := []artifacts.Meta{
		{Key: "source_file", Value: sourceTitle},
		{Key: "date", Value: s.nowFn().Format("2006-01-02 15:04")},
		{Key: "model", Value: model},
	}
	if sourceTitle == "" {
		meta = meta[1:]
	}
	return append(meta, extra...)
}

func (s *Service) recordUsage(ctx context.Context, actor, kind string, tokens int, cached, success bool, detail string, credID uint64) {
	if s.usage == nil {
		return
	}
	entry := usage.Entry{
		Actor:       actor,
		RequestKind: kind,
		TokensUsed:  tokens,
		Cached:      cached,
		Success:     success,
		ErrorDetail: detail,
	}
	if credID != 0 {
		entry.CredentialID = &credID
	}
	s.usage.Record(ctx, entry)
}

func (s *Service) createJob(ctx context.Context, actor string, documentID uint64, kind string, matrix []byte, instructions string) *models.GenerationJob {
	if s.db == nil {
		return nil
	}
	job := &models.GenerationJob{
		Reference:    uuid.NewString(),
		Actor:        strings.TrimSpace(actor),
		DocumentID:   documentID,
		Kind:         kind,
		Instructions: strings.TrimSpace(instructions),
		Status:       models.JobStatusPending,
	}
	if len(matrix) > 0 {
		job.MatrixConfig = datatypes.JSON(matrix)
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		log.WithError(err).Warn("generation job create failed")
		return nil
	}
	return job
}

// startJob moves a pending job into processing before upstream work begins.
func (s *Service) startJob(ctx context.Context, job *models.GenerationJob) {
	if s.db == nil || job == nil {
		return
	}
	if err := s.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("id = ? AND status = ?", job.ID, models.JobStatusPending).
		Update("status", models.JobStatusProcessing).Error; err != nil {
		log.WithError(err).Warn("generation job update failed")
		return
	}
	job.Status = models.JobStatusProcessing
}

func (s *Service) completeJob(ctx context.Context, job *models.GenerationJob, artifactPath string) {
	s.finishJob(ctx, job, models.JobStatusCompleted, artifactPath, "")
}

func (s *Service) failJob(ctx context.Context, job *models.GenerationJob, detail string) {
	s.finishJob(ctx, job, models.JobStatusFailed, "", detail)
}

func (s *Service) finishJob(ctx context.Context, job *models.GenerationJob, status, artifactPath, detail string) {
	if s.db == nil || job == nil {
		return
	}
	now := s.nowFn()
	updates := map[string]any{
		"status":       status,
		"completed_at": &now,
	}
	if artifactPath != "" {
		updates["artifact_path"] = artifactPath
	}
	if detail != "" {
		updates["error_detail"] = detail
	}
	if err := s.db.WithContext(ctx).Model(&models.GenerationJob{}).
		Where("id = ? AND status IN ?", job.ID, []string{models.JobStatusPending, models.JobStatusProcessing}).
		Updates(updates).Error; err != nil {
		log.WithError(err).Warn("generation job update failed")
	}
}

// Job looks up a job by its public reference.
func (s *Service) Job(ctx context.Context, reference string) (*models.GenerationJob, error) {
	if s.db == nil {
		return nil, gorm.ErrRecordNotFound
	}
	var job models.GenerationJob
	if err := s.db.WithContext(ctx).Where("reference = ?", strings.TrimSpace(reference)).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func jobReference(job *models.GenerationJob) string {
	if job == nil {
		return ""
	}
	return job.Reference
}

package conversation

import (
	"context"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"thalrakshak-assistant/internal/bloodtype"
	"thalrakshak-assistant/internal/document"
	"thalrakshak-assistant/internal/models"
	"thalrakshak-assistant/internal/responder"

	"go.uber.org/zap"
)

// job 一次待处理的用户输入（文本或上传）
type job struct {
	ctx    context.Context
	text   string
	upload *document.Upload
	reply  chan jobResult
}

type jobResult struct {
	turn models.ConversationTurn
	err  error
}

// Session 单个会话：只追加的消息记录 + 串行处理输入的 worker
//
// 同一会话任意时刻最多只有一个 分类→回复 或 上传→分析 周期在执行，
// 之后到达的输入按提交顺序排队。
type Session struct {
	id     string
	deps   Dependencies
	logger *zap.Logger

	jobs      chan job
	done      chan struct{}
	closeOnce sync.Once
	pending   atomic.Int32

	mu            sync.RWMutex
	turns         []models.ConversationTurn
	state         State
	activeRequest *models.ActiveRequest
	profile       *models.UserProfile
	lastActive    time.Time
	onTransition  TransitionFunc
}

// NewSession 创建会话并启动 worker；queueSize 为排队输入上限
func NewSession(deps Dependencies, queueSize int) *Session {
	deps = deps.withDefaults()
	if queueSize <= 0 {
		queueSize = 1
	}
	id := deps.NewID()
	s := &Session{
		id:         id,
		deps:       deps,
		logger:     deps.Logger.With(zap.String("session_id", id)),
		jobs:       make(chan job, queueSize),
		done:       make(chan struct{}),
		state:      StateIdle,
		lastActive: deps.Now(),
	}
	go s.run()
	return s
}

// ID 会话ID
func (s *Session) ID() string {
	return s.id
}

// SendText 提交一条用户文本，返回助手回复
func (s *Session) SendText(ctx context.Context, text string) (models.ConversationTurn, error) {
	return s.submit(ctx, job{ctx: ctx, text: text})
}

// Upload 提交一个文档，返回助手回复；校验、解析失败都以回复形式返回
func (s *Session) Upload(ctx context.Context, upload document.Upload) (models.ConversationTurn, error) {
	return s.submit(ctx, job{ctx: ctx, upload: &upload})
}

func (s *Session) submit(ctx context.Context, j job) (models.ConversationTurn, error) {
	j.reply = make(chan jobResult, 1)

	select {
	case <-s.done:
		return models.ConversationTurn{}, ErrSessionClosed
	default:
	}

	s.pending.Add(1)
	select {
	case s.jobs <- j:
	case <-s.done:
		s.pending.Add(-1)
		return models.ConversationTurn{}, ErrSessionClosed
	case <-ctx.Done():
		s.pending.Add(-1)
		return models.ConversationTurn{}, ctx.Err()
	}

	select {
	case r := <-j.reply:
		return r.turn, r.err
	case <-s.done:
		select {
		case r := <-j.reply:
			return r.turn, r.err
		default:
			return models.ConversationTurn{}, ErrSessionClosed
		}
	case <-ctx.Done():
		return models.ConversationTurn{}, ctx.Err()
	}
}

func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		case j := <-s.jobs:
			r := s.process(j)
			s.pending.Add(-1)
			s.touch()
			j.reply <- r
		}
	}
}

func (s *Session) process(j job) jobResult {
	if err := j.ctx.Err(); err != nil {
		// 调用方已放弃，不产生任何消息
		return jobResult{err: err}
	}
	if j.upload != nil {
		return s.handleUpload(j.ctx, *j.upload)
	}
	return jobResult{turn: s.handleText(j.text)}
}

// handleText Idle → Classifying → Responding → Idle
func (s *Session) handleText(text string) models.ConversationTurn {
	s.appendTurn(models.RoleUser, text, nil)

	s.transition(StateClassifying)
	in := s.deps.Classifier.Classify(text)

	if in == models.IntentRequestBlood {
		s.recordRequest(text)
	}

	s.transition(StateResponding)
	reply := s.deps.Generator.Generate(in, s.responderContext(text))
	turn := s.appendTurn(models.RoleAssistant, reply, nil)
	s.transition(StateIdle)

	s.logger.Debug("Handled text turn", zap.String("intent", string(in)))
	return turn
}

// handleUpload Idle → ValidatingUpload → Extracting → Evaluating → Responding → Idle
func (s *Session) handleUpload(ctx context.Context, upload document.Upload) jobResult {
	s.appendTurn(models.RoleUser, "Uploaded "+upload.Name, upload.Attachment())

	reply, outcome, err := s.analyze(ctx, upload)
	if err != nil {
		reply = "The upload of " + strconv.Quote(upload.Name) + " was cancelled before the analysis completed."
		outcome = uploadCancelled
	}
	if s.deps.Uploads != nil {
		s.deps.Uploads.ObserveUpload(outcome)
	}

	s.transition(StateResponding)
	turn := s.appendTurn(models.RoleAssistant, reply, nil)
	s.transition(StateIdle)

	s.logger.Info("Handled upload",
		zap.String("file", upload.Name),
		zap.Int64("size", upload.Size()),
		zap.String("outcome", outcome),
	)
	return jobResult{turn: turn, err: err}
}

// analyze 返回回复文本与结果分类；只有 ctx 取消会返回 error
func (s *Session) analyze(ctx context.Context, upload document.Upload) (string, string, error) {
	g := s.deps.Generator
	s.transition(StateValidatingUpload)

	// 1. 大小（任何解码之前）
	if err := s.deps.Limits.CheckSize(upload); err != nil {
		return g.UploadRejected(upload.Name, err), uploadTooLarge, nil
	}

	// 2. 类型
	switch upload.Kind() {
	case models.AttachmentImage:
		return g.ImageReceived(upload.Name), uploadImage, nil
	case models.AttachmentUnsupported:
		return g.UnsupportedFile(upload.Name), uploadUnsupported, nil
	}

	// 3. 解码 + 页数（读取任何页面之前）
	doc, err := s.deps.Reader.Open(ctx, upload.Data)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		return g.UploadRejected(upload.Name, err), uploadUnreadable, nil
	}
	if err := s.deps.Limits.CheckPages(doc); err != nil {
		return g.UploadRejected(upload.Name, err), uploadTooManyPages, nil
	}

	// 4. 提取文本与生命体征
	s.transition(StateExtracting)
	text, err := document.ExtractText(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		return g.UploadRejected(upload.Name, err), uploadUnreadable, nil
	}
	report := s.deps.Extractor.Extract(text)
	if len(report) == 0 {
		return g.NoVitalsFound(upload.Name), uploadNoVitals, nil
	}

	// 5. 评估
	s.transition(StateEvaluating)
	result := s.deps.Evaluator.Evaluate(report)
	return g.FormatEligibility(report, result), uploadAnalyzed, nil
}

var (
	unitsPattern   = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:units?|bags?|pints?|bottles?)\b`)
	urgencyPattern = regexp.MustCompile(`(?i)\b(?:urgent(?:ly)?|emergency|asap|immediately|critical)\b`)
)

// recordRequest 识别到血型时创建（或替换）当前申请
func (s *Session) recordRequest(text string) {
	bt, ok := bloodtype.Extract(text)
	if !ok {
		return
	}
	units := 1
	if m := unitsPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			units = n
		}
	}
	req := &models.ActiveRequest{
		RequestID: requestID(s.deps.NewID()),
		BloodType: bt,
		Units:     units,
		Urgent:    urgencyPattern.MatchString(text),
		Status:    models.RequestStatusPending,
		CreatedAt: s.deps.Now(),
	}

	s.mu.Lock()
	s.activeRequest = req
	s.mu.Unlock()

	s.logger.Info("Recorded blood request",
		zap.String("request_id", req.RequestID),
		zap.String("blood_type", string(req.BloodType)),
		zap.Int("units", req.Units),
		zap.Bool("urgent", req.Urgent),
	)
}

func (s *Session) responderContext(text string) responder.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx := responder.Context{
		Text:      text,
		Inventory: s.deps.Inventory.Current(),
	}
	if s.activeRequest != nil {
		r := *s.activeRequest
		ctx.ActiveRequest = &r
	}
	if s.profile != nil {
		p := *s.profile
		ctx.Profile = &p
	}
	return ctx
}

func (s *Session) appendTurn(role models.Role, content string, attachment *models.Attachment) models.ConversationTurn {
	turn := models.ConversationTurn{
		ID:         s.deps.NewID(),
		Role:       role,
		Content:    content,
		Timestamp:  s.deps.Now(),
		Attachment: attachment,
	}
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()
	return turn
}

func (s *Session) transition(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	hook := s.onTransition
	s.mu.Unlock()

	if hook != nil && from != to {
		hook(from, to)
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.deps.Now()
	s.mu.Unlock()
}

// State 当前状态
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnTransition 设置状态变化回调
func (s *Session) OnTransition(fn TransitionFunc) {
	s.mu.Lock()
	s.onTransition = fn
	s.mu.Unlock()
}

// Transcript 消息记录副本（按插入顺序）
func (s *Session) Transcript() []models.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ConversationTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// ActiveRequest 当前申请副本（可能为 nil）
func (s *Session) ActiveRequest() *models.ActiveRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeRequest == nil {
		return nil
	}
	r := *s.activeRequest
	return &r
}

// Profile 用户档案副本（可能为 nil）
func (s *Session) Profile() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// SetProfile 设置用户档案（由宿主提供）
func (s *Session) SetProfile(profile *models.UserProfile) {
	var cp *models.UserProfile
	if profile != nil {
		p := *profile
		cp = &p
	}
	s.mu.Lock()
	s.profile = cp
	s.mu.Unlock()
}

// idleSince 没有排队或执行中的输入时返回最后活动时间
func (s *Session) idleSince() (time.Time, bool) {
	if s.pending.Load() > 0 {
		return time.Time{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive, true
}

// Close 停止 worker；排队中的输入返回 ErrSessionClosed
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Closed 是否已关闭
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

package handler

import (
	"context"
	"sync"
	"time"

	"verifymc/internal/config"
	"verifymc/internal/domain"
	"verifymc/internal/middleware"
	"verifymc/internal/service"

	"github.com/gofiber/fiber/v2"
)

// In-memory fakes for wiring handlers without a database or Redis.

type memoryCache struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string]string{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return "", domain.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memoryCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] += "x"
	return int64(len(m.items[key])), nil
}

func (m *memoryCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (m *memoryCache) Ping(ctx context.Context) error { return nil }

type memoryUserRepo struct {
	mu    sync.Mutex
	users []*domain.User
}

func (r *memoryUserRepo) Create(user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, user)
	return nil
}

func (r *memoryUserRepo) GetByName(name string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Name == name {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepo) GetByEmail(email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepo) ListByStatus(status string) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if u.Status == status {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryUserRepo) UpdateStatus(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			u.Status = status
			return nil
		}
	}
	return domain.NewUserNotFoundError(id)
}

type memoryAuditRepo struct {
	mu    sync.Mutex
	saved int
}

func (r *memoryAuditRepo) SaveQuestionnaireResult(userID string, result *domain.QuestionnaireResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved++
	return nil
}

type nopSender struct{}

func (nopSender) Send(ctx context.Context, email, code string) error { return nil }

type stubScorer struct {
	result domain.ScoringResult
}

func (s stubScorer) Score(ctx context.Context, req domain.ScoringRequest) domain.ScoringResult {
	return s.result
}

func handlerTestDefinition() *domain.Definition {
	return &domain.Definition{
		Enabled:   true,
		PassScore: 15,
		Questions: []domain.Question{
			{
				ID:     1,
				TextZH: "你从哪里知道本服务器？",
				TextEN: "How did you find this server?",
				Type:   domain.QuestionTypeSingleChoice,
				Options: []domain.Option{
					{TextZH: "朋友推荐", TextEN: "A friend", Score: 10},
					{TextZH: "搜索引擎", TextEN: "Search engine", Score: 5},
				},
			},
			{
				ID:          2,
				TextZH:      "为什么想加入？",
				TextEN:      "Why do you want to join?",
				Type:        domain.QuestionTypeText,
				MaxScore:    20,
				ScoringRule: "Reward sincerity",
			},
		},
	}
}

type testEnv struct {
	app   *fiber.App
	cache *memoryCache
	users *memoryUserRepo
}

func newTestEnv(scorer domain.EssayScorer, qCfg config.QuestionnaireConfig) *testEnv {
	cache := newMemoryCache()
	users := &memoryUserRepo{}
	audits := &memoryAuditRepo{}

	verification := service.NewVerificationService(cache, nopSender{}, config.VerificationConfig{CodeLength: 6, CodeTTL: 10 * time.Minute})
	questionnaire := service.NewQuestionnaireService(qCfg, handlerTestDefinition(), scorer, 2000)
	registration := service.NewRegistrationService(users, audits, verification, questionnaire)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})

	questionnaireHandler := NewQuestionnaireHandler(questionnaire)
	registerHandler := NewRegisterHandler(registration, verification)
	adminHandler := NewAdminHandler(registration)

	api := app.Group("/api")
	api.Get("/questionnaire", questionnaireHandler.GetQuestionnaire)
	api.Post("/questionnaire/submit", questionnaireHandler.SubmitQuestionnaire)
	api.Post("/send-code", registerHandler.SendCode)
	api.Post("/register", registerHandler.Register)
	api.Get("/check-whitelist", registerHandler.CheckWhitelist)

	admin := api.Group("/admin", middleware.AdminAuth("secret-token"))
	admin.Get("/users", adminHandler.ListUsers)
	admin.Post("/review", adminHandler.Review)

	return &testEnv{app: app, cache: cache, users: users}
}

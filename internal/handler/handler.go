package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/ja"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	ja_translations "github.com/go-playground/validator/v10/translations/ja"
	"go.uber.org/zap"

	"github.com/shift-marketplace/backend/internal/config"
	"github.com/shift-marketplace/backend/internal/domain"
	"github.com/shift-marketplace/backend/internal/service"
)

// Store はハンドラーが直接使うユーザーと施設の操作
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user *domain.User) error
	CreateFacility(ctx context.Context, facility *domain.Facility) error
}

type Handler struct {
	validate     *validator.Validate
	config       *config.Config
	store        Store
	service      *service.ApplicationService
	translator   ut.Translator
	logger       *zap.Logger
	applyLimiter *userLimiter

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, store Store, svc *service.ApplicationService, logger *zap.Logger) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	ja := ja.New()
	uni := ut.New(ja, ja)
	trans, _ := uni.GetTranslator("ja")
	if err := ja_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:     validate,
		config:       cfg,
		store:        store,
		service:      svc,
		translator:   trans,
		logger:       logger,
		applyLimiter: newUserLimiter(cfg.Apply.RateLimit, cfg.Apply.RateBurst),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.requestID)
	h.Mux.Use(h.requestLogger)
	h.Mux.Use(h.recoverer)

	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下はログインが必要
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)

		r.Route("/my-info", func(r chi.Router) {
			r.Get("/", h.GetMyInfo)
			r.Patch("/profile", h.UpdateMyProfile)
			r.Patch("/password", h.UpdateMyPassword)
			r.Route("/muted-facilities", func(r chi.Router) {
				r.Get("/", h.GetMutedFacilities)
				r.Put("/{facilityID}", h.MuteFacility)
				r.Delete("/{facilityID}", h.UnmuteFacility)
			})
		})

		r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/users", h.CreateUser)
		r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/facilities", h.CreateFacility)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.With(h.RequiredRole([]domain.Role{domain.RoleFacility, domain.RoleAdmin})).Post("/", h.CreateJob)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.jobID)
				r.Get("/", h.GetJobView)
				r.With(h.RequiredRole([]domain.Role{domain.RoleWorker})).With(h.applyRateLimit).Post("/applications", h.ApplyToJob)
				r.With(h.RequiredRole([]domain.Role{domain.RoleFacility, domain.RoleAdmin})).Get("/applications/export", h.ExportApplications)
			})
		})
	})
}

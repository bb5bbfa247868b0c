package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"driveon/internal/modules/auth/domain"
	"driveon/internal/modules/auth/infra"
	pg "driveon/internal/modules/auth/infra/pg"
	"driveon/internal/platform/config"
	phttp "driveon/internal/platform/http"
	"driveon/internal/platform/notify"
	"driveon/internal/platform/rate"
	"driveon/internal/platform/security"
)

var validate = validator.New()

// Module wires up dependencies for the auth HTTP module.
type Module struct {
	accounts domain.AccountRepo
	codes    domain.OTPRepo
	gen      *security.CodeGenerator
	jwtMgr   *security.JWTManager
	sms      notify.CodeSender
	email    notify.CodeSender
	limiter  *rate.Limiter // optional; nil disables resend throttling
	policy   config.DeliveryFailurePolicy
	rsp      *phttp.Responder
	log      *zap.Logger
}

// NewModule builds an in-memory module with dev defaults, used by tests
// and local runs without external services.
func NewModule(cfg config.Config, log *zap.Logger) *Module {
	return &Module{
		accounts: infra.NewMemAccountRepo(),
		codes:    infra.NewMemOTPRepo(),
		gen:      security.NewCodeGenerator(cfg.TestPhones, cfg.OTPValidity),
		jwtMgr:   security.NewJWTManager(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL),
		sms:      notify.NewSMSGateway(cfg.SMSBaseURL, cfg.SMSAPIKey, cfg.SMSSenderID, cfg.TestPhones, cfg.SMSTimeout, log),
		email:    notify.NewEmailLogger(log),
		policy:   cfg.DeliveryPolicy,
		rsp:      phttp.NewResponder(cfg.Production()),
		log:      log,
	}
}

// NewModulePG is the production wiring on pgx repos.
func NewModulePG(db *pgxpool.Pool, cfg config.Config, log *zap.Logger) *Module {
	m := NewModule(cfg, log)
	m.accounts = pg.NewAccountRepo(db)
	m.codes = pg.NewOTPRepo(db)
	return m
}

func (m *Module) WithLimiter(l *rate.Limiter) *Module {
	m.limiter = l
	return m
}

func (m *Module) WithSenders(sms, email notify.CodeSender) *Module {
	if sms != nil {
		m.sms = sms
	}
	if email != nil {
		m.email = email
	}
	return m
}

// Codes exposes the OTP repo for housekeeping (expiry reaper in cmd).
func (m *Module) Codes() domain.OTPRepo { return m.codes }

func (m *Module) Register(r fiber.Router) {
	auth := r.Group("/auth")

	// -------- public --------
	auth.Post("/register", RegisterHandler(m))
	auth.Post("/login", LoginHandler(m))
	auth.Post("/verify", VerifyHandler(m))
	auth.Post("/resend", ResendHandler(m))
	auth.Post("/refresh", RefreshHandler(m))

	// -------- protected --------
	protected := auth.Group("", phttp.SessionAuth(m.jwtMgr, m.accounts, m.rsp))
	protected.Post("/logout", LogoutHandler(m))
	protected.Get("/me", ProfileHandler(m))
}

func accountSummary(a *domain.Account) fiber.Map {
	return fiber.Map{
		"id":             a.ID,
		"email":          a.Email,
		"phone":          a.Phone,
		"name":           a.Name,
		"role":           a.Role,
		"email_verified": a.EmailVerified,
		"phone_verified": a.PhoneVerified,
		"referral_code":  a.ReferralCode,
	}
}

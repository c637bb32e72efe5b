package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Additional-Code/burgerbar/internal/config"
	"github.com/Additional-Code/burgerbar/internal/entity"
	repo "github.com/Additional-Code/burgerbar/internal/repository/user"
	"github.com/Additional-Code/burgerbar/pkg/errorbank"
)

// Messages returned to clients.
const (
	MessageCredentialsRequired = "Email and password are required"
	MessageRegisterRequired    = "Name, phone, email and password are required"
	MessageUserExists          = "User already exists"
	MessageInvalidCredentials  = "Invalid credentials"
	MessageInvalidToken        = "Invalid or expired token"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/burgerbar/service/auth")

// Users is the account storage the service needs.
type Users interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}

// Claims are carried in access tokens.
type Claims struct {
	UserID int64       `json:"userId"`
	Email  string      `json:"email"`
	Role   entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// RegisterInput is a customer sign-up request.
type RegisterInput struct {
	Name     string
	Phone    string
	Email    string
	Password string
}

// LoginResult is a signed token plus the identity it carries.
type LoginResult struct {
	Token  string
	Claims Claims
}

// Service registers users and issues and verifies access tokens.
type Service struct {
	users      Users
	secret     []byte
	issuer     string
	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
	logger     *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Users  *repo.Repository
	Config config.Config
	Logger *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return New(p.Users, p.Config.Auth, p.Logger)
}

// New builds a Service over any Users store.
func New(users Users, cfg config.Auth, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		users:      users,
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		ttl:        ttl,
		bcryptCost: cost,
		now:        time.Now,
		logger:     logger,
	}
}

// Register creates a customer account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" || in.Phone == "" || in.Email == "" || in.Password == "" {
		return nil, errorbank.BadRequest(MessageRegisterRequired)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		// Passwords longer than 72 bytes end up here.
		return nil, errorbank.BadRequest("Password cannot be used", errorbank.WithCause(err))
	}

	user := &entity.User{
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         entity.RoleCustomer,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, errorbank.Conflict(MessageUserExists)
		}
		s.logger.Error("register failed", zap.Error(err))
		return nil, errorbank.Internal("Internal server error", errorbank.WithCause(err))
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

// Login checks credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := serviceTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, errorbank.BadRequest(MessageCredentialsRequired)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errorbank.Unauthorized(MessageInvalidCredentials)
	}
	if err != nil {
		s.logger.Error("login lookup failed", zap.Error(err))
		return nil, errorbank.Internal("Internal server error", errorbank.WithCause(err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errorbank.Unauthorized(MessageInvalidCredentials)
	}

	token, claims, err := s.IssueToken(user)
	if err != nil {
		s.logger.Error("sign token failed", zap.Error(err))
		return nil, errorbank.Internal("Internal server error", errorbank.WithCause(err))
	}
	return &LoginResult{Token: token, Claims: claims}, nil
}

// IssueToken signs an HS256 token for user.
func (s *Service) IssueToken(user *entity.User) (string, Claims, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}

// Verify parses and validates a token, returning its claims.
func (s *Service) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, errorbank.Unauthorized(MessageInvalidToken, errorbank.WithCause(err))
	}
	if claims.Role != entity.RoleCustomer && claims.Role != entity.RoleAdmin {
		return nil, errorbank.Unauthorized(MessageInvalidToken)
	}
	return claims, nil
}

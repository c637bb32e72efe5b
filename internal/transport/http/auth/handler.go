package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/burgerbar/internal/dto"
	"github.com/Additional-Code/burgerbar/internal/entity"
	"github.com/Additional-Code/burgerbar/internal/presentation/http/response"
	service "github.com/Additional-Code/burgerbar/internal/service/auth"
	"github.com/Additional-Code/burgerbar/internal/transport/http/validation"
)

var (
	registerSchema = validation.MustLoad("register", "")
	loginSchema    = validation.MustLoad("login", "")
)

// Service is the auth behaviour the handler needs.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
}

// Handler exposes registration and login.
type Handler struct {
	svc Service
}

// NewHandler constructs an auth Handler.
func NewHandler(svc *service.Service) *Handler {
	return New(svc)
}

// New constructs a Handler over any Service.
func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo group.
func Register(api *echo.Group, h *Handler) {
	g := api.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
}

func (h *Handler) register(c echo.Context) error {
	b := response.New(c)

	var payload dto.RegisterRequest
	if err := validation.Bind(c, registerSchema, &payload); err != nil {
		return b.WithError(err).Build()
	}

	_, err := h.svc.Register(c.Request().Context(), service.RegisterInput{
		Name:     payload.Name,
		Phone:    payload.Phone,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).
		WithData(dto.MessageResponse{Message: "User registered successfully"}).
		Build()
}

func (h *Handler) login(c echo.Context) error {
	b := response.New(c)

	var payload dto.LoginRequest
	if err := validation.Bind(c, loginSchema, &payload); err != nil {
		return b.WithError(err).Build()
	}

	res, err := h.svc.Login(c.Request().Context(), payload.Email, payload.Password)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.LoginResponse{
		Token: res.Token,
		User: dto.AuthIdentity{
			UserID: res.Claims.UserID,
			Email:  res.Claims.Email,
			Role:   res.Claims.Role,
		},
	}).Build()
}

package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"microloan-ledger/internal/adapter/middleware"
	"microloan-ledger/internal/domain/identity"
	"microloan-ledger/internal/domain/user"
	useruc "microloan-ledger/internal/usecase/user"
)

type UserHandler struct{ uc *useruc.Usecase }

func NewUserHandler(uc *useruc.Usecase) *UserHandler { return &UserHandler{uc: uc} }

type registerReq struct {
	Username string `json:"username" validate:"required,username,max=64"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"selfrole"`
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed", ToFieldErrors(err))
	}
	u, err := h.uc.Register(c.Request().Context(), useruc.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Role:     user.Role(req.Role),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, useruc.ToDTO(*u))
}

// Login checks credentials and returns the account; clients then identify
// themselves with Ax-Username.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed", ToFieldErrors(err))
	}
	u, err := h.uc.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, useruc.ToDTO(*u))
}

func (h *UserHandler) Me(c echo.Context) error {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated", Code: "unauthenticated"})
	}
	u, err := h.uc.Get(c.Request().Context(), a.Username)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, useruc.ToDTO(*u))
}

func requireRole(c echo.Context, role user.Role) (identity.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	return a, ok && a.Is(role)
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, ErrorResponse{Error: "not allowed for this role", Code: "forbidden"})
}

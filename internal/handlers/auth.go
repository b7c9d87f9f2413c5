package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stratolift/internal/models"
	"stratolift/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, "Login failed")
		return
	}

	c.JSON(http.StatusOK, loginResponse{Token: result.Token, User: result.User})
}

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		Phone:     req.Phone,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.respondError(c, err, "Registration failed. Please try again.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration successful",
		"data":    user,
	})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, exists := currentUser(c)
	if !exists {
		return
	}
	respond(c, http.StatusOK, user)
}

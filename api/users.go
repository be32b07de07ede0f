package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/xiaoyuanzhu-com/my-todos/auth"
	"github.com/xiaoyuanzhu-com/my-todos/db"
	"github.com/xiaoyuanzhu-com/my-todos/log"
)

var usersLogger = log.GetLogger("ApiUsers")

// Register handles POST /api/users
func (h *Handlers) Register(c *gin.Context) {
	var reg auth.Registration
	errs := auth.FieldErrors{}

	if err := c.ShouldBindJSON(&reg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			RespondBadRequest(c, "Invalid request body")
			return
		}
		for _, fe := range verrs {
			errs.Add(jsonFieldName(fe.Field()), bindingMessage(fe))
		}
	}

	for field, msgs := range reg.Validate() {
		for _, msg := range msgs {
			errs.Add(field, msg)
		}
	}

	ctx := c.Request.Context()
	if len(errs["email"]) == 0 {
		existing, err := h.db().FindUserByEmail(ctx, reg.Email)
		if err != nil {
			RespondStoreError(c, err, "register user")
			return
		}
		if existing != nil {
			errs.Add("email", auth.EmailTakenMessage)
		}
	}

	if len(errs) > 0 {
		RespondValidationError(c, "Invalid registration", fieldDetails(errs))
		return
	}

	hash, salt, err := auth.HashPassword(reg.Password)
	if err != nil {
		RespondStoreError(c, err, "register user")
		return
	}

	user, err := h.db().CreateUser(ctx, reg.Email, hash, salt)
	if errors.Is(err, db.ErrEmailTaken) {
		// Lost a race with a concurrent registration
		errs.Add("email", auth.EmailTakenMessage)
		RespondValidationError(c, "Invalid registration", fieldDetails(errs))
		return
	}
	if err != nil {
		RespondStoreError(c, err, "register user")
		return
	}

	usersLogger.Info().Int64("userId", user.ID).Msg("user registered")
	RespondCreated(c, user, fmt.Sprintf("/api/users/%d", user.ID))
}

func jsonFieldName(structField string) string {
	switch structField {
	case "PasswordConfirmation":
		return "passwordConfirmation"
	default:
		return strings.ToLower(structField)
	}
}

func bindingMessage(fe validator.FieldError) string {
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " is not a valid email address"
	default:
		return field + " is invalid"
	}
}

// Me handles GET /api/auth/me
func (h *Handlers) Me(c *gin.Context) {
	resp := gin.H{"authMode": h.authMode()}

	if v, ok := c.Get(ctxKeyUser); ok {
		resp["user"] = v
	}
	if v, ok := c.Get(ctxKeyUsername); ok {
		resp["username"] = v
	}

	c.JSON(http.StatusOK, DataResponse[gin.H]{Data: resp})
}

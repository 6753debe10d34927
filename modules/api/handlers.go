package api

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/effectiveone/facebook-clone-backend/domain/presence"
	"github.com/effectiveone/facebook-clone-backend/modules/auth"
	"github.com/effectiveone/facebook-clone-backend/modules/social"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// PresenceReader exposes the live presence state.
type PresenceReader interface {
	OnlineUserIDs() []string
	Rooms() []presence.Room
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	social   social.SocialPort
	tokens   *auth.JWTManager
	presence PresenceReader
	logger   types.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(socialPort social.SocialPort, tokens *auth.JWTManager, presenceReader PresenceReader, logger types.Logger) *Handlers {
	return &Handlers{
		social:   socialPort,
		tokens:   tokens,
		presence: presenceReader,
		logger:   logger,
	}
}

// CreateUser registers a user profile and issues an access token for it.
func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	user, err := h.social.CreateUser(c.UserContext(), social.CreateUserRequest{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Picture:   req.Picture,
	})
	if err != nil {
		return h.handleSocialError(c, err)
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		h.logger.Error("Failed to issue token", "userID", user.ID, "error", err)
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(CreateUserResponse{
		User:        user,
		AccessToken: token,
		ExpiresIn:   h.tokens.TokenDuration(),
		TokenType:   "Bearer",
	})
}

// Invite sends a friend invitation to the user with the target mail address.
func (h *Handlers) Invite(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req InviteRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	invitationID, err := h.social.Invite(c.UserContext(), userID, req.TargetMailAddress)
	if err != nil {
		return h.handleSocialError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(InviteResponse{ID: invitationID})
}

// Accept accepts a pending invitation addressed to the caller.
func (h *Handlers) Accept(c *fiber.Ctx) error {
	return h.decide(c, presence.InvitationAccepted, h.social.Accept)
}

// Reject rejects a pending invitation addressed to the caller.
func (h *Handlers) Reject(c *fiber.Ctx) error {
	return h.decide(c, presence.InvitationRejected, h.social.Reject)
}

func (h *Handlers) decide(
	c *fiber.Ctx,
	status presence.InvitationStatus,
	decision func(ctx context.Context, receiverID, invitationID string) error,
) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req DecisionRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	if err := decision(c.UserContext(), userID, req.ID); err != nil {
		return h.handleSocialError(c, err)
	}

	return c.JSON(DecisionResponse{ID: req.ID, Status: status})
}

// Friends lists the friends of the caller.
func (h *Handlers) Friends(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	friends, err := h.social.FriendsOf(c.UserContext(), userID)
	if err != nil {
		return h.handleSocialError(c, err)
	}
	if friends == nil {
		friends = []presence.Friend{}
	}

	return c.JSON(FriendsResponse{Friends: friends})
}

// Unfriend removes the friendship between the caller and the given friend.
func (h *Handlers) Unfriend(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.social.Unfriend(c.UserContext(), userID, c.Params("id")); err != nil {
		return h.handleSocialError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SendDirectMessage stores a message to another user.
// Both participants receive the updated history over their sockets.
func (h *Handlers) SendDirectMessage(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req DirectMessageRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	message, err := h.social.SendDirectMessage(c.UserContext(), userID, req.ReceiverUserID, req.Content)
	if err != nil {
		return h.handleSocialError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(message)
}

// Presence returns who is online and which rooms are open.
func (h *Handlers) Presence(c *fiber.Ctx) error {
	online := h.presence.OnlineUserIDs()
	if online == nil {
		online = []string{}
	}
	rooms := lo.Map(h.presence.Rooms(), func(r presence.Room, _ int) RoomSummary {
		return RoomSummary{
			ID: r.ID,
			Participants: lo.Map(r.Participants, func(p presence.Participant, _ int) string {
				return p.UserID
			}),
			CreatedAt: r.CreatedAt,
		}
	})

	return c.JSON(PresenceResponse{OnlineUsers: online, Rooms: rooms})
}

// handleSocialError maps social graph errors to HTTP responses.
func (h *Handlers) handleSocialError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, social.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "User has not been found. Please check the mail address.",
		})
	case errors.Is(err, social.ErrInvitationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Invitation has not been found",
		})
	case errors.Is(err, social.ErrNotFriends), errors.Is(err, social.ErrConversationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, social.ErrSelfInvitation):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "Sorry. You cannot become friend with yourself",
		})
	case errors.Is(err, social.ErrAlreadyInvited):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "Invitation has been already sent",
		})
	case errors.Is(err, social.ErrAlreadyFriends):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "Friend already added. Please check friends list",
		})
	case errors.Is(err, social.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "User with this email already exists",
		})
	case errors.Is(err, social.ErrNotReceiver):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: "Only the receiver can decide on an invitation",
		})
	case errors.Is(err, social.ErrSelfMessage):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "You cannot message yourself",
		})
	default:
		// Log the actual error but don't expose it to the client
		h.logger.Error("Social request failed", "path", c.Path(), "error", err)
		return internalError(c)
	}
}

// parseBody decodes and validates the request body into req.
func parseBody(c *fiber.Ctx, req any) *fiber.Error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "Invalid request body"
	}

	fe := fieldErrors[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "url":
		return fe.Field() + " must be a valid URL"
	case "min", "max":
		return fmt.Sprintf("%s length must respect %s=%s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

func badRequest(c *fiber.Ctx, err *fiber.Error) error {
	return c.Status(err.Code).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: err.Message,
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

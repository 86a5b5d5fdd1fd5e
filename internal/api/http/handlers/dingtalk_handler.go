package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/canteen-service/internal/api/dto"
	"github.com/spec-kit/canteen-service/internal/dingtalk"
	"github.com/spec-kit/canteen-service/internal/service"
	apperrors "github.com/spec-kit/canteen-service/pkg/util"
)

// DingTalkHandler serves SSO gateway endpoints.
type DingTalkHandler struct {
	client   *dingtalk.Client
	identity *service.IdentityService
}

// NewDingTalkHandler constructs handler.
func NewDingTalkHandler(client *dingtalk.Client, identityService *service.IdentityService) *DingTalkHandler {
	return &DingTalkHandler{client: client, identity: identityService}
}

// GetUserID handles GET /dingtalk/getUserId?code. The gateway response body
// is relayed to the caller verbatim.
func (h *DingTalkHandler) GetUserID(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return apperrors.NewValidationError("code is required", nil)
	}

	body, err := h.client.ResolveLoginCodeRaw(c.UserContext(), code)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// GetUserDetail handles GET /dingtalk/getUserDetail?userId with the gateway
// response relayed verbatim.
func (h *DingTalkHandler) GetUserDetail(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return apperrors.NewValidationError("userId is required", nil)
	}

	body, err := h.client.FetchUserProfileRaw(c.UserContext(), userID)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// VerifyUser handles POST /dingtalk/verifyUser.
func (h *DingTalkHandler) VerifyUser(c *fiber.Ctx) error {
	var req dto.VerifyUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Code == "" {
		return apperrors.NewValidationError("code is required", nil)
	}

	result, err := h.identity.VerifyUser(c.UserContext(), req.Code)
	if err != nil {
		return err
	}

	return c.JSON(dto.VerifyUserResponse{
		Success: true,
		Code:    0,
		Msg:     "success",
		Data: dto.VerifiedUser{
			UserID:       result.Profile.UserID,
			Name:         result.Profile.Name,
			Avatar:       result.Profile.Avatar,
			SessionToken: result.SessionToken,
			ExpiresAt:    result.ExpiresAt,
		},
	})
}

package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"muhtaref/internal/model"
	"muhtaref/internal/repository"
	"muhtaref/internal/service"
)

// AdminHandler serves the administration endpoints.
type AdminHandler struct {
	admin    service.AdminService
	settings service.SettingsService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin service.AdminService, settings service.SettingsService) *AdminHandler {
	return &AdminHandler{admin: admin, settings: settings}
}

// AdminPasswordRequest carries the replacement password.
type AdminPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// ChangeRoleRequest carries the new role.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// UpdateSettingsRequest edits the system settings.
type UpdateSettingsRequest struct {
	EngineerApprovalRequired *bool `json:"engineer_approval_required" validate:"required"`
}

// StatusResponse reports a user's status after a transition.
type StatusResponse struct {
	UserID string       `json:"user_id"`
	Status model.Status `json:"status"`
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role filter"
// @Param status query string false "Status filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} model.Profile
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var filter repository.UserFilter
	fields := map[string]string{}
	if v := c.QueryParam("role"); v != "" {
		if filter.Role, err = model.ParseRole(v); err != nil {
			fields["role"] = "is invalid"
		}
	}
	if v := c.QueryParam("status"); v != "" {
		if filter.Status, err = model.ParseStatus(v); err != nil {
			fields["status"] = "is invalid"
		}
	}
	filter.Limit, filter.Offset = paging(c, fields)
	if len(fields) > 0 {
		return fieldErrors(fields)
	}

	profiles, err := h.admin.ListUsers(c.Request().Context(), adminID, filter)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, profiles)
}

// Approve godoc
// @Summary Approve a pending engineer
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} StatusResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/users/{id}/approve [post]
func (h *AdminHandler) Approve(c echo.Context) error {
	adminID, userID, err := adminAndTarget(c)
	if err != nil {
		return err
	}

	if err := h.admin.ApproveEngineer(c.Request().Context(), adminID, userID); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, StatusResponse{UserID: userID.String(), Status: model.StatusActive})
}

// ToggleSuspension godoc
// @Summary Suspend an active user or reactivate a suspended one
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} StatusResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/users/{id}/toggle-suspension [post]
func (h *AdminHandler) ToggleSuspension(c echo.Context) error {
	adminID, userID, err := adminAndTarget(c)
	if err != nil {
		return err
	}

	status, err := h.admin.SuspendOrReactivateUser(c.Request().Context(), adminID, userID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, StatusResponse{UserID: userID.String(), Status: status})
}

// Delete godoc
// @Summary Delete a user
// @Description Deletion is terminal.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} StatusResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) Delete(c echo.Context) error {
	adminID, userID, err := adminAndTarget(c)
	if err != nil {
		return err
	}

	if err := h.admin.DeleteUser(c.Request().Context(), adminID, userID); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, StatusResponse{UserID: userID.String(), Status: model.StatusDeleted})
}

// ResetPassword godoc
// @Summary Overwrite a user's password
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body AdminPasswordRequest true "New password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/password [post]
func (h *AdminHandler) ResetPassword(c echo.Context) error {
	adminID, userID, err := adminAndTarget(c)
	if err != nil {
		return err
	}

	var req AdminPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.admin.AdminResetPassword(c.Request().Context(), adminID, userID, req.Password); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

// ChangeRole godoc
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body ChangeRoleRequest true "New role"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users/{id}/role [put]
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	adminID, userID, err := adminAndTarget(c)
	if err != nil {
		return err
	}

	var req ChangeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return fieldErrors(map[string]string{"role": "must be one of ADMIN, ENGINEER, OWNER, GENERAL_USER"})
	}

	if err := h.admin.ChangeRole(c.Request().Context(), adminID, userID, role); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "role updated"})
}

// GetSettings godoc
// @Summary Read system settings
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.SystemSettings
// @Failure 503 {object} errors.ErrorResponse
// @Router /admin/settings [get]
func (h *AdminHandler) GetSettings(c echo.Context) error {
	settings, err := h.settings.Get(c.Request().Context())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, settings)
}

// UpdateSettings godoc
// @Summary Update system settings
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateSettingsRequest true "Settings"
// @Success 200 {object} model.SystemSettings
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/settings [put]
func (h *AdminHandler) UpdateSettings(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req UpdateSettingsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	settings, err := h.settings.SetEngineerApprovalRequired(c.Request().Context(), adminID, *req.EngineerApprovalRequired)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, settings)
}

// ListLogs godoc
// @Summary List audit log entries
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param level query string false "INFO, WARNING, ERROR or SUCCESS"
// @Param action query string false "Action filter"
// @Param user_id query string false "Subject user"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} model.AuditLog
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/logs [get]
func (h *AdminHandler) ListLogs(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var filter repository.LogFilter
	fields := map[string]string{}
	if v := c.QueryParam("level"); v != "" {
		level := model.LogLevel(strings.ToUpper(v))
		switch level {
		case model.LogLevelInfo, model.LogLevelWarning, model.LogLevelError, model.LogLevelSuccess:
			filter.Level = level
		default:
			fields["level"] = "must be one of INFO, WARNING, ERROR, SUCCESS"
		}
	}
	filter.Action = c.QueryParam("action")
	if v := c.QueryParam("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			fields["user_id"] = "must be a valid id"
		} else {
			filter.UserID = &id
		}
	}
	filter.Limit, filter.Offset = paging(c, fields)
	if len(fields) > 0 {
		return fieldErrors(fields)
	}

	logs, err := h.admin.ListLogs(c.Request().Context(), adminID, filter)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, logs)
}

func adminAndTarget(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	adminID, err := currentUserID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	userID, err := pathUserID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return adminID, userID, nil
}

func paging(c echo.Context, fields map[string]string) (limit, offset int) {
	parse := func(name string) int {
		v := c.QueryParam(name)
		if v == "" {
			return 0
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields[name] = "must be a non-negative number"
			return 0
		}
		return n
	}
	return parse("limit"), parse("offset")
}

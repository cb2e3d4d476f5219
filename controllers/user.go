package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"

	"webguard/models"
	"webguard/services"
)

// UserController serves the user administration API. Access is decided by
// the container's security filter, which restricts /users to admins.
type UserController struct {
	userService services.UserService
	logger      *zap.Logger
}

// Constructor, used to create a UserController instance
func NewUserController(userService services.UserService, logger *zap.Logger) *UserController {
	return &UserController{userService: userService, logger: logger}
}

// UserResponse Defines the response structure of user information
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PaginatedUsersResponse struct {
	Users    []UserResponse `json:"users"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// --- Helper to map model to response ---
func mapModelToUserResponse(user *models.User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Roles:     user.RoleNames(),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// RegisterRoutes sets up the /users routes on ws.
func (ctl *UserController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/users").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	tags := []string{"users"}

	ws.Route(ws.GET("").To(ctl.listUsersHandler).
		Doc("List users with pagination").
		Param(ws.QueryParameter("page", "Page number (default 1)").DataType("integer").DefaultValue("1")).
		Param(ws.QueryParameter("page_size", "Users per page (default 10)").DataType("integer").DefaultValue("10")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(PaginatedUsersResponse{}).
		Returns(http.StatusOK, "Users listed successfully", PaginatedUsersResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", nil).
		Returns(http.StatusForbidden, "Forbidden", nil))

	ws.Route(ws.POST("").To(ctl.createUserHandler).
		Doc("Create a user").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.CreateUserInput{}).
		Returns(http.StatusCreated, "User created successfully", UserResponse{}).
		Returns(http.StatusBadRequest, "Invalid request body", nil).
		Returns(http.StatusConflict, "Username already exists", nil))

	ws.Route(ws.GET("/{user-id}").To(ctl.getUserByIDHandler).
		Doc("Get user by ID").
		Param(ws.PathParameter("user-id", "Identifier of the user").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(UserResponse{}).
		Returns(http.StatusOK, "User found", UserResponse{}).
		Returns(http.StatusNotFound, "User not found", nil))

	ws.Route(ws.DELETE("/{user-id}").To(ctl.deleteUserHandler).
		Doc("Delete user by ID").
		Param(ws.PathParameter("user-id", "Identifier of the user to delete").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusNoContent, "User deleted successfully", nil).
		Returns(http.StatusNotFound, "User not found", nil))
}

// createUserHandler (Handles POST /users)
func (ctl *UserController) createUserHandler(request *restful.Request, response *restful.Response) {
	input := new(services.CreateUserInput)
	if err := request.ReadEntity(input); err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := ctl.userService.RegisterUser(request.Request.Context(), input)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}
	ctl.logger.Info("User created", zap.String("username", user.Username), zap.Strings("roles", user.RoleNames()))
	_ = response.WriteHeaderAndJson(http.StatusCreated, mapModelToUserResponse(user), restful.MIME_JSON)
}

// getUserByIDHandler (Handles GET /users/{user-id})
func (ctl *UserController) getUserByIDHandler(request *restful.Request, response *restful.Response) {
	userID, ok := parseUserID(request, response)
	if !ok {
		return
	}
	user, err := ctl.userService.GetUserByID(request.Request.Context(), userID)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, mapModelToUserResponse(user), restful.MIME_JSON)
}

// listUsersHandler (Handles GET /users)
func (ctl *UserController) listUsersHandler(request *restful.Request, response *restful.Response) {
	page, err := strconv.Atoi(request.QueryParameter("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(request.QueryParameter("page_size"))
	if err != nil || pageSize < 1 {
		pageSize = 10
	}

	users, total, err := ctl.userService.ListUsers(request.Request.Context(), page, pageSize)
	if err != nil {
		ctl.handleServiceError(response, err)
		return
	}

	userResponses := make([]UserResponse, len(users))
	for i := range users {
		userResponses[i] = mapModelToUserResponse(&users[i])
	}
	_ = response.WriteHeaderAndJson(http.StatusOK, PaginatedUsersResponse{
		Users:    userResponses,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, restful.MIME_JSON)
}

// deleteUserHandler (Handles DELETE /users/{user-id})
func (ctl *UserController) deleteUserHandler(request *restful.Request, response *restful.Response) {
	userID, ok := parseUserID(request, response)
	if !ok {
		return
	}
	if err := ctl.userService.DeleteUser(request.Request.Context(), userID); err != nil {
		ctl.handleServiceError(response, err)
		return
	}
	ctl.logger.Info("User deleted", zap.Uint("user_id", userID))
	response.WriteHeader(http.StatusNoContent)
}

// --- Utility Functions ---

func parseUserID(request *restful.Request, response *restful.Response) (uint, bool) {
	id, err := strconv.ParseUint(request.PathParameter("user-id"), 10, 32)
	if err != nil {
		writeMessage(response, http.StatusBadRequest, "Invalid user ID format")
		return 0, false
	}
	return uint(id), true
}

func writeMessage(response *restful.Response, status int, message string) {
	_ = response.WriteHeaderAndJson(status, map[string]string{"message": message}, restful.MIME_JSON)
}

// handleServiceError translates service errors to HTTP responses.
func (ctl *UserController) handleServiceError(response *restful.Response, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		writeMessage(response, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrUserExists):
		writeMessage(response, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrRoleNotFound):
		writeMessage(response, http.StatusBadRequest, err.Error())
	default:
		ctl.logger.Error("Unhandled service error", zap.Error(err))
		writeMessage(response, http.StatusInternalServerError, "An internal error occurred")
	}
}

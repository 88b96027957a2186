package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"telehealth/config"
	"telehealth/db"
	"telehealth/models"
	"telehealth/utils"

	"github.com/gin-gonic/gin"
)

// ProfileResponse is an account as shown on its settings page.
type ProfileResponse struct {
	models.UserRecord
	ProfileImage string `json:"profileImage,omitempty"`
}

// --- Get Current Profile ---

// GetProfileMeHandler retrieves the profile of the currently authenticated user.
// @Summary      Get Your Own Profile
// @Description  Retrieves the account details (name, national ID, phone number, role, verification flag) of the user who is currently logged in,
// @Description  together with the profile image when one was uploaded. The password is never part of the response.
// @Tags         Profiles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ProfileResponse  "Your profile details."
// @Failure      401  {object}  utils.APIError "Unauthorized: Your access token is missing, invalid, or expired."
// @Failure      404  {object}  utils.APIError "Not Found: no account matches your token."
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /profiles/me [get]
func GetProfileMeHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	email, _, ok := utils.CurrentUser(c)
	if !ok {
		utils.GinInternalServerError(c, "User email not found in context. Middleware issue?")
		return
	}

	ctx := c.Request.Context()
	user, err := svc.Users.GetByEmail(ctx, email)
	if errors.Is(err, db.ErrUserNotFound) {
		// The account vanished while the token was still valid
		utils.GinNotFound(c, "Authenticated user profile not found.")
		return
	}
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to load profile: %v", err))
		return
	}

	image, _, err := svc.Users.ProfileImage(ctx, email)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to load profile image: %v", err))
		return
	}
	c.JSON(http.StatusOK, ProfileResponse{UserRecord: user, ProfileImage: image})
}

// --- Update Profile ---

// UpdateProfileRequest defines the fields allowed for updating a profile.
// Email, role and password cannot be changed here. Password reset has its own flow.
type UpdateProfileRequest struct {
	FullName    string `json:"fullName" binding:"required"`
	NationalID  string `json:"nationalId"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	MedicalCode string `json:"medicalCode"` // Doctors only
}

// UpdateProfileMeHandler updates the profile of the currently authenticated user.
// @Summary      Update Your Own Profile
// @Description  Changes your `fullName`, `nationalId`, `phoneNumber` and, for doctors, `medicalCode`.
// @Description  You *cannot* change your email address, role or password using this endpoint.
// @Tags         Profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        profile body UpdateProfileRequest true "The profile fields. 'fullName' and 'phoneNumber' are required."
// @Success      200  {object}  models.UserRecord  "The updated profile."
// @Failure      400  {object}  utils.APIError "Bad Request: missing required fields or malformed JSON."
// @Failure      401  {object}  utils.APIError "Unauthorized: Your access token is missing, invalid, or expired."
// @Failure      404  {object}  utils.APIError "Not Found: no account matches your token."
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /profiles/me [put]
func UpdateProfileMeHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	email, role, ok := utils.CurrentUser(c)
	if !ok {
		utils.GinInternalServerError(c, "User email not found in context.")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if role == models.RoleDoctor && strings.TrimSpace(req.MedicalCode) == "" {
		utils.GinValidationError(c, map[string]string{"medicalCode": "Medical code is required for doctors"})
		return
	}

	updated, err := svc.Users.Update(c.Request.Context(), email, func(u *models.UserRecord) {
		u.FullName = strings.TrimSpace(req.FullName)
		u.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
		if nid := strings.TrimSpace(req.NationalID); nid != "" {
			u.NationalID = nid
		}
		if u.Role == models.RoleDoctor {
			u.MedicalCode = strings.TrimSpace(req.MedicalCode)
		}
	})
	if errors.Is(err, db.ErrUserNotFound) {
		utils.GinNotFound(c, "Authenticated user profile not found.")
		return
	}
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to update profile: %v", err))
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ProfileImageRequest carries an uploaded image as a data URL or an http(s) URL.
type ProfileImageRequest struct {
	Image string `json:"image" binding:"required"`
}

// UpdateProfileImageHandler stores the profile picture of the current user.
// @Summary      Set Your Profile Image
// @Description  Stores the picture shown on your settings page. Send it as a `data:image/...` URL or as an `http(s)` link.
// @Tags         Profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        image body ProfileImageRequest true "The image."
// @Success      204  "Image stored."
// @Failure      400  {object}  utils.APIError "Bad Request: the image is not a data URL or link."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      404  {object}  utils.APIError "Not Found: no account matches your token."
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /profiles/me/image [put]
func UpdateProfileImageHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	email, _, ok := utils.CurrentUser(c)
	if !ok {
		utils.GinInternalServerError(c, "User email not found in context.")
		return
	}

	var req ProfileImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	image := strings.TrimSpace(req.Image)
	if !strings.HasPrefix(image, "data:image/") && !strings.HasPrefix(image, "http://") && !strings.HasPrefix(image, "https://") {
		utils.GinBadRequest(c, "Image must be a data:image URL or an http(s) link.")
		return
	}

	err := svc.Users.SetProfileImage(c.Request.Context(), email, image)
	if errors.Is(err, db.ErrUserNotFound) {
		utils.GinNotFound(c, "Authenticated user profile not found.")
		return
	}
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to store profile image: %v", err))
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Search Profiles ---

// SearchProfilesResponse defines the structure for the paginated profile search results.
type SearchProfilesResponse struct {
	Data  []models.UserRecord `json:"data"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// SearchProfilesHandler searches the account directory.
// @Summary      Search User Profiles
// @Description  Lists accounts, for example the doctors a patient can consult.
// @Description
// @Description  Filters (combined with AND):
// @Description  *   `role`: `patient` or `doctor`.
// @Description  *   `name`: full name contains the text (case-insensitive).
// @Description  *   `email`: email contains the text (case-insensitive).
// @Description
// @Description  Results are sorted by creation time (`order=asc|desc`) and paginated with `page` (from 1) and `limit` (default 20, max 100).
// @Tags         Profiles
// @Produce      json
// @Security     BearerAuth
// @Param        role   query  string  false  "Account role." Enums(patient, doctor)
// @Param        name   query  string  false  "Substring of the full name." example(Jolie)
// @Param        email  query  string  false  "Substring of the email." example(gmail.com)
// @Param        order  query  string  false  "Sort by creation time." Enums(asc, desc) default(asc)
// @Param        page   query  int     false  "Page number (starts at 1)." minimum(1) default(1)
// @Param        limit  query  int     false  "Profiles per page." minimum(1) maximum(100) default(20)
// @Success      200  {object}  SearchProfilesResponse "Matching profiles and pagination details."
// @Failure      400  {object}  utils.APIError "Bad Request: invalid role, order, page or limit."
// @Failure      401  {object}  utils.APIError "Unauthorized"
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /profiles [get]
func SearchProfilesHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	pageQuery := c.DefaultQuery("page", "1")
	limitQuery := c.DefaultQuery("limit", "20")

	page, errPage := strconv.Atoi(pageQuery)
	limit, errLimit := strconv.Atoi(limitQuery)
	if errPage != nil || errLimit != nil || page < 1 || limit < 1 {
		utils.GinBadRequest(c, "Invalid 'page' or 'limit' query parameter. Must be positive integers.")
		return
	}
	if limit > 100 {
		limit = 100
	}

	query := db.UserQuery{
		Role:  models.Role(strings.ToLower(c.Query("role"))),
		Name:  c.Query("name"),
		Email: c.Query("email"),
		Order: c.Query("order"),
		Page:  page,
		Limit: limit,
	}
	if query.Role != "" && !query.Role.Valid() {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid role value: '%s', expected 'patient' or 'doctor'", query.Role))
		return
	}
	if o := strings.ToLower(query.Order); o != "" && o != "asc" && o != "desc" {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid order value: '%s', expected 'asc' or 'desc'", query.Order))
		return
	}

	users, total, err := svc.Users.List(c.Request.Context(), query)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to search profiles: %v", err))
		return
	}

	c.JSON(http.StatusOK, SearchProfilesResponse{
		Data:  users,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"telehealth/config"
	"telehealth/db"
	"telehealth/mail"
	"telehealth/models"
	"telehealth/utils"
	"telehealth/verification"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgInvalidCode        = "Invalid verification code. Please try again."
	msgCannotResend       = "Unable to resend email. Please try signing up again."
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// --- Signup ---

// SignupRequest is the registration form.
type SignupRequest struct {
	FullName       string      `json:"fullName"`
	NationalID     string      `json:"nationalId"`
	Email          string      `json:"email"`
	MedicalCode    string      `json:"medicalCode"`
	PhoneNumber    string      `json:"phoneNumber"`
	Password       string      `json:"password"`
	RepeatPassword string      `json:"repeatPassword"`
	Role           models.Role `json:"role"` // Defaults to patient
}

// SignupResponse is returned after a successful registration.
type SignupResponse struct {
	User                     models.UserRecord `json:"user"`
	PendingVerificationEmail string            `json:"pending_verification_email"`
}

// validate returns one message per invalid field, empty when the form is acceptable.
func (r *SignupRequest) validate() map[string]string {
	fields := make(map[string]string)

	if strings.TrimSpace(r.FullName) == "" {
		fields["fullName"] = "Full name is required"
	}
	if strings.TrimSpace(r.NationalID) == "" {
		fields["nationalId"] = "National ID is required"
	}
	if strings.TrimSpace(r.Email) == "" {
		fields["email"] = "Email is required"
	} else if !emailPattern.MatchString(r.Email) {
		fields["email"] = "Email is invalid"
	}
	if !r.Role.Valid() {
		fields["role"] = "Role must be patient or doctor"
	} else if r.Role == models.RoleDoctor && strings.TrimSpace(r.MedicalCode) == "" {
		fields["medicalCode"] = "Medical code is required for doctors"
	}
	if r.Password == "" {
		fields["password"] = "Password is required"
	} else if len(r.Password) < 8 {
		fields["password"] = "Password must be at least 8 characters"
	}
	if strings.TrimSpace(r.PhoneNumber) == "" {
		fields["phoneNumber"] = "Phone number is required"
	}
	if r.RepeatPassword == "" {
		fields["repeatPassword"] = "Please repeat your password"
	} else if r.Password != r.RepeatPassword {
		fields["repeatPassword"] = "Passwords do not match"
	}
	return fields
}

// SignupHandler registers a new account and sends its verification email.
// @Summary      Create an Account
// @Description  Registers a patient or doctor account and sends a verification email to the mock mailbox of the address.
// @Description
// @Description  Every field is validated at once; a 400 response lists one message per invalid field under `fields`.
// @Description  Doctors must also provide their `medicalCode`. The new account starts unverified.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        signup body SignupRequest true "The registration form."
// @Success      201  {object}  SignupResponse "Account created. `pending_verification_email` is the address the verification email was sent to."
// @Failure      400  {object}  utils.ValidationError "Validation failed: the body lists the invalid fields."
// @Failure      409  {object}  utils.APIError "Conflict: an account with this email already exists."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the account could not be stored."
// @Router       /auth/signup [post]
func SignupHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Role == "" {
		req.Role = models.RolePatient
	}
	if fields := req.validate(); len(fields) > 0 {
		utils.GinValidationError(c, fields)
		return
	}

	user := models.UserRecord{
		FullName:    strings.TrimSpace(req.FullName),
		NationalID:  strings.TrimSpace(req.NationalID),
		Email:       req.Email,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Role:        req.Role,
	}
	if req.Role == models.RoleDoctor {
		user.MedicalCode = strings.TrimSpace(req.MedicalCode)
	}

	created, err := svc.Users.Create(c.Request.Context(), user, req.Password)
	if errors.Is(err, db.ErrEmailExists) {
		utils.GinConflict(c, "An account with this email already exists.")
		return
	}
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to create account: %v", err))
		return
	}

	// The account exists either way; the user can ask for a resend.
	if _, err := svc.Mail.SendVerificationEmail(c.Request.Context(), created.Email, created.FullName); err != nil {
		log.Printf("ERROR: Failed to send verification email to %s: %v", created.Email, err)
	}

	c.JSON(http.StatusCreated, SignupResponse{User: created, PendingVerificationEmail: created.Email})
}

// --- Login / Logout ---

// LoginRequest holds sign-in credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the session token and the signed-in account.
type LoginResponse struct {
	Token string            `json:"token"`
	User  models.UserRecord `json:"user"`
}

// LoginHandler exchanges credentials for a session token.
// @Summary      Log In
// @Description  Checks the email and password and returns a JWT to send as `Authorization: Bearer <token>` on protected routes.
// @Description  The returned `user.role` tells the client which dashboard to open.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "Email and password."
// @Success      200  {object}  LoginResponse "Signed in."
// @Failure      400  {object}  utils.APIError "Bad Request: email or password missing."
// @Failure      401  {object}  utils.APIError "Unauthorized: Invalid email or password."
// @Failure      500  {object}  utils.APIError "Internal Server Error: the token could not be issued."
// @Router       /auth/login [post]
func LoginHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	user, err := svc.Users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, db.ErrInvalidCredentials) {
		utils.GinUnauthorized(c, msgInvalidCredentials)
		return
	}
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to sign in: %v", err))
		return
	}

	token, err := utils.GenerateJWT(&user, cfg)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to generate token: %v", err))
		return
	}

	log.Printf("INFO: %s %s signed in", user.Role, user.Email)
	c.JSON(http.StatusOK, LoginResponse{Token: token, User: user})
}

// LogoutHandler ends the caller's session state.
// @Summary      Log Out
// @Description  Discards the caller's dashboard workspace and cancels pending conversation replies.
// @Description  Tokens are stateless, so the client must also forget its token.
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string "Logged out."
// @Failure      401  {object}  utils.APIError "Unauthorized: missing or invalid token."
// @Router       /auth/logout [post]
func LogoutHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	email, _, ok := utils.CurrentUser(c)
	if !ok {
		utils.GinInternalServerError(c, "User email not found in context. Middleware issue?")
		return
	}
	svc.Workspaces.Drop(email)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// --- Email Verification ---

// EmailRequest carries a single address.
type EmailRequest struct {
	Email string `json:"email"`
}

// VerifyEmailHandler checks a verification link and marks the account verified.
// @Summary      Verify an Email Address
// @Description  Follows the link from the verification email. When the code is the current one for the address and has not expired, the account is marked verified.
// @Description  Codes are not consumed, so following the same link again succeeds again.
// @Tags         Authentication
// @Produce      json
// @Param        email  query  string  true  "The address being verified."
// @Param        code   query  string  true  "The code from the email."
// @Success      200  {object}  verification.State "Verified. The state shows the masked address."
// @Failure      400  {object}  utils.APIError "Bad Request: missing parameters, or the code is wrong or expired."
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /auth/verify-email [get]
func VerifyEmailHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	email := c.Query("email")
	code := c.Query("code")
	if strings.TrimSpace(email) == "" || code == "" {
		utils.GinBadRequest(c, "Query parameters 'email' and 'code' are required.")
		return
	}

	ctx := c.Request.Context()
	valid, err := svc.Mail.VerifyEmailWithCode(ctx, email, code)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to verify code: %v", err))
		return
	}
	if !valid {
		utils.GinBadRequest(c, msgInvalidCode)
		return
	}

	err = svc.Users.MarkVerified(ctx, email)
	if err != nil && !errors.Is(err, db.ErrUserNotFound) {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to mark account verified: %v", err))
		return
	}
	if errors.Is(err, db.ErrUserNotFound) {
		log.Printf("WARN: Verified code for %s, which has no account", utils.NormalizeEmail(email))
	}

	expiresAt, err := svc.Mail.ExpiresAt(ctx, email)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to read code expiry: %v", err))
		return
	}
	c.JSON(http.StatusOK, pageState(email, true, expiresAt))
}

// ResendVerificationHandler sends a fresh verification email.
// @Summary      Resend the Verification Email
// @Description  Sends a new verification email to a registered address. The new code replaces the previous one.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body body EmailRequest true "The address awaiting verification."
// @Success      200  {object}  map[string]string "Email resent."
// @Failure      400  {object}  utils.APIError "Unable to resend email. Please try signing up again."
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /auth/verify-email/resend [post]
func ResendVerificationHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		utils.GinBadRequest(c, msgCannotResend)
		return
	}

	ctx := c.Request.Context()
	user, err := svc.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, db.ErrUserNotFound) {
		utils.GinBadRequest(c, msgCannotResend)
		return
	}
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to load account: %v", err))
		return
	}

	if _, err := svc.Mail.SendVerificationEmail(ctx, user.Email, user.FullName); err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to send email: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Verification email has been resent from %s!", mail.SenderAddress)})
}

// VerificationStatusHandler reports what the verification page shows for an address.
// @Summary      Verification Page State
// @Description  Returns the masked address, whether the account is verified and when the current code expires. The code itself is never returned.
// @Tags         Authentication
// @Produce      json
// @Param        email  query  string  true  "The address awaiting verification."
// @Success      200  {object}  verification.State "Current state."
// @Failure      400  {object}  utils.APIError "Bad Request: missing email."
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /auth/verify-email/status [get]
func VerificationStatusHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	email := c.Query("email")
	if strings.TrimSpace(email) == "" {
		utils.GinBadRequest(c, "Query parameter 'email' is required.")
		return
	}

	ctx := c.Request.Context()
	verified := false
	user, err := svc.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		verified = user.EmailVerified
	case !errors.Is(err, db.ErrUserNotFound):
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to load account: %v", err))
		return
	}

	expiresAt, err := svc.Mail.ExpiresAt(ctx, email)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to read code expiry: %v", err))
		return
	}
	c.JSON(http.StatusOK, pageState(email, verified, expiresAt))
}

// pageState derives the verification page state through the reducer.
func pageState(email string, verified bool, expiresAt time.Time) verification.State {
	actions := []verification.Action{
		{Type: verification.SetEmail, Email: verification.MaskEmail(utils.NormalizeEmail(email))},
		{Type: verification.SetVerified, Verified: verified},
	}
	if !expiresAt.IsZero() {
		actions = append(actions, verification.Action{Type: verification.SetExpiresAt, ExpiresAt: &expiresAt})
	}
	return verification.ReduceAll(verification.Initial(), actions...)
}

// --- Password Reset ---

// ForgotPasswordHandler sends a reset code to a registered address.
// @Summary      Request a Password Reset
// @Description  Sends a verification email carrying a reset code when the address belongs to an account.
// @Description  The response is the same whether or not the account exists.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body body EmailRequest true "The account address."
// @Success      200  {object}  map[string]string "If the account exists, a code was sent."
// @Failure      400  {object}  utils.ValidationError "Validation failed: missing or malformed email."
// @Router       /auth/forgot-password [post]
func ForgotPasswordHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		utils.GinValidationError(c, map[string]string{"email": "Email is required"})
		return
	}
	if !emailPattern.MatchString(req.Email) {
		utils.GinValidationError(c, map[string]string{"email": "Email is invalid"})
		return
	}

	ctx := c.Request.Context()
	user, err := svc.Users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		if _, err := svc.Mail.SendVerificationEmail(ctx, user.Email, user.FullName); err != nil {
			log.Printf("ERROR: Failed to send reset code to %s: %v", user.Email, err)
		}
	case errors.Is(err, db.ErrUserNotFound):
		log.Printf("INFO: Password reset requested for unknown address %s", utils.NormalizeEmail(req.Email))
	default:
		log.Printf("ERROR: Failed to look up %s for password reset: %v", utils.NormalizeEmail(req.Email), err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "If an account exists for this email, a verification code has been sent."})
}

// VerifyCodeRequest pairs an address with the code sent to it.
type VerifyCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// VerifyResetCodeHandler checks a reset code without changing anything.
// @Summary      Check a Reset Code
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body body VerifyCodeRequest true "Address and code."
// @Success      200  {object}  map[string]bool "The code is valid."
// @Failure      400  {object}  utils.APIError "Invalid verification code. Please try again."
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /auth/forgot-password/verify-code [post]
func VerifyResetCodeHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	valid, err := svc.Mail.VerifyEmailWithCode(c.Request.Context(), req.Email, strings.TrimSpace(req.Code))
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to verify code: %v", err))
		return
	}
	if !valid {
		utils.GinBadRequest(c, msgInvalidCode)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// ResetPasswordRequest sets a new password using a reset code.
type ResetPasswordRequest struct {
	Email           string `json:"email" binding:"required"`
	Code            string `json:"code" binding:"required"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetPasswordHandler replaces the password of an account.
// @Summary      Reset a Password
// @Description  Stores a new password for the account once the reset code checks out.
// @Description  The password must be at least 8 characters long and match its confirmation.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body body ResetPasswordRequest true "Address, code and the new password twice."
// @Success      200  {object}  map[string]string "Password changed."
// @Failure      400  {object}  utils.APIError "Bad Request: weak or mismatched password, or an invalid code."
// @Failure      404  {object}  utils.APIError "Not Found: no account for this address."
// @Failure      500  {object}  utils.APIError "Internal Server Error"
// @Router       /auth/reset-password [post]
func ResetPasswordHandler(c *gin.Context, svc *Services, cfg *config.Config) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if len(req.Password) < 8 {
		utils.GinBadRequest(c, "Password must be at least 8 characters long")
		return
	}
	if req.Password != req.ConfirmPassword {
		utils.GinBadRequest(c, "Passwords do not match")
		return
	}

	ctx := c.Request.Context()
	valid, err := svc.Mail.VerifyEmailWithCode(ctx, req.Email, strings.TrimSpace(req.Code))
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to verify code: %v", err))
		return
	}
	if !valid {
		utils.GinBadRequest(c, msgInvalidCode)
		return
	}

	err = svc.Users.SetPassword(ctx, req.Email, req.Password)
	if errors.Is(err, db.ErrUserNotFound) {
		utils.GinNotFound(c, "No account exists for this email.")
		return
	}
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to reset password: %v", err))
		return
	}

	log.Printf("INFO: Password reset for %s", utils.NormalizeEmail(req.Email))
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

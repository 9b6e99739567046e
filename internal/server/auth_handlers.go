package server

import (
	"errors"

	"yatube/internal/forms"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SignupPage shows the registration form.
func (s *Server) SignupPage(c *fiber.Ctx) error {
	return s.render(c, "users/signup", fiber.Map{"Title": "Sign up", "Form": &forms.SignupForm{}})
}

// Signup creates the account, signs the new user in and sends them home.
func (s *Server) Signup(c *fiber.Ctx) error {
	form := forms.BindSignupForm(c)
	if !form.Validate() {
		return s.render(c, "users/signup", fiber.Map{"Title": "Sign up", "Form": form})
	}

	user, err := s.accountService.Signup(c.UserContext(), service.SignupInput{
		Username:  form.Username,
		Email:     form.Email,
		Password:  form.Password1,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			form.Errors.Add("username", msg)
			return s.render(c, "users/signup", fiber.Map{"Title": "Sign up", "Form": form})
		}
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusFound)
}

// LoginPage shows the sign-in form; next is carried through to the POST.
func (s *Server) LoginPage(c *fiber.Ctx) error {
	form := &forms.LoginForm{Next: c.Query("next")}
	return s.render(c, "users/login", fiber.Map{"Title": "Log in", "Form": form})
}

// Login checks credentials and redirects to next, or home.
func (s *Server) Login(c *fiber.Ctx) error {
	form := forms.BindLoginForm(c)
	if !form.Validate() {
		return s.render(c, "users/login", fiber.Map{"Title": "Log in", "Form": form})
	}

	user, err := s.accountService.Authenticate(c.UserContext(), form.Username, form.Password)
	if err != nil {
		var appErr *models.AppError
		if service.IsUnauthorized(err) && errors.As(err, &appErr) {
			form.Errors.Add("", appErr.Message)
			return s.render(c, "users/login", fiber.Map{"Title": "Log in", "Form": form})
		}
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect(safeNext(form.Next), fiber.StatusFound)
}

// Logout revokes the session and shows the logged-out page.
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims := currentSession(c); claims != nil {
		// A failed revocation still clears the cookie.
		_ = s.accountService.Logout(c.UserContext(), claims)
	}
	s.clearSessionCookie(c)
	c.Locals("user", nil)
	c.Locals("session", nil)
	return s.render(c, "users/logged_out", fiber.Map{"Title": "Logged out"})
}

// PasswordChangePage shows the change password form.
func (s *Server) PasswordChangePage(c *fiber.Ctx) error {
	return s.render(c, "users/password_change_form", fiber.Map{
		"Title": "Change password",
		"Form":  &forms.PasswordChangeForm{},
	})
}

// PasswordChange verifies the old password and stores the new one.
func (s *Server) PasswordChange(c *fiber.Ctx) error {
	user := currentUser(c)
	form := forms.BindPasswordChangeForm(c)
	rerender := func() error {
		return s.render(c, "users/password_change_form", fiber.Map{"Title": "Change password", "Form": form})
	}
	if !form.Validate(user.Username) {
		return rerender()
	}

	if err := s.accountService.ChangePassword(c.UserContext(), user.ID, form.OldPassword, form.NewPassword1); err != nil {
		if msg, ok := validationMessage(err); ok {
			form.Errors.Add("old_password", msg)
			return rerender()
		}
		return err
	}
	return c.Redirect("/auth/password_change/done/", fiber.StatusFound)
}

func (s *Server) PasswordChangeDone(c *fiber.Ctx) error {
	return s.render(c, "users/password_change_done", fiber.Map{"Title": "Password changed"})
}

// PasswordResetPage asks for the account email.
func (s *Server) PasswordResetPage(c *fiber.Ctx) error {
	return s.render(c, "users/password_reset_form", fiber.Map{
		"Title": "Reset password",
		"Form":  &forms.PasswordResetForm{},
	})
}

// PasswordReset issues a reset link when the address belongs to an account.
// The response never reveals whether it does.
func (s *Server) PasswordReset(c *fiber.Ctx) error {
	form := forms.BindPasswordResetForm(c)
	if !form.Validate() {
		return s.render(c, "users/password_reset_form", fiber.Map{"Title": "Reset password", "Form": form})
	}
	if _, err := s.accountService.RequestPasswordReset(c.UserContext(), form.Email); err != nil {
		return err
	}
	return c.Redirect("/auth/password_reset/done/", fiber.StatusFound)
}

func (s *Server) PasswordResetDone(c *fiber.Ctx) error {
	return s.render(c, "users/password_reset_done", fiber.Map{"Title": "Password reset sent"})
}

// PasswordResetConfirmPage shows the new password form for a valid link.
func (s *Server) PasswordResetConfirmPage(c *fiber.Ctx) error {
	uid, token := c.Params("uid"), c.Params("token")
	_, err := s.accountService.CheckResetLink(c.UserContext(), uid, token)
	if err != nil && !models.HasCode(err, models.CodeValidation) {
		return err
	}
	return s.render(c, "users/password_reset_confirm", fiber.Map{
		"Title":     "Enter new password",
		"ValidLink": err == nil,
		"UID":       uid,
		"Token":     token,
		"Form":      &forms.SetPasswordForm{},
	})
}

// PasswordResetConfirm sets the new password through a reset link.
func (s *Server) PasswordResetConfirm(c *fiber.Ctx) error {
	ctx := c.UserContext()
	uid, token := c.Params("uid"), c.Params("token")
	data := fiber.Map{"Title": "Enter new password", "UID": uid, "Token": token}

	user, err := s.accountService.CheckResetLink(ctx, uid, token)
	if err != nil {
		if models.HasCode(err, models.CodeValidation) {
			data["ValidLink"] = false
			data["Form"] = &forms.SetPasswordForm{}
			return s.render(c, "users/password_reset_confirm", data)
		}
		return err
	}

	form := forms.BindSetPasswordForm(c)
	data["ValidLink"] = true
	data["Form"] = form
	if !form.Validate(user.Username) {
		return s.render(c, "users/password_reset_confirm", data)
	}
	if err := s.accountService.ResetPassword(ctx, uid, token, form.NewPassword1); err != nil {
		return err
	}
	return c.Redirect("/auth/reset/done/", fiber.StatusFound)
}

func (s *Server) PasswordResetComplete(c *fiber.Ctx) error {
	return s.render(c, "users/password_reset_complete", fiber.Map{"Title": "Password reset complete"})
}

func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, err := s.accountService.StartSession(user)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, token)
	return nil
}

// validationMessage extracts the message of a VALIDATION_ERROR.
func validationMessage(err error) (string, bool) {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
		return appErr.Message, true
	}
	return "", false
}

package forms

import (
	"yatube/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// SignupForm is the registration page.
type SignupForm struct {
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Username  string `form:"username" validate:"notblank"`
	Email     string `form:"email"`
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required"`
	Errors    Errors `form:"-"`
}

func BindSignupForm(c *fiber.Ctx) *SignupForm {
	return &SignupForm{
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
		Username:  c.FormValue("username"),
		Email:     c.FormValue("email"),
		Password1: c.FormValue("password1"),
		Password2: c.FormValue("password2"),
		Errors:    Errors{},
	}
}

func (f *SignupForm) Validate() bool {
	if f.Errors == nil {
		f.Errors = Errors{}
	}
	collect(f, f.Errors)

	if f.Username != "" {
		if err := validation.ValidateUsername(f.Username); err != nil {
			f.Errors.Add("username", err.Error())
		}
	}
	if err := validation.ValidateEmail(f.Email); err != nil {
		f.Errors.Add("email", err.Error())
	}
	checkNewPassword(f.Errors, "password2", f.Password1, f.Password2, f.Username)

	return !f.Errors.Any()
}

// LoginForm is the sign-in page. Next is the page to return to.
type LoginForm struct {
	Username string `form:"username" validate:"notblank"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
	Errors   Errors `form:"-"`
}

func BindLoginForm(c *fiber.Ctx) *LoginForm {
	return &LoginForm{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
		Next:     c.FormValue("next"),
		Errors:   Errors{},
	}
}

func (f *LoginForm) Validate() bool {
	if f.Errors == nil {
		f.Errors = Errors{}
	}
	collect(f, f.Errors)
	return !f.Errors.Any()
}

// PasswordChangeForm asks for the current password and a new one twice.
type PasswordChangeForm struct {
	OldPassword  string `form:"old_password" validate:"required"`
	NewPassword1 string `form:"new_password1" validate:"required"`
	NewPassword2 string `form:"new_password2" validate:"required"`
	Errors       Errors `form:"-"`
}

func BindPasswordChangeForm(c *fiber.Ctx) *PasswordChangeForm {
	return &PasswordChangeForm{
		OldPassword:  c.FormValue("old_password"),
		NewPassword1: c.FormValue("new_password1"),
		NewPassword2: c.FormValue("new_password2"),
		Errors:       Errors{},
	}
}

// Validate checks field presence and the new password rules; the old password
// is verified by the account service.
func (f *PasswordChangeForm) Validate(username string) bool {
	if f.Errors == nil {
		f.Errors = Errors{}
	}
	collect(f, f.Errors)
	checkNewPassword(f.Errors, "new_password2", f.NewPassword1, f.NewPassword2, username)
	return !f.Errors.Any()
}

// PasswordResetForm asks for the account email.
type PasswordResetForm struct {
	Email  string `form:"email" validate:"required,email"`
	Errors Errors `form:"-"`
}

func BindPasswordResetForm(c *fiber.Ctx) *PasswordResetForm {
	return &PasswordResetForm{Email: c.FormValue("email"), Errors: Errors{}}
}

func (f *PasswordResetForm) Validate() bool {
	if f.Errors == nil {
		f.Errors = Errors{}
	}
	collect(f, f.Errors)
	return !f.Errors.Any()
}

// SetPasswordForm sets a new password from a reset link.
type SetPasswordForm struct {
	NewPassword1 string `form:"new_password1" validate:"required"`
	NewPassword2 string `form:"new_password2" validate:"required"`
	Errors       Errors `form:"-"`
}

func BindSetPasswordForm(c *fiber.Ctx) *SetPasswordForm {
	return &SetPasswordForm{
		NewPassword1: c.FormValue("new_password1"),
		NewPassword2: c.FormValue("new_password2"),
		Errors:       Errors{},
	}
}

func (f *SetPasswordForm) Validate(username string) bool {
	if f.Errors == nil {
		f.Errors = Errors{}
	}
	collect(f, f.Errors)
	checkNewPassword(f.Errors, "new_password2", f.NewPassword1, f.NewPassword2, username)
	return !f.Errors.Any()
}

func checkNewPassword(errs Errors, field, p1, p2, username string) {
	if p1 == "" || p2 == "" {
		return
	}
	if p1 != p2 {
		errs.Add(field, "The two password fields didn't match.")
		return
	}
	for _, problem := range validation.ValidatePassword(p2, username) {
		errs.Add(field, problem)
	}
}

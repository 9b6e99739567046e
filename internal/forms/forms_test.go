package forms

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var smallGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x02, 0x00,
	0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x0C,
	0x0A, 0x00, 0x3B,
}

type groupLookupStub struct {
	getFn func(ctx context.Context, id uint) (*models.Group, error)
}

func (s groupLookupStub) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	return s.getFn(ctx, id)
}

func knownGroups(ids ...uint) groupLookupStub {
	return groupLookupStub{getFn: func(_ context.Context, id uint) (*models.Group, error) {
		for _, known := range ids {
			if known == id {
				return &models.Group{ID: id}, nil
			}
		}
		return nil, models.NewNotFoundError("Group", id)
	}}
}

func TestPostForm_Validate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		form      PostForm
		valid     bool
		errFields []string
	}{
		{"text only", PostForm{Text: "hello"}, true, nil},
		{"text and group", PostForm{Text: "hello", Group: "3"}, true, nil},
		{"empty text", PostForm{Text: ""}, false, []string{"text"}},
		{"blank text", PostForm{Text: "   \n"}, false, []string{"text"}},
		{"unknown group", PostForm{Text: "hello", Group: "99"}, false, []string{"group"}},
		{"garbage group", PostForm{Text: "hello", Group: "cats"}, false, []string{"group"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.form
			ok, err := f.Validate(ctx, knownGroups(3))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, ok)
			for _, field := range tt.errFields {
				assert.True(t, f.Errors.Has(field), "expected error on %s", field)
			}
		})
	}
}

func TestPostForm_ValidateLookupFailure(t *testing.T) {
	f := PostForm{Text: "hello", Group: "1"}
	boom := errors.New("db down")
	ok, err := f.Validate(context.Background(), groupLookupStub{getFn: func(context.Context, uint) (*models.Group, error) {
		return nil, models.NewInternalError(boom)
	}})
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestPostForm_ValidateAndPrefill(t *testing.T) {
	f := PostForm{Text: "new text", Group: "3"}
	ok, err := f.Validate(context.Background(), knownGroups(3))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, f.GroupID())
	assert.Equal(t, uint(3), *f.GroupID())

	group := uint(3)
	post := &models.Post{ID: 1, AuthorID: 7, Text: "new text", GroupID: &group}
	prefilled := NewPostForm(post)
	assert.Equal(t, "new text", prefilled.Text)
	assert.True(t, prefilled.SelectedGroup(3))
	assert.False(t, prefilled.SelectedGroup(4))
}

func multipartBody(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestBindPostForm_Multipart(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		valid   bool
	}{
		{"gif upload", smallGIF, true},
		{"text file upload", []byte("plain text"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var got *PostForm
			var ok bool
			app.Post("/", func(c *fiber.Ctx) error {
				got = BindPostForm(c)
				var err error
				ok, err = got.Validate(c.UserContext(), knownGroups())
				return err
			})

			body, ct := multipartBody(t, map[string]string{"text": "with image"}, "small.gif", tt.content)
			req := httptest.NewRequest("POST", "/", body)
			req.Header.Set("Content-Type", ct)
			_, err := app.Test(req, -1)
			require.NoError(t, err)

			require.NotNil(t, got)
			assert.Equal(t, "with image", got.Text)
			require.NotNil(t, got.Image)
			assert.Equal(t, "small.gif", got.Image.Filename)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, !tt.valid, got.Errors.Has("image"))
		})
	}
}

func TestCommentForm(t *testing.T) {
	f := &CommentForm{Text: ""}
	assert.False(t, f.Validate())
	assert.Equal(t, []string{"This field is required."}, f.Errors.Get("text"))

	f = &CommentForm{Text: "nice"}
	assert.True(t, f.Validate())
	assert.False(t, f.Errors.Any())
}

func TestSignupForm(t *testing.T) {
	app := fiber.New()
	var got *SignupForm
	var ok bool
	app.Post("/", func(c *fiber.Ctx) error {
		got = BindSignupForm(c)
		ok = got.Validate()
		return nil
	})

	post := func(values url.Values) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		_, err := app.Test(req, -1)
		require.NoError(t, err)
	}

	post(url.Values{
		"username":  {"leo"},
		"email":     {"leo@example.com"},
		"password1": {"War-And-Peace-1869"},
		"password2": {"War-And-Peace-1869"},
	})
	assert.True(t, ok, "errors: %v", got.Errors)

	post(url.Values{
		"username":  {"leo tolstoy"},
		"email":     {"nope"},
		"password1": {"War-And-Peace-1869"},
		"password2": {"different"},
	})
	assert.False(t, ok)
	assert.True(t, got.Errors.Has("username"))
	assert.True(t, got.Errors.Has("email"))
	assert.True(t, got.Errors.Has("password2"))
}

func TestPasswordForms(t *testing.T) {
	change := &PasswordChangeForm{OldPassword: "x", NewPassword1: "short", NewPassword2: "short"}
	assert.False(t, change.Validate("leo"))
	assert.True(t, change.Errors.Has("new_password2"))

	reset := &PasswordResetForm{Email: "not-an-email"}
	assert.False(t, reset.Validate())
	assert.True(t, reset.Errors.Has("email"))

	set := &SetPasswordForm{NewPassword1: "War-And-Peace-1869", NewPassword2: "War-And-Peace-1869"}
	assert.True(t, set.Validate("leo"))

	login := &LoginForm{}
	assert.False(t, login.Validate())
	assert.True(t, login.Errors.Has("username"))
	assert.True(t, login.Errors.Has("password"))
}

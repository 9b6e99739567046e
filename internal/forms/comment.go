package forms

import "github.com/gofiber/fiber/v2"

// CommentForm carries the single text field under a post.
type CommentForm struct {
	Text   string `form:"text" validate:"notblank"`
	Errors Errors `form:"-"`
}

// NewCommentForm returns an empty form.
func NewCommentForm() *CommentForm {
	return &CommentForm{Errors: Errors{}}
}

// BindCommentForm reads text from the request body.
func BindCommentForm(c *fiber.Ctx) *CommentForm {
	return &CommentForm{Text: c.FormValue("text"), Errors: Errors{}}
}

// Validate fills Errors and reports whether the form is valid.
func (f *CommentForm) Validate() bool {
	if f.Errors == nil {
		f.Errors = Errors{}
	}
	collect(f, f.Errors)
	return !f.Errors.Any()
}


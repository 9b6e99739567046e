package forms

import (
	"context"
	"mime/multipart"
	"strconv"
	"strings"

	"yatube/internal/media"
	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	invalidGroupMessage = "Select a valid choice. That choice is not one of the available choices."
	invalidImageMessage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
)

// GroupLookup resolves a group by id.
type GroupLookup interface {
	GetByID(ctx context.Context, id uint) (*models.Group, error)
}

// PostForm carries the fields of the create and edit post pages.
type PostForm struct {
	Text  string `form:"text" validate:"notblank"`
	Group string `form:"group"`

	Image  *multipart.FileHeader `form:"-"`
	Errors Errors                `form:"-"`

	groupID *uint
}

// NewPostForm prefills the form from an existing post.
func NewPostForm(post *models.Post) *PostForm {
	f := &PostForm{Errors: Errors{}}
	if post != nil {
		f.Text = post.Text
		if post.GroupID != nil {
			f.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
		}
	}
	return f
}

// BindPostForm reads text, group and image from a urlencoded or multipart body.
func BindPostForm(c *fiber.Ctx) *PostForm {
	f := &PostForm{
		Text:   c.FormValue("text"),
		Group:  strings.TrimSpace(c.FormValue("group")),
		Errors: Errors{},
	}
	if fh, err := c.FormFile("image"); err == nil && fh != nil && fh.Size > 0 {
		f.Image = fh
	}
	return f
}

// Validate fills Errors and reports whether the form is valid. A non-nil error
// means the group lookup itself failed.
func (f *PostForm) Validate(ctx context.Context, groups GroupLookup) (bool, error) {
	if f.Errors == nil {
		f.Errors = Errors{}
	}
	collect(f, f.Errors)

	if f.Group != "" {
		id, err := strconv.ParseUint(f.Group, 10, 64)
		if err != nil || id == 0 {
			f.Errors.Add("group", invalidGroupMessage)
		} else if _, err := groups.GetByID(ctx, uint(id)); err != nil {
			if !models.IsNotFound(err) {
				return false, err
			}
			f.Errors.Add("group", invalidGroupMessage)
		} else {
			gid := uint(id)
			f.groupID = &gid
		}
	}

	if f.Image != nil {
		file, err := f.Image.Open()
		if err != nil {
			f.Errors.Add("image", invalidImageMessage)
		} else {
			if _, err := media.DetectImage(file); err != nil {
				f.Errors.Add("image", invalidImageMessage)
			}
			_ = file.Close()
		}
	}

	return !f.Errors.Any(), nil
}

// GroupID is the validated group reference, nil when none was chosen.
func (f *PostForm) GroupID() *uint {
	return f.groupID
}

// SelectedGroup reports whether id is the currently chosen group, for <option selected>.
func (f *PostForm) SelectedGroup(id uint) bool {
	return f.Group == strconv.FormatUint(uint64(id), 10)
}

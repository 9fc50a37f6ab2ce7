// Package validation declares the request forms the API binds and the
// custom validator tags they use.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/fairpipe/fairpipe-api/internal/hls"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// Register installs the custom tags on gin's validator engine. It is safe
// to call more than once.
func Register() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		v.RegisterTagNameFunc(formName)
		err = v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
			return hls.ValidLanguage(fl.Field().String())
		})
	})
	return err
}

// formName reports fields by the key clients send them under.
func formName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

// RegisterForm is the body of POST /auth/register.
type RegisterForm struct {
	Email       string `form:"email" json:"email" binding:"required,email,max=254"`
	Username    string `form:"username" json:"username" binding:"required,min=3,max=50"`
	Password    string `form:"password" json:"password" binding:"required,min=8,max=72"`
	DisplayName string `form:"displayName" json:"displayName" binding:"omitempty,max=100"`
}

// LoginForm is the body of POST /auth/login.
type LoginForm struct {
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required"`
}

// ProfileForm is the body of PATCH /user/update. Nil fields stay unchanged.
type ProfileForm struct {
	DisplayName *string `form:"displayName" json:"displayName" binding:"omitempty,max=100"`
	Bio         *string `form:"bio" json:"bio" binding:"omitempty,max=1000"`
}

// VideoUploadForm holds the text fields of POST /video/upload.
type VideoUploadForm struct {
	Title       string `form:"title" binding:"required,max=255"`
	Description string `form:"description" binding:"max=5000"`
	Subtitles   bool   `form:"subtitles"`
}

// VideoUpdateForm is the body of PATCH /video/update.
type VideoUpdateForm struct {
	ID          string  `form:"id" binding:"required"`
	Title       *string `form:"title" binding:"omitempty,max=255"`
	Description *string `form:"description" binding:"omitempty,max=5000"`
}

// IDForm carries a single resource id.
type IDForm struct {
	ID string `form:"id" binding:"required"`
}

// VideoIDForm carries a video id under the videoID key.
type VideoIDForm struct {
	VideoID string `form:"videoID" binding:"required"`
}

// SubtitleUploadForm holds the text fields of POST /subtitles/upload.
type SubtitleUploadForm struct {
	ID            string `form:"id" binding:"required"`
	Language      string `form:"language" binding:"required,language"`
	LanguageShort string `form:"language_short" binding:"required,language"`
}

// SubtitleDeleteForm is the body of DELETE /subtitles/delete. Language is the
// short code the track was uploaded under.
type SubtitleDeleteForm struct {
	ID       string `form:"id" binding:"required"`
	Language string `form:"language" binding:"required,language"`
}

// PageQuery is a limit/offset window.
type PageQuery struct {
	Limit  int `form:"limit,default=20" binding:"min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

// UploaderPageQuery filters a page by uploader.
type UploaderPageQuery struct {
	PageQuery
	Uploader string `form:"uploader"`
}

// Describe turns a binding error into a message fit for clients.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "malformed request"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return strings.Join(msgs, "; ")
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "language":
		return field + " must look like 'en' or 'en-US'"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

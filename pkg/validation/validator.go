package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/user-service/pkg/i18n"
)

// BodyField is the detail key used when the payload itself cannot be decoded.
const BodyField = "body"

var (
	personName = regexp.MustCompile(`^\p{L}[\p{L} '\-]*$`)
	hasLetter  = regexp.MustCompile(`\p{L}`)
	hasDigit   = regexp.MustCompile(`\p{Nd}`)

	initOnce sync.Once
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers the pwd, personname and bcrypthash tags.
func Init() {
	initOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			Register(v)
		}
	})
}

// Register installs the tag name function and custom tags on v.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterAlias("pwd", "min=8,max=50,letterdigit")
	_ = v.RegisterValidation("letterdigit", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return hasLetter.MatchString(s) && hasDigit.MatchString(s)
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personName.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("bcrypthash", func(fl validator.FieldLevel) bool {
		_, err := bcrypt.Cost([]byte(fl.Field().String()))
		return err == nil
	})
}

// ToDetails converts validation/binding errors into a map[field]message in
// the localizer's language.
func ToDetails(err error, l *i18n.Localizer) map[string]string {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			field := fe.Field()
			if _, seen := out[field]; seen {
				continue
			}
			out[field] = formatFieldError(fe, l)
		}
		return out
	}

	// invalid JSON, empty body, wrong types
	return map[string]string{BodyField: l.T(i18n.ErrMalformedBody)}
}

func formatFieldError(fe validator.FieldError, l *i18n.Localizer) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return l.T(i18n.ValidationRequired, field)
	case "email":
		return l.T(i18n.ValidationEmail, field)
	case "min":
		return l.T(i18n.ValidationMin, field, param)
	case "max":
		return l.T(i18n.ValidationMax, field, param)
	case "oneof":
		return l.T(i18n.ValidationOneOf, field, strings.ReplaceAll(param, " ", ", "))
	case "pwd":
		return l.T(i18n.ValidationPassword, field)
	case "personname":
		return l.T(i18n.ValidationPersonName, field)
	case "bcrypthash":
		return l.T(i18n.ValidationBcryptHash, field)
	}
	return l.T(i18n.ValidationInvalid, field)
}

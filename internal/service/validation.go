// validation.go — формы и их проверка через go-playground/validator.
package service

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/studyon/study-on/internal/domain/model"
)

// codePattern — допустимый код курса.
var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CourseForm — форма создания и редактирования курса.
// Type и Price уходят только в billing.
type CourseForm struct {
	Code        string           `form:"code" validate:"required,max=255,course_code"`
	Title       string           `form:"title" validate:"required,max=255"`
	Description string           `form:"description" validate:"max=1000"`
	Type        model.CourseType `form:"type" validate:"required,oneof=free pay rent"`
	Price       float64          `form:"price" validate:"finite,gte=0"`
}

// LessonForm — форма урока.
type LessonForm struct {
	CourseID    string `form:"course_id" validate:"required"`
	Title       string `form:"title" validate:"required,max=255"`
	Content     string `form:"content" validate:"required"`
	OrderNumber int    `form:"order_number" validate:"min=1,max=10000"`
}

// LoginForm — форма входа.
type LoginForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// RegistrationForm — форма регистрации.
type RegistrationForm struct {
	Email          string `form:"email" validate:"required,email,max=255"`
	Password       string `form:"password" validate:"required,min=6"`
	PasswordRepeat string `form:"password_repeat" validate:"required,eqfield=Password"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("course_code", func(fl validator.FieldLevel) bool {
		return codePattern.MatchString(fl.Field().String())
	})
	// NaN и ±Inf не кодируются в JSON запроса billing
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		form := sl.Current().Interface().(CourseForm)
		if math.IsNaN(form.Price) || math.IsInf(form.Price, 0) {
			return
		}
		if form.Type != model.CourseTypeFree && form.Type.Valid() && form.Price <= 0 {
			sl.ReportError(form.Price, "price", "Price", "paid_price", "")
		}
	}, CourseForm{})
	return v
}

// validateForm проверяет форму и возвращает *ValidationError с сообщениями по полям.
func validateForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("ошибка проверки формы: %w", err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	return &ValidationError{Fields: fields}
}

// fieldMessage — сообщение для пользователя по нарушенному правилу.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This value should not be blank."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("This value is too long. It should have %s characters or less.", fe.Param())
		}
		return fmt.Sprintf("This value should be %s or less.", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("This value is too short. It should have %s characters or more.", fe.Param())
		}
		return fmt.Sprintf("This value should be %s or more.", fe.Param())
	case "course_code":
		return "The code may contain only latin letters, digits, hyphens and underscores."
	case "oneof":
		return "Choose one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	case "finite":
		return "This value is not a valid number."
	case "gte":
		return "The price cannot be negative."
	case "paid_price":
		return "A paid or rented course must have a price greater than zero."
	case "email":
		return "This value is not a valid email address."
	case "eqfield":
		return "The passwords do not match."
	default:
		return "This value is not valid."
	}
}

// normalize обрезает пробелы и приводит цену бесплатного курса к нулю.
func (f CourseForm) normalize() CourseForm {
	f.Code = strings.TrimSpace(f.Code)
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	if f.Type == model.CourseTypeFree {
		f.Price = 0
	}
	return f
}

// description — nil для пустого описания.
func (f CourseForm) description() *string {
	if f.Description == "" {
		return nil
	}
	d := f.Description
	return &d
}

func (f CourseForm) billingCourse() model.BillingCourse {
	return model.BillingCourse{Code: f.Code, Type: f.Type, Price: f.Price, Title: f.Title}
}

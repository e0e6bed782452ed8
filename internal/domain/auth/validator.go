// internal/domain/auth/validator.go
package auth

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"
)

// Rule chains, evaluated left to right; the first failing tag decides the
// message.
const (
	usernameRules = "trimmed_required,utf16_min=2,utf16_max=50,username_chars,no_edge_space"
	passwordRules = "trimmed_required,utf16_min=3,utf16_max=128,no_space,has_letter"

	// Structural rules gate the submit button independently of the errors
	// currently on display.
	usernameStructure = "utf16_min=2,utf16_max=50,username_chars"
	passwordStructure = "utf16_min=3,utf16_max=128,no_space,has_letter"
)

const (
	MsgUsernameRequired  = "El usuario es requerido"
	MsgUsernameTooShort  = "El usuario debe tener al menos 2 caracteres"
	MsgUsernameTooLong   = "El usuario no puede tener más de 50 caracteres"
	MsgUsernameChars     = "El usuario solo puede contener letras, números, guiones, puntos y guiones bajos"
	MsgUsernameEdgeSpace = "El usuario no puede empezar o terminar con espacios"

	MsgPasswordRequired = "La contraseña es requerida"
	MsgPasswordTooShort = "La contraseña debe tener al menos 3 caracteres"
	MsgPasswordTooLong  = "La contraseña no puede tener más de 128 caracteres"
	MsgPasswordSpace    = "La contraseña no puede contener espacios"
	MsgPasswordLetter   = "La contraseña debe contener al menos una letra"

	MsgInvalidCredentials = "Usuario o contraseña incorrectos"
)

var fieldMessages = map[string]map[string]string{
	FieldUsername: {
		"trimmed_required": MsgUsernameRequired,
		"utf16_min":        MsgUsernameTooShort,
		"utf16_max":        MsgUsernameTooLong,
		"username_chars":   MsgUsernameChars,
		"no_edge_space":    MsgUsernameEdgeSpace,
	},
	FieldPassword: {
		"trimmed_required": MsgPasswordRequired,
		"utf16_min":        MsgPasswordTooShort,
		"utf16_max":        MsgPasswordTooLong,
		"no_space":         MsgPasswordSpace,
		"has_letter":       MsgPasswordLetter,
	},
}

var usernameCharsRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the form rules on v and wraps it.
func NewValidator(v *validator.Validate) *Validator {
	mustRegister(v, "trimmed_required", func(fl validator.FieldLevel) bool {
		return strings.TrimFunc(fl.Field().String(), isFormSpace) != ""
	})
	mustRegister(v, "utf16_min", func(fl validator.FieldLevel) bool {
		return utf16Len(fl.Field().String()) >= paramInt(fl)
	})
	mustRegister(v, "utf16_max", func(fl validator.FieldLevel) bool {
		return utf16Len(fl.Field().String()) <= paramInt(fl)
	})
	mustRegister(v, "username_chars", func(fl validator.FieldLevel) bool {
		return usernameCharsRe.MatchString(fl.Field().String())
	})
	// Unreachable after username_chars, which already rejects spaces. Kept
	// so the rule order matches what users have always seen.
	mustRegister(v, "no_edge_space", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return !strings.HasPrefix(s, " ") && !strings.HasSuffix(s, " ")
	})
	mustRegister(v, "no_space", func(fl validator.FieldLevel) bool {
		return !strings.Contains(fl.Field().String(), " ")
	})
	mustRegister(v, "has_letter", func(fl validator.FieldLevel) bool {
		return hasLetterBeforeLineBreak(fl.Field().String())
	})
	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// utf16Len counts UTF-16 code units, the length browsers report for input
// values. Characters outside the BMP count twice.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func paramInt(fl validator.FieldLevel) int {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		panic("validator: bad length parameter " + fl.Param())
	}
	return n
}

// isFormSpace is the whitespace set browsers trim from input values: Unicode
// White_Space plus the byte order mark, without NEL.
func isFormSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

// hasLetterBeforeLineBreak matches the anchored lookahead ^(?=.*[a-zA-Z]):
// "." stops at a line terminator, so only the first line counts.
func hasLetterBeforeLineBreak(s string) bool {
	if i := strings.IndexAny(s, "\n\r\u2028\u2029"); i >= 0 {
		s = s[:i]
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			return true
		}
	}
	return false
}

// ValidateUsername returns the message of the first failing rule, or "".
func (v *Validator) ValidateUsername(username string) string {
	return v.check(FieldUsername, username, usernameRules)
}

// ValidatePassword returns the message of the first failing rule, or "".
func (v *Validator) ValidatePassword(password string) string {
	return v.check(FieldPassword, password, passwordRules)
}

// ValidateForm runs every rule on both fields, as on submit.
func (v *Validator) ValidateForm(form LoginForm) FieldErrors {
	errs := FieldErrors{}
	if msg := v.ValidateUsername(form.Username); msg != "" {
		errs[FieldUsername] = msg
	}
	if msg := v.ValidatePassword(form.Password); msg != "" {
		errs[FieldPassword] = msg
	}
	return errs
}

// ValidateField re-checks one field and returns a copy of current with that
// field's entry set or cleared. Other entries, including the general one,
// are carried over.
func (v *Validator) ValidateField(current FieldErrors, field, value string) FieldErrors {
	next := current.Clone()

	var msg string
	switch field {
	case FieldUsername:
		msg = v.ValidateUsername(value)
	case FieldPassword:
		msg = v.ValidatePassword(value)
	default:
		return next
	}

	if msg == "" {
		delete(next, field)
	} else {
		next[field] = msg
	}
	return next
}

// IsFormValid reports whether submit should be allowed: both fields are
// structurally valid and nothing is currently flagged.
func (v *Validator) IsFormValid(form LoginForm, errs FieldErrors) bool {
	return v.validate.Var(form.Username, usernameStructure) == nil &&
		v.validate.Var(form.Password, passwordStructure) == nil &&
		len(errs) == 0
}

func (v *Validator) check(field, value, rules string) string {
	err := v.validate.Var(value, rules)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := fieldMessages[field][verrs[0].Tag()]; ok {
			return msg
		}
	}
	// Only reachable with a broken rule chain.
	return err.Error()
}

package user

import (
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	allRolesTag  = "allroles"
	allRolesText = "invalid roles"

	usernameOrEmailTag  = "username_or_email"
	usernameOrEmailText = "one of username or email is required"
)

// InitValidators registers user-specific validators and translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allRolesTag, allRolesValidation)
	core.RegisterCustomTranslation(validate, translator, allRolesTag, allRolesText)

	validate.RegisterStructValidation(newUserStructValidation, NewUser{})
	core.RegisterCustomTranslation(validate, translator, usernameOrEmailTag, usernameOrEmailText)
}

// Custom Validators

// allRolesValidation checks that provided user roles are all in AllRoles.
func allRolesValidation(fl validator.FieldLevel) bool {
	roles, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	known := append([]string(nil), AllRoles...)
	sort.Strings(known)
	for _, role := range roles {
		if idx := sort.SearchStrings(known, role); idx >= len(known) || known[idx] != role {
			return false
		}
	}
	return true
}

// newUserStructValidation checks that one of Username or Email is provided.
func newUserStructValidation(sl validator.StructLevel) {
	nu := sl.Current().Interface().(NewUser)
	if len(nu.Username) == 0 && len(nu.Email) == 0 {
		sl.ReportError(nu.Username, "username", "Username", usernameOrEmailTag, "")
		sl.ReportError(nu.Email, "email", "Email", usernameOrEmailTag, "")
	}
}

package exam

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/examguard/core"
	"github.com/trezcool/examguard/core/violation"
)

var (
	violationKindTag  = "violationkind"
	violationKindText = "{0} must be one of tab_switch, window_blur, context_menu, copy_paste, fullscreen_exit, developer_tools, suspicious_activity"

	endReasonTag  = "endreason"
	endReasonText = "{0} must be one of manual, time_expired"
)

// InitValidators registers the exam validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(violationKindTag, violationKindValidation)
	core.RegisterCustomTranslation(validate, translator, violationKindTag, violationKindText)

	_ = validate.RegisterValidation(endReasonTag, endReasonValidation)
	core.RegisterCustomTranslation(validate, translator, endReasonTag, endReasonText)
}

// violationKindValidation only allows kinds of the violation catalog.
func violationKindValidation(fl validator.FieldLevel) bool {
	_, err := violation.Parse(fl.Field().String())
	return err == nil
}

// endReasonValidation only allows the reasons a client may submit with.
func endReasonValidation(fl validator.FieldLevel) bool {
	_, err := parseClientEndReason(fl.Field().String())
	return err == nil
}

package course

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ecole/core"
)

var (
	courseTypeTag  = "coursetype"
	courseTypeText = "type must be one of: " + strings.Join(AllTypes, ", ")

	requiredTag = "required"
)

// InitValidators registers the course validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(courseTypeTag, courseTypeValidation)
	core.RegisterCustomTranslation(validate, translator, courseTypeTag, courseTypeText)

	validate.RegisterStructValidation(newCourseStructValidation, NewCourse{})
}

// courseTypeValidation checks that the provided type is one of AllTypes.
func courseTypeValidation(fl validator.FieldLevel) bool {
	typ := fl.Field().String()
	for _, t := range AllTypes {
		if typ == t {
			return true
		}
	}
	return false
}

// newCourseStructValidation requires the fields specific to each course type:
// - classroom: highschool & section
// - study_group: section & group
func newCourseStructValidation(sl validator.StructLevel) {
	nc, ok := sl.Current().Interface().(NewCourse)
	if !ok {
		return
	}
	switch nc.Type {
	case TypeClassroom:
		if nc.Highschool == "" {
			sl.ReportError(nc.Highschool, "highschool", "Highschool", requiredTag, "")
		}
		if nc.Section == "" {
			sl.ReportError(nc.Section, "section", "Section", requiredTag, "")
		}
	case TypeStudyGroup:
		if nc.Section == "" {
			sl.ReportError(nc.Section, "section", "Section", requiredTag, "")
		}
		if nc.GroupLabel == "" {
			sl.ReportError(nc.GroupLabel, "group", "GroupLabel", requiredTag, "")
		}
	}
}

package survey

import (
	"sort"
	"strings"
)

// Form field keys used in FieldErrors.
const (
	FieldAnswers     = "answers"
	FieldStudentID   = "student_id"
	FieldDisplayName = "display_name"
)

const (
	msgAnswersMissing     = "모든 문항에 응답해 주세요. (미응답 행이 있습니다)"
	msgStudentIDMissing   = "학번을 입력해 주세요."
	msgDisplayNameMissing = "이름을 입력해 주세요."
)

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Form is the edit buffer for one survey submission. When CollectStudentInfo is
// set the student id and display name are validated inline with the answers.
type Form struct {
	catalog            *Catalog
	CollectStudentInfo bool
	StudentID          string
	DisplayName        string
	answers            Answers
	errors             FieldErrors
}

// NewForm seeds a form from an optional prior response.
func NewForm(c *Catalog, prior Answers) *Form {
	f := &Form{
		catalog: c,
		answers: Answers{},
		errors:  FieldErrors{},
	}
	for row, value := range prior {
		if c.HasRow(row) {
			f.answers[row] = value
		}
	}
	return f
}

// SetAnswer records a selection. Unknown rows or values are ignored.
func (f *Form) SetAnswer(row, value string) {
	if !f.catalog.HasRow(row) {
		return
	}
	if _, ok := f.catalog.Points(value); !ok {
		return
	}
	f.answers[row] = value
	if len(f.Unanswered()) == 0 {
		delete(f.errors, FieldAnswers)
	}
}

// SetAnswers applies every entry of answers.
func (f *Form) SetAnswers(answers Answers) {
	for row, value := range answers {
		f.SetAnswer(row, value)
	}
}

// SetStudentID updates the inline student id and clears its error once non-blank.
func (f *Form) SetStudentID(value string) {
	f.StudentID = value
	if strings.TrimSpace(value) != "" {
		delete(f.errors, FieldStudentID)
	}
}

// SetDisplayName updates the inline display name and clears its error once non-blank.
func (f *Form) SetDisplayName(value string) {
	f.DisplayName = value
	if strings.TrimSpace(value) != "" {
		delete(f.errors, FieldDisplayName)
	}
}

// Answers returns a copy of the buffered answers.
func (f *Form) Answers() Answers {
	return f.answers.Clone()
}

// Unanswered lists catalog rows without a selection, in catalog order.
func (f *Form) Unanswered() []string {
	var missing []string
	for _, row := range f.catalog.Rows {
		if _, ok := f.catalog.Points(f.answers[row.ID]); !ok {
			missing = append(missing, row.ID)
		}
	}
	return missing
}

// Errors returns a copy of the current per-field errors.
func (f *Form) Errors() FieldErrors {
	out := make(FieldErrors, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Validate checks the inline student fields and then the matrix. It returns nil
// when the form can be submitted.
func (f *Form) Validate() error {
	if f.CollectStudentInfo {
		if strings.TrimSpace(f.StudentID) == "" {
			f.errors[FieldStudentID] = msgStudentIDMissing
		} else {
			delete(f.errors, FieldStudentID)
		}
		if strings.TrimSpace(f.DisplayName) == "" {
			f.errors[FieldDisplayName] = msgDisplayNameMissing
		} else {
			delete(f.errors, FieldDisplayName)
		}
	}

	if len(f.Unanswered()) > 0 {
		f.errors[FieldAnswers] = msgAnswersMissing
	} else {
		delete(f.errors, FieldAnswers)
	}

	if len(f.errors) > 0 {
		return f.Errors()
	}
	return nil
}

// ValidateIdentity checks a student id and display name pair outside of a survey
// form. The student id is only required when requireStudentID is set.
func ValidateIdentity(studentID, displayName string, requireStudentID bool) error {
	errs := FieldErrors{}
	if requireStudentID && strings.TrimSpace(studentID) == "" {
		errs[FieldStudentID] = msgStudentIDMissing
	}
	if strings.TrimSpace(displayName) == "" {
		errs[FieldDisplayName] = msgDisplayNameMissing
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

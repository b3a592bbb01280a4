package domain

// Answer is a single student answer for one input field: free text, a
// multi-select list, or an uploaded-file submission (identified by file
// names; content travels out of band).
type Answer struct {
	Text  string   `json:"text,omitempty"`
	List  []string `json:"list,omitempty"`
	Files []string `json:"files,omitempty"`
}

// TextAnswer wraps a plain string answer.
func TextAnswer(s string) Answer { return Answer{Text: s} }

// ListAnswer wraps a multi-select answer.
func ListAnswer(vs ...string) Answer { return Answer{List: vs} }

// FileAnswer wraps a file submission.
func FileAnswer(names ...string) Answer { return Answer{Files: names} }

// IsFile reports whether the answer is a file submission.
func (a Answer) IsFile() bool { return len(a.Files) > 0 }

// Values returns the answer as a list: the list itself for multi-select,
// file names for uploads, else the single text value.
func (a Answer) Values() []string {
	switch {
	case len(a.List) > 0:
		return a.List
	case len(a.Files) > 0:
		return a.Files
	case a.Text != "":
		return []string{a.Text}
	default:
		return nil
	}
}

// StudentAnswers maps answer ids to submitted answers for one grading pass.
type StudentAnswers map[string]Answer

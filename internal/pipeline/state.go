package pipeline

// State is the record shared by every stage of one run. Stages read a copy
// and describe their changes as an Update.
type State struct {
	RunID string

	// Caller inputs, unchanged for the whole run
	JobDescription string
	OriginalResume string
	HumanNotes     string

	JobText    string
	ResumeText string

	MissingSkills string

	OptimizedResume string
	Feedback        string
	Score           int
	Iteration       int

	// Outcome is set by the engine when the review loop exits
	Outcome string

	CoverLetter     string
	ResumePath      string
	CoverLetterPath string
}

// Update holds the fields a stage produced. Each non-nil field replaces the
// matching State field; nil fields leave it untouched.
type Update struct {
	JobText         *string
	ResumeText      *string
	MissingSkills   *string
	OptimizedResume *string
	Feedback        *string
	Score           *int
	Iteration       *int
	CoverLetter     *string
	ResumePath      *string
	CoverLetterPath *string
}

// Apply returns s with u folded in
func (s State) Apply(u Update) State {
	set(&s.JobText, u.JobText)
	set(&s.ResumeText, u.ResumeText)
	set(&s.MissingSkills, u.MissingSkills)
	set(&s.OptimizedResume, u.OptimizedResume)
	set(&s.Feedback, u.Feedback)
	set(&s.Score, u.Score)
	set(&s.Iteration, u.Iteration)
	set(&s.CoverLetter, u.CoverLetter)
	set(&s.ResumePath, u.ResumePath)
	set(&s.CoverLetterPath, u.CoverLetterPath)
	return s
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Ptr returns a pointer to v, for building Updates
func Ptr[T any](v T) *T {
	return &v
}

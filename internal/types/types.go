package types

// ScanRequest represents the input for previewing skill gaps
type ScanRequest struct {
	JobDescription string `json:"jobDescription"`
	OriginalResume string `json:"originalResume"`
}

// ScanResult represents the output of a gap scan
type ScanResult struct {
	RunID         string `json:"runId"`
	MissingSkills string `json:"missingSkills"`
	Error         string `json:"error,omitempty"`
}

// OptimizeRequest represents the input for a full optimization run.
// HumanNotes is free text supplied by the user, typically the edited
// output of a previous scan.
type OptimizeRequest struct {
	JobDescription string `json:"jobDescription"`
	OriginalResume string `json:"originalResume"`
	HumanNotes     string `json:"humanNotes,omitempty"`
}

// Outcome values reported when the review loop exits
const (
	OutcomeAccepted  = "accepted"
	OutcomeExhausted = "exhausted"
)

// OptimizeResult represents the output of a full optimization run
type OptimizeResult struct {
	RunID           string `json:"runId"`
	OptimizedResume string `json:"optimizedResume"`
	Score           int    `json:"score"`
	Feedback        string `json:"feedback"`
	Iterations      int    `json:"iterations"`
	Outcome         string `json:"outcome,omitempty"`
	CoverLetter     string `json:"coverLetter,omitempty"`
	ResumePath      string `json:"resumePath,omitempty"`
	CoverLetterPath string `json:"coverLetterPath,omitempty"`
	Error           string `json:"error,omitempty"`
}

// ReviewOutput represents the structured critique of an optimized resume
type ReviewOutput struct {
	Score    int    `json:"score"`    // 0-100
	Feedback string `json:"feedback"` // Actionable critique for the next attempt
}

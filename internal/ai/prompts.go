package ai

// SystemPrompts contains the system-level instructions for each generation step
type SystemPrompts struct {
	ScanGaps         string
	ImproveResume    string
	ReviewResume     string
	WriteCoverLetter string
}

// UserPrompts contains user-level prompt templates. Templates use indexed
// verbs so a custom prompt may reorder or omit inputs:
//
//	ScanGaps:         %[1]s job, %[2]s resume
//	ImproveResume:    %[1]s missing skills, %[2]s user notes, %[3]s previous feedback,
//	                  %[4]s job, %[5]s current resume
//	ReviewResume:     %[1]s job, %[2]s resume
//	WriteCoverLetter: %[1]s job, %[2]s resume
type UserPrompts struct {
	ScanGaps         string
	ImproveResume    string
	ReviewResume     string
	WriteCoverLetter string
}

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = SystemPrompts{
	ScanGaps: `You are a technical recruiter comparing a candidate's resume with a job posting.
You are precise and brief. You only report gaps that the job actually asks for.`,

	ImproveResume: `You are an expert Resume Writer with a strict commitment to honesty.

- NEVER invent projects, employers, metrics or tools the candidate has not used
- Every claim must be traceable to the current resume or to the user's own notes
- Keep the resume in markdown: the candidate name as "# ", sections as "## ", achievements as "- " bullets`,

	ReviewResume: `You are a strict hiring manager scoring how well a resume matches a job.
Scores above 85 are reserved for resumes that clearly cover the core requirements.`,

	WriteCoverLetter: `You are an expert career coach who writes concise, specific cover letters.
You only mention experience that appears in the resume you are given.`,
}

// DefaultUserPrompts provides the default user prompt templates
var DefaultUserPrompts = UserPrompts{
	ScanGaps: `Compare the Resume to the Job Description.
Identify the 3 biggest MISSING SKILLS or Keywords.

Job: %[1]s

Resume: %[2]s

Return ONLY a bulleted list of the missing skills.`,

	ImproveResume: `TASK: Rewrite the resume to match the Job Description.

CRITICAL INSTRUCTIONS:
1. Address these missing skills: %[1]s
2. USE THIS USER CONTEXT: "%[2]s" (Incorporate this experience if valid).
3. If the user provided NO context for a missing skill, do NOT explicitly list it with tags like "(no experience)".
4. Instead, if it is a specific tool (e.g., "LlamaIndex") and they have no experience, OMIT IT entirely.
5. If it is a general concept (e.g., "CI/CD" or "MLOps") and they have a CS degree, you may use phrasing like "Conceptual Knowledge of...".
6. Do NOT invent false projects.
7. Feedback from previous review (if any): %[3]s

Job Description: %[4]s

Current Resume: %[5]s

Return ONLY the rewritten resume text.`,

	ReviewResume: `Rate this resume match (0-100) for the job.

Job: %[1]s

Resume: %[2]s`,

	WriteCoverLetter: `Write a one-page cover letter for this job, based only on the resume below.

Use the same markdown structure as the resume: "# Cover Letter" as the title,
"## " headers if you need sections, and "- " bullets for the two or three strongest matches.

Job: %[1]s

Resume: %[2]s

Return ONLY the cover letter text.`,
}

// resolvePrompt selects a prompt in priority order: loaded from a file,
// set in configuration, then the built-in default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

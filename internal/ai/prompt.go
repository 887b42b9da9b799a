// Package ai holds the model-agnostic pieces of the analysis boundary:
// prompt construction and response parsing.
package ai

import "strings"

const matchPromptTemplate = `You are an expert career analyst and recruiter.

I will give you two pieces of text:

1. The job description (JD)
2. A candidate's CV/resume

Your task:
- Analyze the candidate's CV against the job description.
- Identify which skills or qualifications match.
- Identify which skills or qualifications are missing.
- Estimate a match percentage (0-100%) based on how well the candidate fits the role.
- Be objective and explain your reasoning briefly.

Return the result in the following JSON format:

{
"match_percentage": <number>,
"matched_skills": [<list of skills that match>],
"missing_skills": [<list of skills not found in CV but in JD>],
"summary": "<brief text summary of why this candidate is or isn't a strong fit>"
}

Here is the data:

Job Description:
"""
{{JOB_DESCRIPTION}}
"""

Candidate CV:
"""
{{CANDIDATE_CV}}
"""
`

// BuildMatchPrompt renders the fixed-structure analysis prompt for one
// job description and one resume text.
func BuildMatchPrompt(jobDescription, resumeText string) string {
	prompt := strings.ReplaceAll(matchPromptTemplate, "{{JOB_DESCRIPTION}}", jobDescription)
	return strings.ReplaceAll(prompt, "{{CANDIDATE_CV}}", resumeText)
}

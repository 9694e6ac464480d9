package ai

import (
	"fmt"
	"strings"
)

// Prompts renders the instructions sent to the generation backend. All
// methods are pure: inputs in, text out, no I/O.
type Prompts struct {
	topic        string
	maxQuestions int
}

// NewPrompts creates a prompt composer for the given interview topic.
// maxQuestions bounds the number of questions the interviewer is told to
// ask before wrapping up.
func NewPrompts(topic string, maxQuestions int) *Prompts {
	if maxQuestions <= 0 {
		maxQuestions = 3
	}
	return &Prompts{topic: topic, maxQuestions: maxQuestions}
}

// System renders the interviewer system prompt: persona, tool-use contract,
// trailing-marker format and termination policy. When the bank is non-empty
// the available vocabulary and selection guidance are appended; the session
// id line is appended when provided.
func (p *Prompts) System(questionCount int, capabilities, difficulties []string, sessionID string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are an expert %[1]s interviewer conducting a quick interview.
Your goal is to assess the candidate's %[1]s skills through conversation.

Guidelines:
- Ask specific, technical %[1]s questions using the available tool when needed.
- Follow up on their answers with clarifying questions.
- Keep the interview short.
- Be conversational but professional.
- Challenge the candidate by stepping up the difficulty if they are comfortable with the current question.
- End the interview after max %[2]d questions or when appropriate. Your last message should carry the flag [[END=true QID=none]]. Do not give any feedback or summary.

Tool-use contract:
- When you need a new question from the bank, CALL %[3]s(capabilities?, difficulty?).
- If the bank has no suitable question (the tool returns an empty id), make ANOTHER TOOL CALL to %[4]s(capabilities?, difficulty?, additional_notes?). Provide additional_notes as a short phrase to guide the generation.
- After composing your reply for the candidate, append a single flags line EXACTLY in this form:
  [[END=<true|false> QID=<question_id or none>]]
- Do not include the flags in the visible body of your message; put them only at the very end.
`, p.topic, p.maxQuestions, toolFetchQuestion, toolGenerateQuestion)

	if questionCount > 0 {
		fmt.Fprintf(&b, `
Available questions: %d
Capabilities: %s
Difficulty levels: %s

Selection guidance:
- Start with easier questions and progress to harder ones.
- Choose questions that build on the candidate's previous answers.
- Avoid repeating questions within the same interview.
`, questionCount, strings.Join(capabilities, ", "), strings.Join(difficulties, ", "))
	}

	if sessionID != "" {
		fmt.Fprintf(&b, "\n- Session ID: %s", sessionID)
	}

	return b.String()
}

// GenerateQuestion renders the instruction for synthesising a brand-new
// interview question as a compact JSON object.
func (p *Prompts) GenerateQuestion(capabilities []string, difficulty, additionalNotes string) string {
	caps := strings.Join(capabilities, ", ")
	if caps == "" {
		caps = fmt.Sprintf("(use a sensible %s capability)", p.topic)
	}
	if difficulty = strings.TrimSpace(difficulty); difficulty == "" {
		difficulty = "Medium"
	}
	if additionalNotes = strings.TrimSpace(additionalNotes); additionalNotes == "" {
		additionalNotes = "none"
	}

	return fmt.Sprintf(`You are generating a single, clear %[1]s interview question.
Requirements:
- Target capabilities: %[2]s
- Difficulty: %[3]s
- Additional notes: %[4]s

Output STRICTLY a compact JSON object with keys:
  text (string), capabilities (array of strings), difficulty (string), evaluation_criteria (array of strings).
- Do not include markdown fences or commentary.
- The question should be answerable conversationally and focused on %[1]s.
- The question should be general and reusable for multiple candidates.
- Provide 3-6 evaluation_criteria that are specific and observable.`, p.topic, caps, difficulty, additionalNotes)
}

// PerformanceEvaluation renders the post-interview review instruction over
// the given transcript text.
func (p *Prompts) PerformanceEvaluation(transcript string) string {
	return fmt.Sprintf(`You are an expert %[1]s interviewer evaluating a candidate's performance based on their interview transcript.

Your task is to provide a detailed, constructive performance summary that includes:

1. **Overall Assessment**: Rate their %[1]s proficiency level (Beginner, Intermediate, Advanced, Expert)
2. **Strengths**: Specific areas where they demonstrated strong %[1]s knowledge or skills
3. **Areas for Improvement**: Topics or skills that need development
4. **Technical Accuracy**: How well they answered technical questions
5. **Communication Skills**: Clarity and effectiveness of their explanations
6. **Problem-Solving Approach**: How they approached %[1]s-related challenges

Guidelines:
- Be constructive and encouraging while being honest about weaknesses
- Base your evaluation only on the content of the transcript provided
- Focus on %[1]s-specific skills and concepts demonstrated
- Provide specific examples from the conversation to support your assessment
- Keep the summary comprehensive but concise (aim for 400-600 words)
- Use clear, professional language suitable for HR or technical reviewers
- DO NOT include any header templates like "Candidate: [Name]" or "Evaluator: [Name]" - focus only on the evaluation content

INTERVIEW TRANSCRIPT:
%[2]s

Please provide your evaluation in a well-structured format with clear sections and bullet points where appropriate.`, p.topic, transcript)
}

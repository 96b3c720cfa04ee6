package screening

import (
	"fmt"
	"strings"

	"github.com/medscreen/medscreen/internal/models"
	"github.com/medscreen/medscreen/internal/study"
)

// studyContextBlock renders the study information section shared by the
// greeting, clarification, and study-question prompts.
func studyContextBlock(s *study.Study) string {
	return fmt.Sprintf(`STUDY INFORMATION:
- Title: %s
- Purpose: %s
- Category: %s
- Phase: %s
- Sponsor: %s
- Time Commitment: %s
- Key Procedures: %s
- Location & Contact: %s
- Total screening questions: %d`,
		s.Trial.Title,
		s.Overview.Purpose,
		s.Trial.Category,
		s.Trial.Phase,
		s.Trial.Sponsor,
		s.Overview.ParticipantCommitment,
		strings.Join(s.Overview.KeyProcedures, ", "),
		s.ContactInfo,
		len(s.Criteria))
}

func greetingPrompt(s *study.Study) string {
	return fmt.Sprintf(`You are MedBot, a clinical trial assistant. Generate a brief, friendly greeting for a potential study participant.

STUDY INFORMATION:
- Title: %s
- Purpose: %s
- Total screening questions: %d
- Time commitment: %s

INSTRUCTIONS:
- Keep it to 2-3 lines maximum
- Briefly mention the study purpose in simple terms
- ALWAYS end by asking whether they consent to proceed with the screening questions or have questions about the study first
- Don't include detailed information - participants can ask questions later if needed

Generate a concise greeting:`,
		s.Trial.Title, s.Overview.Purpose, len(s.Criteria), s.Overview.ParticipantCommitment)
}

func consentClassifierPrompt(userInput string) string {
	return fmt.Sprintf(`Analyze this spoken response to a consent request for participating in a clinical trial screening interview.
The response came from speech-to-text and may contain transcription errors.

User's response: %q

Determine if the user is:
1. Giving consent/agreeing to proceed (YES)
   - Examples: "yes", "yeah", "sure", "okay", "I agree", "let's go", "proceed", partial affirmatives
2. Declining/refusing to proceed (NO)
   - Examples: "no", "nah", "I don't want to", "not interested", "decline"
3. Asking for clarification or more information (CLARIFY)
   - Examples: questions about time, procedures, risks, "what does this involve?", "tell me more"

IMPORTANT: Account for speech-to-text imperfections:
- Focus on intent rather than exact wording
- "yeah" = "yes", "nah" = "no"
- Incomplete responses like "I think..." or "maybe I..." likely indicate need for clarification
- If the response seems confused or off-topic, classify as CLARIFY

Respond with only: YES, NO, or CLARIFY`, userInput)
}

func consentClarificationPrompt(s *study.Study, userInput string) string {
	return fmt.Sprintf(`You are MedBot, a clinical trial assistant helping explain a research study to a potential participant.
The participant has asked a question about the study during the consent process.
The participant's message came from speech-to-text conversion and may contain transcription errors.

%s

PARTICIPANT'S QUESTION/CONCERN: %q

INSTRUCTIONS:
- Address their specific question/concern directly using the study information provided
- Be conversational, helpful, and reassuring while staying factual
- Only use information provided above - DO NOT invent or assume details
- Keep the response concise (2-3 sentences max)
- Always end by asking for their consent to proceed with the screening questions
- If their question is about something not covered in the study info, acknowledge this and offer to proceed with screening

SAFETY RULES:
- DO NOT provide medical advice
- DO NOT guarantee study outcomes
- DO NOT make promises about results
- Stay focused on the screening consent, not full study consent

Generate a helpful, personalized response:`, studyContextBlock(s), userInput)
}

func questioningClassifierPrompt(userInput string, criterion models.Criterion) string {
	return fmt.Sprintf(`You are analyzing a user's spoken response in a clinical trial interview during the QUESTIONING PHASE to determine their intent.
The response came from speech-to-text and may contain transcription errors.
Analyze the response in the context of the current question and eligibility criteria.

Current question: %q
Eligibility criteria: %q
Expected response: %s

User's response: %q

Classify this response into ONE of these categories:

1. "repeat_current" - User wants to hear the current question again
   Examples: "repeat that question", "what?", "I don't understand", "repeat the current question"

2. "repeat_previous" - User wants to go back to the previous question
   Examples: "go back", "previous question", "I want to change my previous answer"

3. "decline" - User wants to decline/withdraw from participation in the interview (not merely declining to answer one question)
   Examples: "I don't want to participate", "I withdraw", "I want to stop"

4. "answer" - User is providing a normal answer to the interview question
   Examples: medical/health responses, personal information, yes/no answers to eligibility questions

5. "unclear" - Response is completely unclear, nonsensical, or a navigation/technical question that fits no other category
   IMPORTANT: Only use this for very rare cases when you are highly unsure - if there is any chance it is an answer, classify as "answer"

SPEECH-TO-TEXT CONSIDERATIONS:
- Focus on intent rather than exact wording
- Account for transcription errors and incomplete responses
- Be lenient with classification due to potential STT issues

Users can withdraw at any phase - always respect their choice to decline.

Respond with ONLY the category name: repeat_current, repeat_previous, decline, answer, or unclear

NOTE: In case of doubt, prefer "answer" over "unclear" to avoid getting stuck.`,
		criterion.Question, criterion.Text, criterion.ExpectedResponse, userInput)
}

func unclearRedirectPrompt(s *study.Study, criterion models.Criterion, questionNumber, total int, userInput string) string {
	return fmt.Sprintf(`You are MedBot, a clinical trial assistant. A participant has given an unclear response during a screening interview.
Their message came from speech-to-text and may contain transcription errors.

STUDY CONTEXT:
- Title: %s
- Purpose: %s
- Category: %s

CURRENT INTERVIEW CONTEXT:
- Current question: %q
- Expected response: %s
- Question %d of %d screening questions
- This question is about: %s

PARTICIPANT'S UNCLEAR RESPONSE: %q

INSTRUCTIONS:
- This could be due to speech-to-text errors, technical confusion, or an off-topic response or question
- Generate a helpful response that gently redirects them back to the current question
- Stay conversational and supportive
- Keep the response concise (2-3 sentences max)
- Do NOT advance to the next question - stay on the current question
- Clearly restate the current question and encourage a clear answer

Generate a helpful response:`,
		s.Trial.Title, s.Overview.Purpose, s.Trial.Category,
		criterion.Question, criterion.ExpectedResponse, questionNumber, total, criterion.Text,
		userInput)
}

func submissionClassifierPrompt(userInput string) string {
	return fmt.Sprintf(`You are analyzing a user's spoken response in a clinical trial interview during the SUBMISSION PHASE to determine their intent.
The user has already answered ALL screening questions and is now deciding whether to submit their responses.
The response came from speech-to-text and may contain transcription errors.

User's response: %q

Classify this response into ONE of these categories:

1. "repeat_instruction" - User wants to hear the submission instruction/options again
   Examples: "repeat", "what?", "I don't understand", "what are my options", "say that again"

2. "submit" - User wants to submit their responses and complete the interview
   Examples: "submit", "yes", "I'm done", "finish", "complete", "proceed"

3. "decline" - User wants to decline/withdraw and NOT submit
   Examples: "no", "I don't want to participate", "I withdraw", "I don't want to submit"

4. "study_question" - User is asking about the study itself before deciding
   Examples: "What is the timeline?", "How long is the study?", "What happens next?"

5. "unclear" - Response is completely unclear, nonsensical, or a technical issue
   Examples: garbled STT text, completely off-topic responses

SPEECH-TO-TEXT CONSIDERATIONS:
- Focus on intent rather than exact wording
- Account for transcription errors and incomplete responses
- Be lenient with classification due to potential STT issues

Respond with ONLY the category name: repeat_instruction, submit, decline, study_question, or unclear

NOTE: When the user says "repeat" during submission, they mean repeat the submission instruction.`, userInput)
}

func submissionStudyQuestionPrompt(s *study.Study, userInput string) string {
	return fmt.Sprintf(`You are MedBot, a clinical trial assistant. A participant has completed all screening questions and may have a question about the study before submitting their responses.
The participant's message came from speech-to-text conversion and may contain transcription errors.

%s

SUBMISSION PHASE CONTEXT:
- The participant has answered all %d screening questions
- They are now deciding whether to submit their responses for evaluation
- They can submit, decline, or ask more questions

PARTICIPANT'S QUESTION/CONCERN: %q

INSTRUCTIONS:
- Address their specific question/concern directly using the study information provided
- Be conversational, helpful, and reassuring while staying factual
- Only use information provided above - DO NOT invent or assume details
- Keep the response concise (2-3 sentences max)
- End by asking if they'd like to submit their responses or if they have other questions
- If their question is about something not covered in the study info, acknowledge this honestly

SAFETY RULES:
- DO NOT provide medical advice
- DO NOT guarantee study outcomes
- DO NOT make promises about results
- Stay focused on helping them understand the study basics before submission

Generate a helpful, personalized response:`, studyContextBlock(s), len(s.Criteria), userInput)
}

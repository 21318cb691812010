package ai

import "fmt"

// ChatSystemPrompt returns the system instruction for the sheet chat
// assistant. dataJSON is the column-filtered row data serialized as JSON;
// it is the assistant's entire knowledge for the conversation.
func ChatSystemPrompt(dataJSON string) string {
	return fmt.Sprintf(`You are a helpful assistant who answers questions based on data from a spreadsheet about project tasks and schedules.
Your knowledge is strictly limited to the data provided below.
Please provide concise and helpful answers in Korean.
Do not make up information. If the answer is not in the data, say so in Korean.
You must maintain conversation context.

Here is the data you must use for this conversation:
---
%s
---`, dataJSON)
}

// ReportSummaryPrompt returns the prompt for summarizing a reporting period.
// customPrompt, when non-empty, is a user instruction that adapts the
// summary format; otherwise the fixed five-section layout is requested.
func ReportSummaryPrompt(dataJSON, customPrompt string) string {
	base := `You are an expert project manager assistant tasked with summarizing weekly reports based on the provided data.
The output should be a concise, structured summary in Korean, suitable for a formal report document.
Use markdown for formatting. Create main sections with bold, numbered headings (e.g., **1. Title**). All content under these headings must be presented as a bulleted list (using a hyphen '-').
Minimize the use of other special characters and avoid emojis entirely.
Please provide only the summary content, without any introductory or concluding remarks like "Here is the summary:".`

	instruction := `Please organize the summary into the following sections:
- **1. 종합 요약 (Overall Summary):** A bulleted list with a brief overview of key activities and progress.
- **2. 주요 진행상황 (Key Progress):** A bulleted list of significant accomplishments.
- **3. 예정된 주요과제 (Upcoming Key Tasks):** A bulleted list of important upcoming tasks.
- **4. 핵심 이슈 (Critical Issues):** A bulleted list of identified issues. If there are no issues, state "해당 없음" as a single bullet point.
- **5. 기타 참고사항 (Other Notes):** A bulleted list of business trips or other important schedules.`
	if customPrompt != "" {
		instruction = fmt.Sprintf(`The user has provided a specific instruction: %q. Please adapt the summary format to meet this request while still providing a clear, structured Korean summary.`, customPrompt)
	}

	return fmt.Sprintf(`%s

%s

Here is the data for the selected period:
---
%s
---

Your Summary (in Korean):`, base, instruction, dataJSON)
}

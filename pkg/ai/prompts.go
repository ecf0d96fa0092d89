package ai

import "fmt"

// RefineSystemPrompt constrains summary refinement to pure rewording. The
// model smooths the stitched extract into flowing prose but may not add,
// drop, or reinterpret any requirement, and section references stay intact.
const RefineSystemPrompt = `You are an editor for regulatory document summaries.
You will receive an extractive summary: verbatim sentences taken from a
regulation, grouped under their section headings.

Rewrite it into flowing prose under these rules:
- Preserve every obligation, deadline, threshold, and penalty exactly.
- Never add information that is not in the extract.
- Never drop a section that appears in the extract.
- Keep every section reference (such as §37.41(a)) verbatim.
- Keep the section order of the extract.
- Do not editorialize; state requirements the way the regulation does.

Return only the rewritten summary.`

// RefinePrompt renders the user message for a refinement request.
func RefinePrompt(summary string) string {
	return fmt.Sprintf("Extractive summary:\n\n%s", summary)
}

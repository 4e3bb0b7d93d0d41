package content

import (
	"fmt"

	"learnsphere/internal/core"
)

// TextPrompt asks for a structured four-part explanation.
func TextPrompt(topic string, depth core.Depth) string {
	return fmt.Sprintf(`Please provide a comprehensive %[2]s level explanation about: %[1]s

Structure your response exactly as follows:
1. Definition/Overview - Clear, simple introduction
2. Key Concepts - 3-4 main concepts with brief explanations
3. Practical Examples - Real-world applications or code examples
4. Conclusion - Summary and next steps for learning

Use clear, simple language suitable for a %[2]s level learner.
Be concise and focus on the most important concepts.`, topic, depth)
}

// CodePrompt asks for heavily commented example code.
func CodePrompt(topic string, depth core.Depth) string {
	return fmt.Sprintf(`Generate %[2]s level Python code to demonstrate: %[1]s

Requirements:
1. Add detailed comments explaining EVERY section
2. Use popular ML libraries (scikit-learn, pandas, numpy)
3. Include a simple example that can be run immediately
4. Adjust code complexity for %[2]s level learners
5. Use clear variable names and follow Python best practices
6. Include explanatory comments before each major section

Format: Pure Python code that learners can understand and run.`, topic, depth)
}

// VisualPrompt asks for diagram instructions usable with Mermaid or draw.io.
func VisualPrompt(topic string, depth core.Depth) string {
	return fmt.Sprintf(`Generate a detailed visualization prompt for: %[1]s

The prompt should describe:
1. Overall architecture or workflow
2. Key components and their relationships
3. Data flow between components
4. Suggested visual elements (shapes, arrows, colors)
5. Be suitable for %[2]s level learners
6. Be compatible with Mermaid or draw.io tools

Format as clear, step-by-step visualization instructions.`, topic, depth)
}

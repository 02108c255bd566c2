package generate

// Prompt templates for code generation.

const SystemPrompt = `You are an assistant specialized in generating Python code. Output only the raw Python code based on the user's request, wrapped in ` + "```python" + ` markdown blocks.`

const userPromptTemplate = `Generate Python code for the following task:

%s

Ensure the code is complete, correct, and follows best practices. Output only the code itself. Please strictly implement the MCP service according to the following template example:

%s

Do not output any explanatory content, only the code`

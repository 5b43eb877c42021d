package llm

import "strings"

const promptTemplate = `You are a helpful assistant. Answer the question only using the context below.

Context:
{context}

Answer the following question strictly based on the context. Do not invent any information.

Question: {question}
Answer:`

// BuildPrompt fills the fixed grounding template.
func BuildPrompt(context, question string) string {
	r := strings.NewReplacer("{context}", context, "{question}", question)
	return r.Replace(promptTemplate)
}

package trainer

import "sort"

// topicPrompts is the topic registry. A session topic must resolve here
// before any task is scheduled.
var topicPrompts = map[string][]string{
	"error_handling": {
		"What is the best way to handle errors in Python?",
		"How should exceptions be logged in a production service?",
		"When should an error be retried versus surfaced to the caller?",
	},
	"api_handling": {
		"How do you design a REST API that evolves without breaking clients?",
		"What are the best practices for API rate limiting and backoff?",
		"How should an API client handle partial failures?",
	},
	"natural_language": {
		"Summarize the key challenges in natural language understanding.",
		"How do tokenization choices affect downstream model quality?",
		"Explain the difference between extractive and abstractive summarization.",
	},
	"data_processing": {
		"How would you deduplicate a large dataset efficiently?",
		"What are the tradeoffs between batch and streaming pipelines?",
		"How should malformed records be handled in an ingestion pipeline?",
	},
	"code_generation": {
		"Write a function that parses a CSV line respecting quoted fields.",
		"How do you structure generated code so it stays maintainable?",
		"Generate a retry wrapper with exponential backoff.",
	},
	"python_basics": {
		"Explain Python list comprehensions with examples.",
		"What is the difference between a list and a tuple in Python?",
		"How do Python context managers work?",
	},
	"general_knowledge": {
		"What distinguishes a good explanation from a complete one?",
		"How would you teach a complex topic to a beginner?",
		"What makes an answer trustworthy?",
	},
}

// KnownTopic reports whether a topic is in the registry
func KnownTopic(topic string) bool {
	_, ok := topicPrompts[topic]
	return ok
}

// Topics returns the registry's topic names, sorted
func Topics() []string {
	names := make([]string, 0, len(topicPrompts))
	for name := range topicPrompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prompts returns the prompt set for a topic, nil when unknown
func Prompts(topic string) []string {
	prompts, ok := topicPrompts[topic]
	if !ok {
		return nil
	}
	out := make([]string, len(prompts))
	copy(out, prompts)
	return out
}

package course

import (
	"fmt"
	"strings"
)

// Prompt builders for the generation workflow. Prompts that expect JSON back
// spell out the exact shape; the decoders in aitext.go enforce it.

func refineTopicPrompt(topic, languageName, nativeName string) string {
	return fmt.Sprintf(
		`A user wants to learn about: %q. Suggest three improved course titles. `+
			`IMPORTANT: Your response MUST be a valid JSON array of objects. Each object should have `+
			`a "title" in the %s (%s) language and an "englishTitle" in English. `+
			`Example: [{"title": "Title 1", "englishTitle": "English Title 1"}, `+
			`{"title": "Title 2", "englishTitle": "English Title 2"}, `+
			`{"title": "Title 3", "englishTitle": "English Title 3"}]`,
		topic, languageName, nativeName,
	)
}

func refineLessonPrompt(in RefineLessonInput) string {
	englishTopic := in.EnglishTopic
	if englishTopic == "" {
		englishTopic = in.Topic
	}
	englishSubtopic := in.EnglishSubtopicTitle
	if englishSubtopic == "" {
		englishSubtopic = in.SubtopicTitle
	}
	return fmt.Sprintf(
		`For a course on %q (English: %s) in the subtopic %q (English: %s), a user entered a lesson idea: %q. `+
			`Suggest three improved titles. IMPORTANT: Your response MUST be a valid JSON array of three objects. `+
			`Each object should have a "title" in the %s (%s) language and an "englishTitle" in English. `+
			`Example: [{"title": "Title 1", "englishTitle": "English Title 1"}, `+
			`{"title": "Title 2", "englishTitle": "English Title 2"}, `+
			`{"title": "Title 3", "englishTitle": "English Title 3"}]`,
		in.Topic, englishTopic, in.SubtopicTitle, englishSubtopic, in.LessonInput,
		in.LanguageName, in.NativeName,
	)
}

func objectivePrompt(topic, languageName, nativeName string) string {
	return fmt.Sprintf(
		`Generate 4-5 learning objectives for a course on: %q. The response must be in the %s (%s) language.`,
		topic, languageName, nativeName,
	)
}

func outcomePrompt(topic, objective, languageName, nativeName string) string {
	return fmt.Sprintf(
		`Based on topic %q and objectives %q, generate 4-5 learning outcomes. The response must be in the %s (%s) language.`,
		topic, objective, languageName, nativeName,
	)
}

func indexPrompt(c Course, numSubtopics int) string {
	subtopicText := fmt.Sprintf("%d subtopics", numSubtopics)
	if numSubtopics == 1 {
		subtopicText = "1 subtopic"
	}
	englishTopic := c.EnglishTopic
	if englishTopic == "" {
		englishTopic = c.Topic
	}
	return fmt.Sprintf(
		`Generate a course index for %q (English: %s) with exactly %s, where each subtopic has 3-5 lessons. `+
			`IMPORTANT: Your response MUST be a valid JSON object. All text must be in %s (%s). `+
			`Structure: { "subtopics": [{ "title": "...", "englishTitle": "...", `+
			`"lessons": [{"title": "...", "englishTitle": "..."}, {"title": "...", "englishTitle": "..."}] }] }`,
		c.Topic, englishTopic, subtopicText, c.LanguageName, c.NativeName,
	)
}

func lessonContentPrompt(c Course, subtopic Subtopic, lesson Lesson) string {
	return fmt.Sprintf(`For a self-paced course titled %q, in the subtopic %q, generate detailed lesson content for %q.

The content should be structured as follows:

### Welcome to this Lesson!
Briefly welcome the learner to this specific lesson and provide a concise overview of what they will learn.

### Understanding %s
Provide a comprehensive and easy-to-understand explanation of the lesson's topic. Break down complex ideas into simpler terms. Use clear headings and bullet points where appropriate.

### Practice Assignment: Self-Assessment
Design a practical assignment that the learner can complete independently to test their understanding. Provide clear, step-by-step instructions for the assignment.

### Self-Evaluation Criteria
Provide detailed criteria or expected outcomes against which the learner can self-evaluate their completed assignment. This should guide them on what to look for to determine if they successfully understood the concepts.

All content should be in the %s (%s) language.`,
		c.Topic, subtopic.Title, lesson.Title, lesson.Title, c.LanguageName, c.NativeName,
	)
}

func chatbotPrompt(c Course, userQuery string) string {
	return fmt.Sprintf(
		`You are an AI Tutor named TANISI for a course on %q. A student has asked: %q. `+
			`Provide a helpful and detailed explanation based on the course topic. `+
			`If the question is outside the scope of %q, gently decline to answer and guide the student back to the course material. `+
			`The response must be in the %s language.`,
		c.Topic, userQuery, c.Topic, c.LanguageName,
	)
}

func quizPrompt(c Course) string {
	var content strings.Builder
	for _, sub := range c.Index.Subtopics {
		for _, lesson := range sub.Lessons {
			fmt.Fprintf(&content, "Lesson: %s\nContent: %s\n\n", lesson.Title, lesson.Content)
		}
	}
	return fmt.Sprintf(
		`Based on the following course content for %q, generate a multiple-choice quiz with %d questions. `+
			`Each question must have 4 options, and you must indicate the correct answer. `+
			`IMPORTANT: Your response MUST be a valid JSON array of objects. Each object should have "question", `+
			`"options" (an array of 4 strings), and "correctAnswer" (a string matching one of the options).

Course Content:
%s`,
		c.Topic, c.QuestionCount(), content.String(),
	)
}

// videoSearchQuery builds the search phrase for a lesson's tutorial video.
// English titles keep results consistent across course languages.
func videoSearchQuery(c Course, subtopic Subtopic, lesson Lesson) string {
	return fmt.Sprintf("%s %s %s tutorial", c.EnglishTopic, subtopic.EnglishTitle, lesson.EnglishTitle)
}

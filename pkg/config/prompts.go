package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds every template sent to the model service plus the canned
// internal-note strings. Templates use {placeholder} substitution via Fill.
type Prompts struct {
	InitialQuestionTemplate string `yaml:"initial_question_template"`

	QuestionSystemPrompt  string `yaml:"question_system_prompt"`
	QuestionTemplate      string `yaml:"question_template"`
	RepeatAvoidanceNote   string `yaml:"repeat_avoidance_note"`
	RoleReversalTemplate  string `yaml:"role_reversal_template"`
	InterviewerInternal   string `yaml:"interviewer_internal_template"`
	ObserverPendingNotice string `yaml:"observer_pending_notice"`

	AnalysisSystemPrompt    string `yaml:"analysis_system_prompt"`
	AnalysisTemplate        string `yaml:"analysis_template"`
	InternalThoughtsPrefix  string `yaml:"internal_thoughts_prefix"`
	HallucinationNote       string `yaml:"hallucination_note"`
	OffTopicNote            string `yaml:"off_topic_note"`
	AnalysisFallbackNote    string `yaml:"analysis_fallback_note"`
	HeuristicActionNote     string `yaml:"heuristic_action_note"`
	ObserverTimeoutThoughts string `yaml:"observer_timeout_thoughts"`
	SuggestedTopicNote      string `yaml:"suggested_topic_note"`
	StopIntentThoughts      string `yaml:"stop_intent_thoughts"`

	ReportSystemPrompt string `yaml:"report_system_prompt"`
	ReportTemplate     string `yaml:"report_template"`
}

// DefaultPrompts returns Russian-language templates matching the default
// config, complete enough to run without a prompts file.
func DefaultPrompts() Prompts {
	return Prompts{
		InitialQuestionTemplate: "Здравствуйте! Я проведу ваше техническое интервью на позицию {position}. " +
			"Начнём с разминки: расскажите коротко о вашем опыте и о проекте, которым вы гордитесь.",

		QuestionSystemPrompt: "Ты опытный технический интервьюер. Задавай по одному вопросу за раз. " +
			"Отвечай строго JSON-объектом с полями question, reasoning и опциональным comment.",
		QuestionTemplate: "История диалога:\n{history}\n\nУже заданные вопросы:\n{asked_questions}\n\n" +
			"Кандидат претендует на позицию {position}, грейд {grade}. " +
			"Сложность следующего вопроса: {action}. Тема: {topic}.\n" +
			"Сформулируй следующий вопрос.",
		RepeatAvoidanceNote:   "ВАЖНО: не повторяй ни один из уже заданных вопросов, даже в перефразированном виде.",
		RoleReversalTemplate:  "Кандидат задал встречный вопрос: \"{user_question}\". Ответь коротко, в 1-2 предложениях, и верни инициативу интервьюеру.",
		InterviewerInternal:   "Следующий вопрос: сложность {action}, тема {topic}.",
		ObserverPendingNotice: "Анализирую ответ кандидата...",

		AnalysisSystemPrompt: "Ты наблюдатель на техническом интервью. Оцени ответ кандидата. " +
			"Отвечай строго JSON-объектом с полями action, scores{correctness,confidence}, notes, status, " +
			"correct_answer, hallucination, hallucination_reason, off_topic, off_topic_reason, " +
			"stop_intent, stop_intent_reason, role_reversal, role_reversal_reason, suggested_topic.",
		AnalysisTemplate:        "Вопрос интервьюера: {question}\nОтвет кандидата: {answer}\nПроанализируй ответ.",
		InternalThoughtsPrefix:  "[Observer]: ",
		HallucinationNote:       "Подозрение на выдуманный факт: {reason}",
		OffTopicNote:            "Ответ не по теме вопроса.",
		AnalysisFallbackNote:    "Анализ модели недоступен ({error}), использую эвристические оценки.",
		HeuristicActionNote:     "Эвристика предлагает сложность {action}: {reason}",
		ObserverTimeoutThoughts: "[Observer]: Анализ не успел завершиться, продолжаем с текущей сложностью.",
		SuggestedTopicNote:      "Рекомендую спросить про: {topic}.",
		StopIntentThoughts:      "[Observer]: Кандидат хочет завершить интервью.",

		ReportSystemPrompt: "Ты менеджер по найму. На основе интервью составь финальный отчёт. " +
			"Отвечай строго JSON-объектом с полями verdict{grade,recommendation,confidence_score}, " +
			"technical_review{topics,confirmed_skills,knowledge_gaps}, soft_skills{clarity,honesty,engagement}, " +
			"personal_roadmap.",
		ReportTemplate: "Кандидат: позиция {position}, заявленный грейд {grade}, опыт: {experience}.\n\n" +
			"Последние ходы интервью:\n{turns}\n\nНаблюдения по темам:\n{observations}\n\n{stats}\n\n" +
			"Составь финальный отчёт.",
	}
}

// LoadPrompts reads the YAML prompts file, filling any missing key from the
// defaults so partial files are valid.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return prompts, nil
	}
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to read prompts %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return Prompts{}, fmt.Errorf("failed to parse prompts %s: %w", path, err)
	}
	return prompts, nil
}

// Fill substitutes {name} placeholders. Unknown placeholders are left
// intact so a template typo is visible in the output rather than silent.
func Fill(template string, values map[string]string) string {
	out := template
	for name, value := range values {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

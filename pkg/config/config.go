// Package config provides configuration loading, validation, and management
// for the interview orchestrator.
//
// A single global Config instance is kept in memory, protected by a mutex,
// and handed out BY VALUE so callers cannot mutate shared state. Prompt
// templates live in a separate YAML file (see prompts.go) and provider API
// keys come from the encrypted secrets file or the environment (secrets.go).
// All config changes must increment SchemaVersion.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// CurrentSchemaVersion is written to new config files and checked on load.
const CurrentSchemaVersion = "1.0"

//nolint:gochecknoglobals // Intentional singleton pattern for config management
var (
	config *Config
	mu     sync.RWMutex
)

// ModelConfig selects the model-service provider.
type ModelConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	// BaseURL overrides the provider endpoint for OpenAI-compatible
	// services (Mistral) and Ollama.
	BaseURL string `json:"base_url,omitempty"`
}

// TopicRule maps question keywords to a topic name.
type TopicRule struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// InterviewerConfig drives question generation and turn sequencing.
type InterviewerConfig struct {
	DefaultTopic string `json:"default_topic"`
	// BaseQuestions is the deterministic fallback rotation. It must hold
	// at least as many distinct entries as the interview has turns.
	BaseQuestions []string    `json:"base_questions"`
	TopicMap      []TopicRule `json:"topic_map"`
	// UseModelQuestions false pins question generation to the rotation.
	UseModelQuestions bool `json:"use_model_questions"`
	// MaxQuestionAttempts is total model attempts per question, first
	// attempt included.
	MaxQuestionAttempts    int `json:"max_question_attempts"`
	MaxHistoryTurns        int `json:"max_history_turns"`
	ModelTimeoutSeconds    int `json:"model_timeout_seconds"`
	ObserverTimeoutSeconds int `json:"observer_timeout_seconds"`
}

// ObserverConfig drives answer analysis.
type ObserverConfig struct {
	ModelTimeoutSeconds int `json:"model_timeout_seconds"`
	// MaxRetries is additional attempts after the first.
	MaxRetries      int `json:"max_retries"`
	CooldownSeconds int `json:"cooldown_seconds"`
}

// ManagerConfig drives final-report generation.
type ManagerConfig struct {
	ModelTimeoutSeconds int `json:"model_timeout_seconds"`
	// MaxTurns caps how many recent turns the report prompt embeds.
	MaxTurns int `json:"max_turns"`
}

// PolicyConfig configures the deterministic rule set.
type PolicyConfig struct {
	ActionReasonIncrease string   `json:"action_reason_increase"`
	ActionReasonSame     string   `json:"action_reason_same"`
	ActionReasonDecrease string   `json:"action_reason_decrease"`
	RoleReversalReply    string   `json:"role_reversal_reply"`
	StopPhrases          []string `json:"stop_phrases,omitempty"`
}

// FeedbackConfig parameterizes the deterministic fallback report.
type FeedbackConfig struct {
	RecommendationNoGaps    string   `json:"recommendation_no_gaps"`
	RecommendationHasGaps   string   `json:"recommendation_has_gaps"`
	ConfidenceNoGaps        int      `json:"confidence_no_gaps"`
	ConfidenceHasGaps       int      `json:"confidence_has_gaps"`
	SoftSkillClarity        string   `json:"soft_skill_clarity"`
	SoftSkillHonestyNoGaps  string   `json:"soft_skill_honesty_no_gaps"`
	SoftSkillHonestyGaps    string   `json:"soft_skill_honesty_with_gaps"`
	SoftSkillEngagement     string   `json:"soft_skill_engagement"`
	RoadmapDefaultResources []string `json:"roadmap_default_resources"`
}

// StorageConfig locates session persistence.
type StorageConfig struct {
	DatabasePath string `json:"database_path"`
	// ExportDir receives one JSON document per finished session.
	ExportDir   string `json:"export_dir"`
	EventLogDir string `json:"event_log_dir"`
}

// Config is the complete runtime configuration.
type Config struct {
	SchemaVersion string            `json:"schema_version"`
	Model         ModelConfig       `json:"model"`
	PromptsPath   string            `json:"prompts_path"`
	Interviewer   InterviewerConfig `json:"interviewer"`
	Observer      ObserverConfig    `json:"observer"`
	Manager       ManagerConfig     `json:"manager"`
	Policy        PolicyConfig      `json:"policy"`
	Feedback      FeedbackConfig    `json:"final_feedback"`
	Storage       StorageConfig     `json:"storage"`
}

// DefaultConfig returns a complete configuration that runs an interview
// without any file present.
func DefaultConfig() Config {
	return Config{
		SchemaVersion: CurrentSchemaVersion,
		Model: ModelConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
		},
		PromptsPath: "config/prompts.yaml",
		Interviewer: InterviewerConfig{
			DefaultTopic: "Basics",
			BaseQuestions: []string{
				"Расскажите, что такое индекс в базе данных и зачем он нужен?",
				"Чем отличается список от множества?",
				"Что такое транзакция и какие гарантии она даёт?",
				"Как бы вы искали узкое место в медленном HTTP-сервисе?",
				"Что происходит при выполнении JOIN двух таблиц?",
				"Объясните разницу между процессом и потоком.",
				"Что такое идемпотентность и где она важна?",
				"Как устроена хеш-таблица?",
			},
			TopicMap: []TopicRule{
				{Name: "SQL", Keywords: []string{"sql", "индекс", "таблиц", "join", "транзакц"}},
				{Name: "Data Structures", Keywords: []string{"список", "множеств", "хеш", "структур"}},
				{Name: "Concurrency", Keywords: []string{"процесс", "поток", "гонк", "блокировк"}},
				{Name: "Web", Keywords: []string{"http", "api", "сервис", "идемпотент"}},
			},
			UseModelQuestions:      true,
			MaxQuestionAttempts:    3,
			MaxHistoryTurns:        4,
			ModelTimeoutSeconds:    20,
			ObserverTimeoutSeconds: 30,
		},
		Observer: ObserverConfig{
			ModelTimeoutSeconds: 20,
			MaxRetries:          2,
			CooldownSeconds:     30,
		},
		Manager: ManagerConfig{
			ModelTimeoutSeconds: 25,
			MaxTurns:            12,
		},
		Policy: PolicyConfig{
			ActionReasonIncrease: "Уверенный ответ, повышаем сложность.",
			ActionReasonSame:     "Держим текущий уровень сложности.",
			ActionReasonDecrease: "Ответ слабый, снижаем сложность.",
			RoleReversalReply:    "Хороший вопрос! Коротко: давайте я отвечу после интервью, а сейчас продолжим.",
		},
		Feedback: FeedbackConfig{
			RecommendationNoGaps:   "Hire",
			RecommendationHasGaps:  "No Hire",
			ConfidenceNoGaps:       75,
			ConfidenceHasGaps:      45,
			SoftSkillClarity:       "Отвечает по существу.",
			SoftSkillHonestyNoGaps: "Отвечал уверенно и последовательно.",
			SoftSkillHonestyGaps:   "Честно признавал пробелы в знаниях.",
			SoftSkillEngagement:    "Вовлечён в диалог.",
			RoadmapDefaultResources: []string{
				"Официальная документация по теме",
				"Практические задачи на тренажёрах",
			},
		},
		Storage: StorageConfig{
			DatabasePath: "logs/interviews.db",
			ExportDir:    "logs",
			EventLogDir:  "logs/events",
		},
	}
}

// Durations derived from the integer-second fields.
func (c InterviewerConfig) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}

func (c InterviewerConfig) ObserverTimeout() time.Duration {
	return time.Duration(c.ObserverTimeoutSeconds) * time.Second
}

func (c ObserverConfig) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}

func (c ObserverConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c ManagerConfig) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}

// Validate rejects configs that cannot run an interview.
func (c *Config) Validate() error {
	if c.SchemaVersion == "" {
		return fmt.Errorf("schema_version is required")
	}
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if len(c.Interviewer.BaseQuestions) == 0 {
		return fmt.Errorf("interviewer.base_questions must not be empty")
	}
	if c.Interviewer.MaxQuestionAttempts < 1 {
		return fmt.Errorf("interviewer.max_question_attempts must be at least 1")
	}
	if c.Observer.MaxRetries < 0 {
		return fmt.Errorf("observer.max_retries must not be negative")
	}
	if c.Observer.CooldownSeconds < 0 {
		return fmt.Errorf("observer.cooldown_seconds must not be negative")
	}
	if c.Manager.MaxTurns < 1 {
		return fmt.Errorf("manager.max_turns must be at least 1")
	}
	return nil
}

// LoadConfig reads the config file into the singleton. A missing file loads
// defaults, so a bare checkout still runs.
func LoadConfig(path string) error {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	config = &cfg
	return nil
}

// SetConfig installs a config directly, for tests and embedding hosts.
func SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	config = &cfg
	return nil
}

// GetConfig returns the loaded config by value.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return Config{}, fmt.Errorf("config not loaded, call LoadConfig first")
	}
	return *config, nil
}

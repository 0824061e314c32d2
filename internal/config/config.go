package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is built once at startup from the environment and handed to each
// client constructor. Workflow code never reads ambient state.
type Config struct {
	BambooHR BambooHRConfig
	WebWork  WebWorkConfig
	Sheet    SheetConfig
	Slack    SlackConfig
	Kafka    KafkaConfig
	Login    LoginConfig
}

type BambooHRConfig struct {
	Subdomain   string
	APIKey      string
	TemplateID  string // e-signature template for the offer letter
	HeadersFile string // session header cache for the legacy AJAX endpoints
}

type WebWorkConfig struct {
	URL      string
	Username string
	Password string
	Teams    []string // first entry is the primary team for the fallback path
	Role     int
	Project  string
}

type SheetConfig struct {
	ID              string
	Tab             string
	CredentialsFile string
	MappingFile     string // optional column/field map overrides
}

type SlackConfig struct {
	Token   string
	Channel string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Source  string
}

// LoginConfig belongs to the external interactive login collaborator. Command
// is executed to mint a fresh session header bundle; the credentials are
// consumed by that helper, not by this process.
type LoginConfig struct {
	Command    string
	Username   string
	Password   string
	TOTPSecret string
}

func (c SlackConfig) Enabled() bool { return c.Token != "" && c.Channel != "" }
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 && c.Topic != "" }

// FromEnv reads the configuration surface. Required values that are absent
// make the load fail fast; there are no embedded fallback secrets.
func FromEnv() (*Config, error) {
	var missing []string
	need := func(name string) string {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			missing = append(missing, name)
		}
		return v
	}
	opt := func(name, def string) string {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			return def
		}
		return v
	}

	cfg := &Config{
		BambooHR: BambooHRConfig{
			Subdomain:   need("BAMBOOHR_SUBDOMAIN"),
			APIKey:      need("BAMBOOHR_API_KEY"),
			TemplateID:  need("BAMBOOHR_TEMPLATE_ID"),
			HeadersFile: opt("BAMBOOHR_HEADERS_FILE", "bamboo_headers.json"),
		},
		WebWork: WebWorkConfig{
			URL:      need("WEBWORK_URL"),
			Username: need("WEBWORK_USERNAME"),
			Password: need("WEBWORK_PASSWORD"),
			Teams:    splitList(opt("WEBWORK_TEAMS", "New Joiners - Onboarding Team,AGENTS")),
			Project:  opt("WEBWORK_PROJECT", "Training"),
		},
		Sheet: SheetConfig{
			ID:              need("SHEET_ID"),
			Tab:             need("SHEET_NAME"),
			CredentialsFile: need("GOOGLE_SERVICE_ACCOUNT_FILE"),
			MappingFile:     opt("ONBOARDING_MAPPING_FILE", ""),
		},
		Slack: SlackConfig{
			Token:   opt("SLACK_BOT_TOKEN", ""),
			Channel: opt("SLACK_CHANNEL", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(opt("KAFKA_BROKERS", "")),
			Topic:   opt("KAFKA_TOPIC", ""),
			Source:  opt("KAFKA_SOURCE", "onboarding-bot"),
		},
		Login: LoginConfig{
			Command:    opt("BAMBOOHR_LOGIN_COMMAND", ""),
			Username:   opt("BAMBOOHR_USERNAME", ""),
			Password:   opt("BAMBOOHR_PASSWORD", ""),
			TOTPSecret: opt("BAMBOOHR_TOTP_SECRET", ""),
		},
	}

	role, err := strconv.Atoi(opt("WEBWORK_ROLE", "30"))
	if err != nil {
		return nil, fmt.Errorf("config: WEBWORK_ROLE: %w", err)
	}
	cfg.WebWork.Role = role

	if len(missing) > 0 {
		return nil, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/smartdoc/tracker-api/internal/config"
	"github.com/smartdoc/tracker-api/internal/model"
	"github.com/smartdoc/tracker-api/internal/notifier"
	"github.com/smartdoc/tracker-api/internal/repository"
	"github.com/smartdoc/tracker-api/pkg/logger"
)

const defaultAPIURL = "https://api.resend.com/emails"

// Providers selectable through configuration.
const (
	ProviderSMTP = "smtp"
	ProviderAPI  = "api"
)

// Sender delivers deadline reminders as HTML email. The static config
// is the fallback; values in the settings store override it on every
// Refresh, so operators can switch providers without a redeploy.
type Sender struct {
	static   config.EmailConfig
	settings repository.SettingsRepository
	log      *logger.Logger
	client   *http.Client

	mu  sync.RWMutex
	cfg config.EmailConfig
}

func New(static config.EmailConfig, settings repository.SettingsRepository, log *logger.Logger) *Sender {
	return &Sender{
		static:   static,
		settings: settings,
		log:      log,
		client:   &http.Client{Timeout: 10 * time.Second},
		cfg:      static,
	}
}

func (s *Sender) Channel() string { return model.ChannelEmail }

// Refresh overlays the settings store onto the static configuration.
func (s *Sender) Refresh(ctx context.Context) error {
	cfg := s.static

	if s.settings != nil {
		if raw, err := s.settings.Get(ctx, model.SettingEmailProvider); err != nil {
			return fmt.Errorf("failed to load email provider: %w", err)
		} else if raw != nil {
			var provider string
			if err := json.Unmarshal(raw, &provider); err == nil && provider != "" {
				cfg.Provider = provider
			}
		}

		if raw, err := s.settings.Get(ctx, model.SettingSMTPConfig); err != nil {
			return fmt.Errorf("failed to load smtp config: %w", err)
		} else if raw != nil {
			var smtp config.SMTPConfig
			if err := json.Unmarshal(raw, &smtp); err == nil {
				overlaySMTP(&cfg.SMTP, smtp)
			}
		}

		if raw, err := s.settings.Get(ctx, model.SettingEmailAPI); err != nil {
			return fmt.Errorf("failed to load email api config: %w", err)
		} else if raw != nil {
			var api config.EmailAPIConfig
			if err := json.Unmarshal(raw, &api); err == nil {
				overlayAPI(&cfg.API, api)
			}
		}
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

func overlaySMTP(dst *config.SMTPConfig, src config.SMTPConfig) {
	if src.Host != "" {
		dst.Host = src.Host
	}
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.User != "" {
		dst.User = src.User
	}
	if src.Password != "" {
		dst.Password = src.Password
	}
	if src.FromName != "" {
		dst.FromName = src.FromName
	}
}

func overlayAPI(dst *config.EmailAPIConfig, src config.EmailAPIConfig) {
	if src.URL != "" {
		dst.URL = src.URL
	}
	if src.Key != "" {
		dst.Key = src.Key
	}
	if src.FromEmail != "" {
		dst.FromEmail = src.FromEmail
	}
}

func (s *Sender) effective() config.EmailConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Sender) enabled(cfg config.EmailConfig) bool {
	switch cfg.Provider {
	case ProviderSMTP:
		return cfg.SMTP.User != "" && cfg.SMTP.Password != ""
	case ProviderAPI:
		return cfg.API.Key != ""
	}
	return false
}

func (s *Sender) CanSend(user *model.Profile) bool {
	return user.Email != "" && s.enabled(s.effective())
}

func (s *Sender) Send(ctx context.Context, user *model.Profile, reminder *notifier.Reminder) notifier.Result {
	cfg := s.effective()
	if !s.enabled(cfg) {
		return notifier.Skipped("email channel not configured")
	}

	subject, html := Render(reminder)

	var err error
	switch cfg.Provider {
	case ProviderSMTP:
		err = s.sendSMTP(ctx, cfg.SMTP, user.Email, subject, html)
	case ProviderAPI:
		err = s.sendAPI(ctx, cfg.API, user.Email, subject, html)
	default:
		err = fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}

	if err != nil {
		s.log.Error(err, "email send failed", "recipient", user.Email)
		return notifier.Failed(err)
	}

	s.log.Info("email sent", "recipient", user.Email, "subject", subject)
	return notifier.Sent()
}

func (s *Sender) sendSMTP(ctx context.Context, cfg config.SMTPConfig, to, subject, html string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", cfg.User, cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)

	return notifier.CallWithContext(ctx, func() error {
		return d.DialAndSend(m)
	})
}

func (s *Sender) sendAPI(ctx context.Context, cfg config.EmailAPIConfig, to, subject, html string) error {
	url := cfg.URL
	if url == "" {
		url = defaultAPIURL
	}

	body, err := json.Marshal(map[string]interface{}{
		"from":    cfg.FromEmail,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.Key)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email api returned status %d", resp.StatusCode)
	}
	return nil
}

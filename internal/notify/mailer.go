package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type mailConfig struct {
	APIKey string
	APIURL string
	From   string
}

var mailCfg mailConfig

var mailHTTP = &http.Client{Timeout: 10 * time.Second}

type mailSendBody struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from,omitempty"`
}

// SendEmail posts a plain text email to the transactional mail API. Without
// an API key the send is logged and skipped, which keeps local development
// working without a mail account.
func SendEmail(to, subject, body string) error {
	if mailCfg.APIKey == "" {
		zap.L().Info("mail not configured, skipping send",
			zap.String("to", to), zap.String("subject", subject))
		return nil
	}

	b, err := json.Marshal(mailSendBody{To: to, Subject: subject, Body: body, From: mailCfg.From})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, mailCfg.APIURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+mailCfg.APIKey)

	resp, err := mailHTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if len(detail) > 0 {
			return fmt.Errorf("mail send failed: status=%d body=%s", resp.StatusCode, detail)
		}
		return fmt.Errorf("mail send failed: status=%d", resp.StatusCode)
	}
	return nil
}

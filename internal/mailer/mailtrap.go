package mailer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"text/template"
	"time"
)

const mailtrapURL = "https://send.api.mailtrap.io/api/send"

type mailtrapClient struct {
	apiKey    string
	fromEmail string
	client    *http.Client
}

func NewMailTrapClient(apiKey, fromEmail string) (Client, error) {
	if apiKey == "" {
		return nil, errors.New("mailtrap api key is required")
	}

	return &mailtrapClient{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (m *mailtrapClient) Send(templateFile, username, email string, data any) (int, error) {
	subject, body, err := renderTemplate(templateFile, data)
	if err != nil {
		return -1, err
	}

	payload := map[string]any{
		"from": map[string]string{
			"email": m.fromEmail,
			"name":  FromName,
		},
		"to": []map[string]string{
			{"email": email, "name": username},
		},
		"subject": subject,
		"html":    body,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return -1, err
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequest(http.MethodPost, mailtrapURL, bytes.NewReader(raw))
		if err != nil {
			return -1, err
		}
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Second * time.Duration(i+1))
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp.StatusCode, nil
		}
		lastErr = fmt.Errorf("mailtrap responded with status %d", resp.StatusCode)
		time.Sleep(time.Second * time.Duration(i+1))
	}

	return -1, fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr)
}

func renderTemplate(templateFile string, data any) (subject, body string, err error) {
	tmpl, err := template.ParseFS(FS, "templates/"+templateFile)
	if err != nil {
		return "", "", err
	}

	subjBuf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subjBuf, "subject", data); err != nil {
		return "", "", err
	}

	bodyBuf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(bodyBuf, "body", data); err != nil {
		return "", "", err
	}

	return subjBuf.String(), bodyBuf.String(), nil
}

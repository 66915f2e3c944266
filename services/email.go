package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"os"
)

// Transactional mail goes out through the Resend HTTP API.

const (
	resendEndpoint = "https://api.resend.com/emails"
	mailFrom       = "MailScout <accounts@mailscout.dev>"
)

type resendMessage struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

var verificationBody = template.Must(template.New("verification").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Welcome to MailScout!</h2>
<p>Thank you for signing up. Please verify your email address to continue.</p>
<p>Your 6-digit verification code is:</p>
<h1 style="color: #2563eb; letter-spacing: 5px; font-size: 36px; background: #f0f9ff; padding: 10px 20px; border-radius: 8px; display: inline-block;">{{.Code}}</h1>
<p>If you did not request this code, you can safely ignore this email.</p>
</div>`))

// SendVerificationEmail delivers the 6-digit signup code.
func SendVerificationEmail(toEmail, code string) error {
	var html bytes.Buffer
	if err := verificationBody.Execute(&html, struct{ Code string }{code}); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	return sendResend(resendMessage{
		From:    mailFrom,
		To:      []string{toEmail},
		Subject: code + " is your MailScout verification code",
		HTML:    html.String(),
		Text:    "Your MailScout verification code is: " + code,
	})
}

func sendResend(msg resendMessage) error {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		log.Println("WARNING: RESEND_API_KEY is not set, mail will not be sent")
		return fmt.Errorf("RESEND_API_KEY not set")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", resendEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend rejected the message (HTTP %d): %s", resp.StatusCode, body)
	}

	log.Printf("[Resend] Mail queued for %v", msg.To)
	return nil
}

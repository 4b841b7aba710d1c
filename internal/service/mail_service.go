package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/smtp"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

const EmailQueueKey = "task:email"

const (
	MailConfirm       = "confirm"
	MailResetPassword = "reset_password"
)

type EmailTask struct {
	To       string `json:"to"`
	Category string `json:"category"` // "confirm" or "reset_password"
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Mailer delivers a single message. The worker owns retries and logging, so
// implementations just send.
type Mailer interface {
	Send(to, subject, body string) error
}

// MailService queues account emails on redis so the request path never waits
// on SMTP; a background worker drains the queue.
type MailService interface {
	Enqueue(ctx context.Context, task EmailTask) error
	StartWorker(ctx context.Context)
}

type mailService struct {
	rdb     *redis.Client
	mailer  Mailer
	baseURL string
}

func NewMailService(rdb *redis.Client, mailer Mailer) MailService {
	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &mailService{rdb: rdb, mailer: mailer, baseURL: baseURL}
}

func (s *mailService) Enqueue(ctx context.Context, task EmailTask) error {
	if s.rdb == nil {
		// No queue configured, deliver inline.
		s.deliver(task)
		return nil
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, EmailQueueKey, payload).Err()
}

func (s *mailService) StartWorker(ctx context.Context) {
	if s.rdb == nil {
		return
	}

	log.Println("📧 Email Worker Started...")
	for {
		res, err := s.rdb.BLPop(ctx, 0, EmailQueueKey).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Redis BLPOP error: %v, retrying in 1s...", err)
			time.Sleep(1 * time.Second)
			continue
		}

		if len(res) < 2 {
			continue
		}

		var task EmailTask
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			log.Printf("Invalid email task json: %v", err)
			continue
		}

		s.deliver(task)
	}
}

func (s *mailService) deliver(task EmailTask) {
	var subject, body string
	switch task.Category {
	case MailConfirm:
		subject = "Confirm your account"
		body = fmt.Sprintf("Hi %s,\n\nConfirm your account by visiting:\n%s/api/v1/auth/confirm?token=%s\n",
			task.Username, s.baseURL, task.Token)
	case MailResetPassword:
		subject = "Reset your password"
		body = fmt.Sprintf("Hi %s,\n\nReset your password by visiting:\n%s/reset-password?token=%s\n",
			task.Username, s.baseURL, task.Token)
	default:
		log.Printf("Unknown email task category: %s", task.Category)
		return
	}

	if s.mailer == nil {
		log.Printf("mailer not configured, dropping %s email to %s", task.Category, task.To)
		return
	}
	if err := s.mailer.Send(task.To, subject, body); err != nil {
		log.Printf("Failed to send %s email to %s: %v", task.Category, task.To, err)
	}
}

type smtpMailer struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewSMTPMailer reads SMTP_* env vars; returns nil when no host is set so the
// mail worker degrades to log-only in development.
func NewSMTPMailer() Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil
	}

	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USER")
	}

	return &smtpMailer{
		host: host,
		port: port,
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
		from: from,
	}
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body))

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	return smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{to}, msg)
}

package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/sysu-ecnc-dev/mrcpsp-solver/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// buildMessage 根据邮件类型选择模板并构建邮件
func buildMessage(from string, body []byte) (*mail.Msg, error) {
	var mailMessage struct {
		Type string          `json:"type"`
		To   string          `json:"to"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &mailMessage); err != nil {
		return nil, fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(mailMessage.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}

	var (
		name    string
		subject string
		data    any
	)
	switch mailMessage.Type {
	case domain.MailTypeEvolutionFinished:
		d := domain.EvolutionFinishedMailData{}
		if err := json.Unmarshal(mailMessage.Data, &d); err != nil {
			return nil, fmt.Errorf("邮件数据反序列化失败: %w", err)
		}
		name, subject, data = "evolution_finished.html", "MRCPSP 求解器 - 演化任务已完成", d
	case domain.MailTypeEvolutionFailed:
		d := domain.EvolutionFailedMailData{}
		if err := json.Unmarshal(mailMessage.Data, &d); err != nil {
			return nil, fmt.Errorf("邮件数据反序列化失败: %w", err)
		}
		name, subject, data = "evolution_failed.html", "MRCPSP 求解器 - 演化任务失败", d
	default:
		return nil, fmt.Errorf("不支持的邮件类型: %s", mailMessage.Type)
	}

	if err := msg.SetBodyHTMLTemplate(templates.Lookup(name), data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	msg.Subject(subject)

	return msg, nil
}

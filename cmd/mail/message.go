package main

import (
	"encoding/json"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

type mailTemplate struct {
	file    string
	subject string
	tmpl    *template.Template
}

func mailTemplates() map[string]*mailTemplate {
	return map[string]*mailTemplate{
		domain.MailTypeTimetableGenerated: {
			file:    "timetable_generated_email.html",
			subject: "ECNC 排课系统 - 课表已生成",
		},
		domain.MailTypeTimetableFailed: {
			file:    "timetable_failed_email.html",
			subject: "ECNC 排课系统 - 排课失败",
		},
	}
}

// loadTemplates 在启动时解析全部模板，模板缺失时直接退出
func loadTemplates(dir string) (map[string]*mailTemplate, error) {
	templates := mailTemplates()
	for _, t := range templates {
		tmpl, err := template.ParseFiles(filepath.Join(dir, t.file))
		if err != nil {
			return nil, err
		}
		t.tmpl = tmpl
	}
	return templates, nil
}

// newMessage 根据队列中的消息构建邮件，出错说明消息本身有问题，重试也不会成功
func newMessage(templates map[string]*mailTemplate, from string, body []byte) (*mail.Msg, error) {
	mailMessage := domain.MailMessage{}
	if err := json.Unmarshal(body, &mailMessage); err != nil {
		return nil, fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	t, ok := templates[mailMessage.Type]
	if !ok {
		return nil, fmt.Errorf("不支持的邮件类型 %q", mailMessage.Type)
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(mailMessage.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	if err := msg.SetBodyHTMLTemplate(t.tmpl, mailMessage.Data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	msg.Subject(t.subject)

	return msg, nil
}

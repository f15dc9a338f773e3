package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"propout-gateway/internal/platform/config"
	"propout-gateway/internal/platform/logger"
	"propout-gateway/internal/storage/database/request"

	"gopkg.in/gomail.v2"
)

// 新需求通知信的 HTML 模板
var requestMailTemplate = template.Must(template.New("property_request").Parse(`
<h2>新的物業需求</h2>
<table border="0" cellpadding="4">
  <tr><td><b>姓名</b></td><td>{{.Name}}</td></tr>
  <tr><td><b>電子郵件</b></td><td>{{.Email}}</td></tr>
  <tr><td><b>電話</b></td><td>{{.Phone}}</td></tr>
  <tr><td><b>物業類型</b></td><td>{{.PropertyType}}</td></tr>
  <tr><td><b>預算</b></td><td>{{.Budget}}</td></tr>
  <tr><td><b>地點</b></td><td>{{.Location}}</td></tr>
  {{if .AdditionalInfo}}<tr><td><b>補充說明</b></td><td>{{.AdditionalInfo}}</td></tr>{{end}}
</table>
`))

// Sender 郵件發送接口.
type Sender interface {
	NotifyNewRequest(ctx context.Context, req *request.PropertyRequest) error
}

// Mailer SMTP 郵件通知器.
// 發送失敗只記錄日誌，不影響主要流程；未啟用時所有操作為 no-op。
type Mailer struct {
	enabled bool
	from    string
	to      string
	dialer  *gomail.Dialer
}

// New 依配置創建郵件通知器.
func New(cfg config.MailConfig) *Mailer {
	m := &Mailer{
		enabled: cfg.Enabled,
		from:    cfg.From,
		to:      cfg.To,
	}

	if cfg.Enabled {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}

	return m
}

// NotifyNewRequest 發送新物業需求的通知信.
func (m *Mailer) NotifyNewRequest(ctx context.Context, req *request.PropertyRequest) error {
	if !m.enabled {
		return nil
	}

	var body bytes.Buffer
	if err := requestMailTemplate.Execute(&body, req); err != nil {
		return fmt.Errorf("渲染通知信模板失敗: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", fmt.Sprintf("新物業需求: %s (%s)", req.Name, req.PropertyType))
	msg.SetBody("text/html", body.String())

	if err := m.dialer.DialAndSend(msg); err != nil {
		logger.Errorf(ctx, "發送通知信失敗: %v", err)
		return fmt.Errorf("發送通知信失敗: %w", err)
	}

	logger.Debug(ctx, "通知信已發送", logger.WithDetails(map[string]interface{}{
		"request_id": req.ID,
	}))
	return nil
}

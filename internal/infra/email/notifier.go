package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, logger: logger}
}

func (n *SMTPNotifier) Notify(_ context.Context, note entity.Notification) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	msg := n.buildMessage(note)

	err := smtp.SendMail(addr, nil, n.from, []string{note.NotifyTarget}, []byte(msg))
	if err != nil {
		n.logger.Error("failed to send notification email",
			zap.String("to", note.NotifyTarget),
			zap.String("outcome", string(note.Outcome)),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("notification email sent",
		zap.String("to", note.NotifyTarget),
		zap.String("outcome", string(note.Outcome)),
	)
	return nil
}

func (n *SMTPNotifier) buildMessage(note entity.Notification) string {
	var subject, body string
	if note.Outcome == entity.OutcomeSuccess {
		subject = fmt.Sprintf("Video Frame Pro - Your frames are ready [%s]", note.SourceID)
		body = fmt.Sprintf(
			"Hello,\r\n\r\n"+
				"The frames extracted from your video are ready.\r\n\r\n"+
				"Download: %s\r\n\r\n"+
				"The link expires in one hour.\r\n\r\n"+
				"-- Video Frame Pro",
			note.DownloadLink,
		)
	} else {
		subject = fmt.Sprintf("Video Frame Pro - Frame extraction failed [%s]", note.SourceID)
		body = "Hello,\r\n\r\n" +
			"We could not extract the frames from your video.\r\n\r\n" +
			"Please try uploading the video again or contact support.\r\n\r\n" +
			"-- Video Frame Pro"
	}

	return fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		headerValue(n.from), headerValue(note.NotifyTarget), headerValue(subject), body,
	)
}

// headerValue keeps a value on a single header line.
var headerValue = strings.NewReplacer("\r", "", "\n", "").Replace

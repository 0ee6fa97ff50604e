package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/outflow-sh/outflow/internal/adapters/fs"
	"github.com/outflow-sh/outflow/internal/cliconfig"
	"github.com/outflow-sh/outflow/internal/contact"
	"github.com/outflow-sh/outflow/internal/domain"
	"github.com/outflow-sh/outflow/internal/ports"
	"github.com/outflow-sh/outflow/internal/session"
)

type stubSender struct {
	err  error
	sent []ports.Message
}

func (s *stubSender) Send(_ context.Context, msg ports.Message) (ports.SendResult, error) {
	if s.err != nil {
		return ports.SendResult{}, s.err
	}
	s.sent = append(s.sent, msg)
	return ports.SendResult{MessageID: "m1", Timestamp: time.Now()}, nil
}

func newTestServer(t *testing.T, chat ports.Sender, mail ports.Sender) *Server {
	t.Helper()
	cfg := cliconfig.DefaultConfig()
	cfg.DelayFixed = time.Nanosecond
	return New(Config{
		Status: func() session.Status {
			return session.Status{Connected: true, State: "connected"}
		},
		Chat:     chat,
		Mail:     mail,
		Resolver: contact.NewResolver("", ""),
		Runtime:  cliconfig.NewRuntime(cfg),
		Reports:  fs.NewReportStore(t.TempDir(), nil),
	})
}

func csvUpload(t *testing.T, csvBody, message string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "recipients.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write([]byte(csvBody))
	w.WriteField("message", message)
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubSender{}, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusChallengeNullWhenConnected(t *testing.T) {
	s := newTestServer(t, &stubSender{}, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"pendingChallenge":null`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestSendMessagesBulkRun(t *testing.T) {
	chat := &stubSender{}
	s := newTestServer(t, chat, nil)

	body, ctype := csvUpload(t, "number,name\n9876543210,Alice\n9123456789,Bob\n", "Hi {{name}}")
	req := httptest.NewRequest(http.MethodPost, "/api/send-messages", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var report fs.RunReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Summary.Sent != 2 || report.RunID == "" {
		t.Fatalf("report = %+v", report)
	}
	if len(chat.sent) != 2 || chat.sent[0].Body != "Hi Alice" {
		t.Fatalf("sent = %+v", chat.sent)
	}

	// The archived report is retrievable afterwards.
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/last-run", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("last-run status = %d", rec.Code)
	}
}

func TestSendMessagesConflictWhileRunning(t *testing.T) {
	s := newTestServer(t, &stubSender{}, nil)
	s.busy.Store(true)

	body, ctype := csvUpload(t, "number\n9876543210\n", "hi")
	req := httptest.NewRequest(http.MethodPost, "/api/send-messages", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestSendMessagesRequiresFile(t *testing.T) {
	s := newTestServer(t, &stubSender{}, nil)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("message", "hi")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/send-messages", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSendMessagesRejectsFileWithoutAddressColumn(t *testing.T) {
	s := newTestServer(t, &stubSender{}, nil)
	body, ctype := csvUpload(t, "name,notes\nAlice,x\n", "hi")
	req := httptest.NewRequest(http.MethodPost, "/api/send-messages", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestEmailEndpointWithoutMailer(t *testing.T) {
	s := newTestServer(t, &stubSender{}, nil)
	body, ctype := csvUpload(t, "email\na@example.com\n", "hi")
	req := httptest.NewRequest(http.MethodPost, "/api/email/send-messages", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestEmailBulkRun(t *testing.T) {
	mail := &stubSender{}
	s := newTestServer(t, &stubSender{}, mail)
	body, ctype := csvUpload(t, "email,name\nA@Example.com,Alice\n", "Hi {{name}}")
	req := httptest.NewRequest(http.MethodPost, "/api/email/send-messages", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(mail.sent) != 1 || mail.sent[0].Address != "a@example.com" {
		t.Fatalf("sent = %+v", mail.sent)
	}
}

func TestSendTestMessage(t *testing.T) {
	chat := &stubSender{}
	s := newTestServer(t, chat, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/send-test-message",
		strings.NewReader(`{"number":"9876543210","message":"ping"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if chat.sent[0].Address != "919876543210@s.whatsapp.net" {
		t.Fatalf("address = %q", chat.sent[0].Address)
	}
}

func TestSendTestMessageNotConnected(t *testing.T) {
	s := newTestServer(t, &stubSender{err: domain.ErrNotConnected}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/send-test-message",
		strings.NewReader(`{"number":"9876543210"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestSendTestMessageInvalidNumber(t *testing.T) {
	s := newTestServer(t, &stubSender{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/send-test-message",
		strings.NewReader(`{"number":"garbage"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

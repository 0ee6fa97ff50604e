package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/outflow-sh/outflow/internal/adapters/fs"
	"github.com/outflow-sh/outflow/internal/dispatch"
	"github.com/outflow-sh/outflow/internal/domain"
	"github.com/outflow-sh/outflow/internal/ports"
	"github.com/outflow-sh/outflow/internal/tabular"
	"github.com/outflow-sh/outflow/pkg/log"
)

const maxUploadBytes = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.cfg.Status()
	resp := struct {
		Connected bool    `json:"connected"`
		Ready     bool    `json:"ready"`
		State     string  `json:"state"`
		Challenge *string `json:"pendingChallenge"`
	}{Connected: st.Connected, Ready: st.Ready, State: st.State}
	if st.Challenge != "" {
		resp.Challenge = &st.Challenge
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	report, err := s.cfg.Reports.LoadLast()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusNotFound, "no completed run")
			return
		}
		s.log.Error("load last run", log.Err(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load last run")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSendMessages(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Chat == nil {
		s.writeError(w, http.StatusServiceUnavailable, "chat transport not configured")
		return
	}
	s.runUpload(w, r, "chat", s.cfg.Chat, s.cfg.Resolver.Resolve)
}

func (s *Server) handleSendEmails(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Mail == nil {
		s.writeError(w, http.StatusServiceUnavailable, "mail transport not configured")
		return
	}
	s.runUpload(w, r, "mail", s.cfg.Mail, s.cfg.Resolver.ResolveEmail)
}

// runUpload is the shared bulk-run flow for both transports: parse the
// uploaded recipient file, run the dispatcher, archive and return the ledger.
func (s *Server) runUpload(w http.ResponseWriter, r *http.Request, kind string, sender ports.Sender, resolve dispatch.ResolveFunc) {
	if !s.busy.CompareAndSwap(false, true) {
		s.writeError(w, http.StatusConflict, domain.ErrRunInProgress.Error())
		return
	}
	defer s.busy.Store(false)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "recipient file is required")
		return
	}
	defer file.Close()

	rows, err := tabular.NewReader(file).Rows(r.Context())
	if err != nil {
		if errors.Is(err, tabular.ErrNoAddressColumn) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, "could not parse recipient file")
		return
	}
	if len(rows) == 0 {
		s.writeError(w, http.StatusBadRequest, "recipient file has no rows")
		return
	}

	req := dispatch.Request{
		Rows:     rows,
		Template: r.FormValue("message"),
		Subject:  r.FormValue("subject"),
	}

	if img, hdr, err := r.FormFile("image"); err == nil {
		path, saveErr := s.saveUpload(img, hdr)
		img.Close()
		if saveErr != nil {
			s.log.Error("save attachment", log.Err(saveErr))
			s.writeError(w, http.StatusInternalServerError, "could not store attachment")
			return
		}
		defer os.Remove(path)
		req.AttachmentPath = path
	}

	started := time.Now()
	runID := uuid.NewString()
	ledger, runErr := s.newDispatcher(sender, resolve).Run(r.Context(), req)

	report := fs.RunReport{
		RunID:      runID,
		Kind:       kind,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Summary:    ledger.Summarize(),
		Ledger:     ledger,
	}
	// Archival is best effort; the caller still gets the ledger.
	if err := s.cfg.Reports.Save(report); err != nil {
		s.log.Error("archive run report", log.Err(err))
	}

	if runErr != nil {
		s.log.Warn("run ended early", log.String("runId", runID), log.Err(runErr))
	}
	s.writeJSON(w, http.StatusOK, report)
}

// newDispatcher builds a dispatcher with the current pacing settings.
func (s *Server) newDispatcher(sender ports.Sender, resolve dispatch.ResolveFunc) *dispatch.Dispatcher {
	fixed, min, max, perMinute := s.cfg.Runtime.Pacing()

	var delay dispatch.DelayPolicy
	if fixed > 0 {
		delay = dispatch.FixedDelay(fixed)
	} else {
		delay = dispatch.JitterDelay{Min: min, Max: max}
	}

	opts := []dispatch.Option{
		dispatch.WithDelay(delay),
		dispatch.WithLogger(s.log),
	}
	if perMinute > 0 {
		opts = append(opts, dispatch.WithLimiter(
			rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)))
	}
	return dispatch.New(sender, resolve, opts...)
}

func (s *Server) saveUpload(src multipart.File, hdr *multipart.FileHeader) (string, error) {
	tmp, err := os.CreateTemp("", "outflow-upload-*"+filepath.Ext(hdr.Filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func (s *Server) handleSendTest(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Chat == nil {
		s.writeError(w, http.StatusServiceUnavailable, "chat transport not configured")
		return
	}
	var body struct {
		Number  string `json:"number"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if body.Number == "" {
		s.writeError(w, http.StatusBadRequest, "number is required")
		return
	}
	if body.Message == "" {
		body.Message = "Test message"
	}

	addr, err := s.cfg.Resolver.Resolve(body.Number)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.cfg.Chat.Send(r.Context(), ports.Message{Address: addr, Body: body.Message})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotConnected):
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, domain.ErrInvalidAddress), errors.Is(err, domain.ErrRecipientNotFound):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"messageId": res.MessageID,
		"to":        addr,
	})
}

package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

// timestampLayout renders UTC millisecond timestamps, the shape web
// clients already parse.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Response is the envelope every API response is wrapped in.
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Timestamp string `json:"timestamp"`
}

func timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// writeJSON writes v as the response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response: %v", err)
	}
}

func (s *Server) writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	s.writeJSON(w, status, Response{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: timestamp(s.now()),
	})
}

// writeError maps err to a status and envelope. Client errors carry the
// error's own message; server errors carry failMsg so store internals do
// not leak.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, failMsg string) {
	status := wderr.HTTPStatus(err)
	msg := failMsg
	if status < http.StatusInternalServerError {
		msg = clientMessage(err)
	} else {
		s.logger.Error("%s %s [%s]: %v", r.Method, r.URL.Path, RequestID(r.Context()), err)
	}

	s.writeJSON(w, status, Response{
		Success:   false,
		Data:      nil,
		Message:   msg,
		Code:      wderr.Code(err),
		Timestamp: timestamp(s.now()),
	})
}

func clientMessage(err error) string {
	var se *wderr.Error
	if !wderr.As(err, &se) || se.Message == "" {
		return "Bad request"
	}
	return strings.ToUpper(se.Message[:1]) + se.Message[1:]
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/autopeer-io/blurcam/internal/blurcam/command"
)

// executeRequest is the body of POST /osc/commands/execute.
type executeRequest struct {
	Name       command.Name    `json:"name"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeReply(w, command.NewError("", command.InvalidParameterValue, err))
		return
	}
	if req.Name == "" {
		writeReply(w, command.NewError("", command.InvalidParameterValue, errors.New("name is required")))
		return
	}

	replies := make(chan command.Reply, 1)
	cmd := command.New(req.Name, req.Parameters, command.ResponderFunc(func(rep command.Reply) {
		replies <- rep
	}))
	s.dispatcher.Dispatch(cmd)

	select {
	case rep := <-replies:
		writeReply(w, rep)
	case <-r.Context().Done():
		s.log.Warn("Client went away before the reply", "command", cmd.Name, "id", cmd.ID)
	}
}

// statusFor maps error codes onto HTTP statuses.
func statusFor(code command.ErrorCode) int {
	switch code {
	case command.DeviceBusy:
		return http.StatusConflict
	case command.InvalidParameterValue, command.UnknownCommand:
		return http.StatusBadRequest
	case command.Cancelled:
		return http.StatusServiceUnavailable
	case command.UploadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeReply(w http.ResponseWriter, rep command.Reply) {
	switch v := rep.(type) {
	case *command.Error:
		writeJSON(w, statusFor(v.Code), v)
	case command.Frame:
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		w.Write(v.Data)
	case command.Raw:
		if v.JSON() {
			w.Header().Set("Content-Type", "application/json;charset=utf-8")
		} else {
			w.Header().Set("Content-Type", "text/plain;charset=utf-8")
		}
		w.WriteHeader(http.StatusOK)
		w.Write(v.Body)
	default:
		writeJSON(w, http.StatusOK, v)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

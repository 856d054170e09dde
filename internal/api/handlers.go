package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fevolq/money/internal/api/response"
	"github.com/fevolq/money/internal/core"
	"github.com/fevolq/money/internal/store"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrNoWatch),
		errors.Is(err, core.ErrNoMonitor):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFetchFailed),
		errors.Is(err, core.ErrNoData):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrClassInvalid),
		errors.Is(err, core.ErrOptionInvalid),
		errors.Is(err, core.ErrCodesMissing),
		errors.Is(err, core.ErrConfigInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func classOf(w http.ResponseWriter, r *http.Request) (core.Class, bool) {
	class, err := core.ParseClass(r.PathValue("class"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return "", false
	}
	return class, true
}

// queryList splits a comma-separated query parameter, dropping empties.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range strings.Split(r.URL.Query().Get(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrOptionInvalid, err))
		return false
	}
	return true
}

func (s *Server) handleWorth(w http.ResponseWriter, r *http.Request) {
	class, ok := classOf(w, r)
	if !ok {
		return
	}

	records, msg, err := s.app.ResolveWorth(r.Context(), class, queryList(r, "codes"))
	if err != nil {
		response.Error(w, statusFor(err), err)
		return
	}
	response.JSON(w, http.StatusOK, records, msg)
}

func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	class, ok := classOf(w, r)
	if !ok {
		return
	}
	codes := queryList(r, "codes")
	if len(codes) == 0 {
		response.Error(w, http.StatusBadRequest, core.ErrCodesMissing)
		return
	}
	response.JSON(w, http.StatusOK, s.app.Names(r.Context(), class, codes), "")
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	class, ok := classOf(w, r)
	if !ok {
		return
	}
	snapshots := s.app.Snapshots()
	if snapshots == nil {
		response.Error(w, http.StatusNotFound, core.ErrNotFound)
		return
	}

	if date := r.URL.Query().Get("date"); date != "" {
		records, err := snapshots.ReadDaily(r.Context(), class, date)
		if err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, records, "")
		return
	}

	dates, err := snapshots.Dates(r.Context(), class)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	response.JSON(w, http.StatusOK, dates, "")
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	class, ok := classOf(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		entries, msg, err := s.app.Stores().Worth.Get(class)
		if err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, entries, msg)

	case http.MethodPost:
		var req struct {
			Entries []store.WorthEntry `json:"entries"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		added, msg, err := s.app.Stores().Worth.Add(class, req.Entries)
		if err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusCreated, added, msg)

	case http.MethodPut:
		var req struct {
			Entries []store.WorthEntry `json:"entries"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		updated, msg, err := s.app.Stores().Worth.Update(class, req.Entries)
		if err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, updated, msg)

	case http.MethodDelete:
		removed, msg, err := s.app.Stores().Worth.Delete(class, queryList(r, "codes"))
		if err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, removed, msg)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	class, ok := classOf(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		opts, msg, err := s.app.Stores().Monitor.Get(class, r.URL.Query().Get("code"))
		if err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, opts, msg)

	case http.MethodPost:
		var opt store.MonitorOption
		if !decodeBody(w, r, &opt) {
			return
		}
		id, err := s.app.Stores().Monitor.Add(class, opt)
		if err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusCreated, map[string]string{"id": id}, "")

	case http.MethodPut:
		id := r.URL.Query().Get("id")
		if id == "" {
			response.Error(w, http.StatusBadRequest, core.ErrOptionInvalid)
			return
		}
		var patch store.MonitorPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		if err := s.app.Stores().Monitor.Update(class, id, patch); err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]string{"id": id}, "")

	case http.MethodDelete:
		removed, msg, err := s.app.Stores().Monitor.Delete(class, queryList(r, "ids"))
		if err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, removed, msg)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	class, ok := classOf(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		opts, msg, err := s.app.Stores().History.Get(class, r.URL.Query().Get("code"))
		if err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, opts, msg)

	case http.MethodPost:
		var opt store.HistoryOption
		if !decodeBody(w, r, &opt) {
			return
		}
		if err := s.app.Stores().History.Add(class, opt); err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusCreated, map[string]string{"code": opt.Code}, "")

	case http.MethodPut:
		var opt store.HistoryOption
		if !decodeBody(w, r, &opt) {
			return
		}
		if opt.Code == "" {
			response.Error(w, http.StatusBadRequest, core.ErrCodesMissing)
			return
		}
		if err := s.app.Stores().History.Update(class, opt.Code, opt.Windows); err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, map[string]string{"code": opt.Code}, "")

	case http.MethodDelete:
		removed, msg, err := s.app.Stores().History.Delete(class, queryList(r, "codes"))
		if err != nil {
			response.Error(w, statusFor(err), err)
			return
		}
		response.JSON(w, http.StatusOK, removed, msg)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

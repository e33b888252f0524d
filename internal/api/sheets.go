package api

import (
	"errors"
	"net/http"

	"jobtracker/internal/domain"
)

type valuesBody struct {
	Values [][]interface{} `json:"values"`
}

// sheetsClient достает клиент таблиц текущей сессии.
func (s *HTTPServer) sheetsClient(r *http.Request) (domain.SpreadsheetClient, error) {
	sess, err := s.sessions.Get(r.Context(), s.sessionID(r))
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrAuthRequired
		}
		return nil, err
	}
	if !sess.IsAuthenticated() || sess.Sheets() == nil {
		return nil, domain.ErrAuthRequired
	}
	return sess.Sheets(), nil
}

func (s *HTTPServer) handleGetRange(w http.ResponseWriter, r *http.Request) {
	client, err := s.sheetsClient(r)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to fetch spreadsheet data")
		return
	}

	values, err := client.GetRange(r.Context(), r.PathValue("spreadsheetId"), r.PathValue("range"))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to fetch spreadsheet data")
		return
	}
	writeJSON(w, http.StatusOK, valuesBody{Values: values})
}

func (s *HTTPServer) handleUpdateRange(w http.ResponseWriter, r *http.Request) {
	client, err := s.sheetsClient(r)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to update spreadsheet data")
		return
	}

	var body valuesBody
	if err := decodeBody(w, r, &body); err != nil {
		s.writeServiceError(w, r, err, "Failed to update spreadsheet data")
		return
	}
	if body.Values == nil {
		s.writeServiceError(w, r, domain.NewValidationError("values", "values is required"), "Failed to update spreadsheet data")
		return
	}

	res, err := client.UpdateRange(r.Context(), r.PathValue("spreadsheetId"), r.PathValue("range"), body.Values)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to update spreadsheet data")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

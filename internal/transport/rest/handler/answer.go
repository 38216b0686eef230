package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"guessflag/internal/service"
	"guessflag/internal/transport/rest/middleware"
)

// AnswerHandler handles answer submission.
type AnswerHandler struct {
	answers *service.AnswerService
}

func NewAnswerHandler(answers *service.AnswerService) *AnswerHandler {
	return &AnswerHandler{answers: answers}
}

// SubmitAnswerRequest is the request body for submitting an answer. An empty
// ChoiceID means no answer was picked before the clock ran out.
type SubmitAnswerRequest struct {
	QuestionID string `json:"questionId"`
	ChoiceID   string `json:"choiceId"`
}

// Submit handles POST /v1/sessions/{code}/answers.
func (h *AnswerHandler) Submit(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerID := middleware.GetPlayerID(r.Context())
	if middleware.GetSessionCode(r.Context()) != code {
		writeError(w, http.StatusForbidden, "token not valid for this session")
		return
	}

	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.answers.Submit(r.Context(), code, playerID, req.QuestionID, req.ChoiceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

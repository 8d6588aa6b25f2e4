package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"quizstake/domain/entities"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

// Handler serves the wagering API
type Handler struct {
	service   Service
	tokenAuth *jwtauth.JWTAuth
	operators map[string]struct{}
}

// NewHandler creates a handler verifying HS256 tokens signed with jwtSecret
func NewHandler(service Service, jwtSecret string, operatorIDs []string) *Handler {
	operators := make(map[string]struct{}, len(operatorIDs))
	for _, id := range operatorIDs {
		operators[id] = struct{}{}
	}
	return &Handler{
		service:   service,
		tokenAuth: jwtauth.New("HS256", []byte(jwtSecret), nil),
		operators: operators,
	}
}

type createGameRequest struct {
	Stake     int64    `json:"stake"`
	Subjects  []string `json:"subjects"`
	InviteeID *string  `json:"inviteeId"`
}

type completeGameRequest struct {
	WinnerID string `json:"winnerId"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type depositRequest struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
}

type completeGameResponse struct {
	Game       *entities.Game       `json:"game"`
	Settlement *entities.Settlement `json:"settlement"`
}

type balanceResponse struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}

type entriesResponse struct {
	Entries []*entities.LedgerEntry `json:"entries"`
	Next    int64                   `json:"next,omitempty"`
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return false
	}
	return true
}

func gameIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid game id %q", raw)
		return 0, false
	}
	return id, true
}

func intQuery(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		writeBadRequest(w, "invalid %s %q", name, raw)
		return 0, false
	}
	return v, true
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, Response{Code: http.StatusOK, Message: "ok"})
}

func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if !decode(w, r, &req) {
		return
	}
	game, err := h.service.CreateGame(r.Context(), userID(r), req.Stake, req.Subjects, req.InviteeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, game)
}

func (h *Handler) ListOpenGames(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return
	}
	games, err := h.service.ListOpenGames(r.Context(), int(limit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, games)
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	id, ok := gameIDParam(w, r)
	if !ok {
		return
	}
	game, err := h.service.GetGame(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, game)
}

type gameAction func(h *Handler, r *http.Request, gameID int64) (*entities.Game, error)

// gameTransition adapts a single-game action into a handler
func (h *Handler) gameTransition(action gameAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := gameIDParam(w, r)
		if !ok {
			return
		}
		game, err := action(h, r, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, game)
	}
}

func acceptGame(h *Handler, r *http.Request, id int64) (*entities.Game, error) {
	return h.service.AcceptGame(r.Context(), id, userID(r))
}

func declineGame(h *Handler, r *http.Request, id int64) (*entities.Game, error) {
	return h.service.DeclineGame(r.Context(), id, userID(r))
}

func cancelGame(h *Handler, r *http.Request, id int64) (*entities.Game, error) {
	return h.service.CancelGame(r.Context(), id, userID(r))
}

func voidGame(h *Handler, r *http.Request, id int64) (*entities.Game, error) {
	return h.service.VoidGame(r.Context(), id)
}

func (h *Handler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	id, ok := gameIDParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteGame(r.Context(), id, userID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, Response{Code: http.StatusOK, Message: "game deleted"})
}

func (h *Handler) CompleteGame(w http.ResponseWriter, r *http.Request) {
	id, ok := gameIDParam(w, r)
	if !ok {
		return
	}
	var req completeGameRequest
	if !decode(w, r, &req) {
		return
	}
	game, settlement, err := h.service.CompleteGame(r.Context(), id, req.WinnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, completeGameResponse{Game: game, Settlement: settlement})
}

func (h *Handler) AuditGame(w http.ResponseWriter, r *http.Request) {
	id, ok := gameIDParam(w, r)
	if !ok {
		return
	}
	report, err := h.service.AuditGame(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	balance, err := h.service.GetBalance(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, balanceResponse{UserID: user, Balance: balance})
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	after, ok := intQuery(w, r, "after")
	if !ok {
		return
	}
	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return
	}
	entries, next, err := h.service.ListEntries(r.Context(), userID(r), after, int(limit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, entriesResponse{Entries: entries, Next: next})
}

func (h *Handler) ListMyGames(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return
	}
	games, err := h.service.ListUserGames(r.Context(), userID(r), int(limit))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, games)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	entry, err := h.service.Withdraw(r.Context(), userID(r), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, entry)
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decode(w, r, &req) {
		return
	}
	entry, err := h.service.Deposit(r.Context(), req.UserID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, entry)
}

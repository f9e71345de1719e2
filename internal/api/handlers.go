package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/calvinwijaya/card-games-api/internal/game"
	"github.com/calvinwijaya/card-games-api/internal/service"
	"github.com/calvinwijaya/card-games-api/internal/store"
	"github.com/calvinwijaya/card-games-api/internal/types"
)

const msgInternal = "An internal server error occurred try again later"

// Handlers contains all the API handlers
type Handlers struct {
	service   *service.Service
	hub       *Hub
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new instance of Handlers. hub may be nil.
func NewHandlers(svc *service.Service, hub *Hub, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   svc,
		hub:       hub,
		validator: newValidator(),
		logger:    logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	// Pile sessions; /deck routes come first so "deck" is never read as a game id
	r.HandleFunc("/api/poker", h.ListCards).Methods(http.MethodGet)
	r.HandleFunc("/api/poker", h.CreateSession).Methods(http.MethodPost)
	r.HandleFunc("/api/poker/deck", h.ListCards).Methods(http.MethodGet)
	r.HandleFunc("/api/poker/deck", h.CreateDeck).Methods(http.MethodPost)
	r.HandleFunc("/api/poker/deck/{gameId}/draw", h.DrawStrict).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/poker/{gameId}", h.GetSession).Methods(http.MethodGet)
	r.HandleFunc("/api/poker/{gameId}", h.DeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/api/poker/{gameId}/draw", h.Draw).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/poker/{gameId}/shuffle", h.Shuffle).Methods(http.MethodGet, http.MethodPost)

	// Blackjack
	r.HandleFunc("/api/games/blackjack", h.CreateBlackjack).Methods(http.MethodPost)
	r.HandleFunc("/api/games/blackjack/{gameId}", h.GetBlackjack).Methods(http.MethodGet)
	r.HandleFunc("/api/games/blackjack/{gameId}", h.UpdateBlackjack).Methods(http.MethodPost)
	r.HandleFunc("/api/games/blackjack/{gameId}/play", h.GetTurn).Methods(http.MethodGet)
	r.HandleFunc("/api/games/blackjack/{gameId}/play", h.Play).Methods(http.MethodPost)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	// WebSocket endpoint
	if h.hub != nil {
		r.HandleFunc("/ws", h.hub.WebSocketHandler).Methods(http.MethodGet)
	}

	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	r.NotFoundHandler = http.HandlerFunc(notFound)
}

// response helper function to send JSON responses
func response(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorResponse sends the {error, message, ...details} body
func errorResponse(w http.ResponseWriter, status int, message string, details map[string]any) {
	body := make(map[string]any, len(details)+2)
	for k, v := range details {
		body[k] = v
	}
	body["error"] = http.StatusText(status)
	body["message"] = message
	response(w, status, body)
}

func statusFor(code types.ErrorCode) int {
	switch code {
	case types.ErrInvalidInput:
		return http.StatusBadRequest
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto its status. Internal failures are logged and
// never expose their cause.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var gameErr *types.GameError
	if !types.As(err, &gameErr) {
		gameErr = types.WrapError(types.ErrInternalError, msgInternal, err)
	}

	status := statusFor(gameErr.Code)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"request_id", RequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		errorResponse(w, status, msgInternal, nil)
		return
	}

	errorResponse(w, status, gameErr.Message, gameErr.Details)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, http.StatusMethodNotAllowed, "Method "+r.Method+" is not supported", nil)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, http.StatusNotFound, "No route for "+r.URL.Path, nil)
}

// gameID returns the validated {gameId} path variable
func gameID(r *http.Request) (string, error) {
	id := mux.Vars(r)["gameId"]
	if !store.IsValidID(id) {
		return "", types.NewGameError(types.ErrInvalidInput, "Invalid gameId received").WithDetail("gameId", id)
	}
	return id, nil
}

// Health reports that the server is up
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	response(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListCards returns the card catalog, optionally shuffled and truncated
func (h *Handlers) ListCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var random bool
	var count int
	// Malformed values fall back to the full, ordered catalog
	_ = queryBool(q, "random", &random)
	_ = queryInt(q, "count", &count)

	response(w, http.StatusOK, map[string]any{"cards": h.service.ListCards(random, count)})
}

type pileRequest struct {
	Name  string `json:"name" validate:"required"`
	Cards int    `json:"cards" validate:"gte=0,lte=520"`
	Decks int    `json:"decks" validate:"gte=0,lte=10"`
}

type createSessionRequest struct {
	Piles   []pileRequest `json:"piles" validate:"omitempty,max=5,dive"`
	Discard string        `json:"discard" validate:"max=25"`
}

func (req createSessionRequest) specs() []game.PileSpec {
	specs := make([]game.PileSpec, len(req.Piles))
	for i, p := range req.Piles {
		specs[i] = game.PileSpec{
			Name:        p.Name,
			DeckOptions: game.DeckOptions{Cards: p.Cards, Decks: p.Decks},
		}
	}
	return specs
}

func (h *Handlers) bindCreateSession(r *http.Request) (*createSessionRequest, error) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	if err := h.validate(req); err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateSession deals a new pile session
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	req, err := h.bindCreateSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.service.CreateSession(r.Context(), req.specs(), req.Discard)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response(w, http.StatusOK, created)
}

// CreateDeck deals a new pile session and returns every card
func (h *Handlers) CreateDeck(w http.ResponseWriter, r *http.Request) {
	req, err := h.bindCreateSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.service.CreateDeck(r.Context(), req.specs())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response(w, http.StatusOK, created)
}

// GetSession returns the remaining count of every pile
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response(w, http.StatusOK, summary)
}

// DeleteSession removes a pile session
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	deleted, err := h.service.DeleteSession(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response(w, http.StatusOK, deleted)
}

type drawRequest struct {
	Pile  string `json:"pile" validate:"max=35"`
	Count int    `json:"count" validate:"min=1,max=100"`
	Force bool   `json:"force"`
}

// Draw takes cards from a pile, falling back to the only source pile when
// the named one does not exist
func (h *Handlers) Draw(w http.ResponseWriter, r *http.Request) {
	h.draw(w, r, true)
}

// DrawStrict takes cards from exactly the named pile
func (h *Handlers) DrawStrict(w http.ResponseWriter, r *http.Request) {
	h.draw(w, r, false)
}

func (h *Handlers) draw(w http.ResponseWriter, r *http.Request, lenient bool) {
	id, err := gameID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	req := drawRequest{Pile: game.DefaultPileName, Count: 1}
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	queryString(q, "pile", &req.Pile)
	if err := queryInt(q, "count", &req.Count); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := queryBool(q, "force", &req.Force); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.validate(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	drawn, err := h.service.Draw(r.Context(), id, game.DrawRequest{
		Pile:    req.Pile,
		Count:   req.Count,
		Force:   req.Force,
		Lenient: lenient,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response(w, http.StatusOK, drawn)
}

type shuffleRequest struct {
	Piles        []string `json:"piles" validate:"dive,min=1,max=35"`
	IncludeDrawn bool     `json:"includeDrawn"`
}

// Shuffle randomizes piles of a session, by default just "main"
func (h *Handlers) Shuffle(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req shuffleRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	queryList(q, "piles", &req.Piles)
	if err := queryBool(q, "includeDrawn", &req.IncludeDrawn); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Piles == nil {
		req.Piles = []string{game.DefaultPileName}
	}
	if err := h.validate(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	shuffled, err := h.service.Shuffle(r.Context(), id, req.Piles, req.IncludeDrawn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response(w, http.StatusOK, shuffled)
}

type createBlackjackRequest struct {
	Players int `json:"players" validate:"min=1,max=10"`
}

// CreateBlackjack seats the requested players at a new table
func (h *Handlers) CreateBlackjack(w http.ResponseWriter, r *http.Request) {
	req := createBlackjackRequest{Players: 1}
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := queryInt(r.URL.Query(), "players", &req.Players); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.validate(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	table, err := h.service.CreateBlackjack(r.Context(), req.Players)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response(w, http.StatusOK, table)
}

// GetBlackjack returns a table with its shoe redacted
func (h *Handlers) GetBlackjack(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	table, err := h.service.Blackjack(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response(w, http.StatusOK, table)
}

type actionRequest struct {
	Action string `json:"action" validate:"required,oneof=start restart"`
}

// UpdateBlackjack starts a round or restarts the table
func (h *Handlers) UpdateBlackjack(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req actionRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	queryString(r.URL.Query(), "action", &req.Action)
	if err := h.validate(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	var result any
	switch req.Action {
	case service.ActionStart:
		result, err = h.service.Start(r.Context(), id)
	case service.ActionRestart:
		result, err = h.service.Restart(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response(w, http.StatusOK, result)
}

// GetTurn returns the hand of the player whose turn it is
func (h *Handlers) GetTurn(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	turn, err := h.service.Turn(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response(w, http.StatusOK, turn)
}

type playRequest struct {
	Action string `json:"action" validate:"required,oneof=hit stay"`
	Player string `json:"player" validate:"max=32"`
}

// Play hits or stays for the current player
func (h *Handlers) Play(w http.ResponseWriter, r *http.Request) {
	id, err := gameID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req playRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	queryString(q, "action", &req.Action)
	queryString(q, "player", &req.Player)
	if err := h.validate(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	var played *service.PlayView
	switch req.Action {
	case service.ActionHit:
		played, err = h.service.Hit(r.Context(), id, req.Player)
	case service.ActionStay:
		played, err = h.service.Stay(r.Context(), id, req.Player)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response(w, http.StatusOK, played)
}

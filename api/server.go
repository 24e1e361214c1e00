package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/0xKurt/FlexStake/gateway/middleware"
	nativecommon "github.com/0xKurt/FlexStake/native/common"
	"github.com/0xKurt/FlexStake/native/staking"
)

const requestBodyLimit = 1 << 20 // 1 MiB

// Server exposes the staking ledger's query, transaction and admin surface
// over HTTP.
type Server struct {
	engine   *staking.Engine
	registry *staking.Registry
	logger   *slog.Logger
}

// Config wires the server's collaborators.
type Config struct {
	Engine        *staking.Engine
	Registry      *staking.Registry
	Logger        *slog.Logger
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
}

// New builds the HTTP handler for the staking service.
func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: cfg.Engine, registry: cfg.Registry, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	limit := func(key string) func(http.Handler) http.Handler {
		if cfg.RateLimiter == nil {
			return passthrough
		}
		return cfg.RateLimiter.Middleware(key)
	}
	authed := func(scopes ...string) func(http.Handler) http.Handler {
		if cfg.Authenticator == nil {
			return passthrough
		}
		return cfg.Authenticator.Middleware(scopes...)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(q chi.Router) {
			q.Use(limit("query"))
			q.Get("/options/{id}", s.getOption)
			q.Get("/options/{id}/stakes/{address}", s.getStake)
			q.Get("/options/{id}/stakes/{address}/withdrawable", s.getWithdrawable)
			q.Get("/options/{id}/stakes/{address}/value", s.getDisplayValue)
		})
		v1.Group(func(tx chi.Router) {
			tx.Use(limit("tx"))
			tx.Use(authed())
			tx.Post("/stake", s.stake)
			tx.Post("/stake/extend", s.extendStake)
			tx.Post("/stake/withdraw", s.withdraw)
			tx.Post("/stake/withdraw-partial", s.withdrawPartial)
			tx.Post("/stake/migrate", s.migrate)
			tx.Post("/stake/emergency-withdraw", s.emergencyWithdraw)
			tx.Post("/stake/batch/stake", s.batchStake)
			tx.Post("/stake/batch/extend", s.batchExtend)
			tx.Post("/stake/batch/withdraw", s.batchWithdraw)
			tx.Post("/stake/batch/migrate", s.batchMigrate)
		})
		v1.Group(func(admin chi.Router) {
			admin.Use(limit("tx"))
			admin.Use(authed(middleware.ScopeAdmin))
			admin.Post("/admin/options", s.createOption)
			admin.Post("/admin/options/{id}/pause", s.pauseOption)
			admin.Post("/admin/options/{id}/unpause", s.unpauseOption)
			admin.Post("/admin/options/{id}/release", s.releaseOption)
			admin.Post("/admin/emergency-pause", s.setEmergencyPause)
		})
	})
	return r
}

func passthrough(next http.Handler) http.Handler { return next }

type optionPayload struct {
	IsLocked               bool   `json:"isLocked"`
	MinLockDuration        int64  `json:"minLockDuration"`
	MaxLockDuration        int64  `json:"maxLockDuration"`
	HasEarlyExitPenalty    bool   `json:"hasEarlyExitPenalty"`
	PenaltyBps             uint32 `json:"penaltyBps"`
	PenaltyRecipient       string `json:"penaltyRecipient,omitempty"`
	MinStakeAmount         string `json:"minStakeAmount"`
	MaxStakeAmount         string `json:"maxStakeAmount,omitempty"`
	HasLinearVesting       bool   `json:"hasLinearVesting"`
	VestingStart           int64  `json:"vestingStart,omitempty"`
	VestingCliff           int64  `json:"vestingCliff,omitempty"`
	VestingDuration        int64  `json:"vestingDuration,omitempty"`
	HasTimeBasedMultiplier bool   `json:"hasTimeBasedMultiplier"`
	MultiplierRateBps      uint32 `json:"multiplierRateBps,omitempty"`
	Token                  string `json:"token"`
	RequiresData           bool   `json:"requiresData"`
	HookAddress            string `json:"hookAddress,omitempty"`
}

type optionView struct {
	ID uint64 `json:"id"`
	optionPayload
	Paused   bool `json:"paused"`
	Released bool `json:"released"`
}

type stakeView struct {
	OptionID       uint64 `json:"optionId"`
	Owner          string `json:"owner"`
	Amount         string `json:"amount"`
	LockDuration   int64  `json:"lockDuration"`
	CreatedAt      int64  `json:"createdAt"`
	LastExtendedAt int64  `json:"lastExtendedAt"`
	Data           string `json:"data,omitempty"`
}

func newOptionView(opt *staking.Option) optionView {
	view := optionView{
		ID: opt.ID,
		optionPayload: optionPayload{
			IsLocked:               opt.IsLocked,
			MinLockDuration:        opt.MinLockDuration,
			MaxLockDuration:        opt.MaxLockDuration,
			HasEarlyExitPenalty:    opt.HasEarlyExitPenalty,
			PenaltyBps:             opt.PenaltyBps,
			MinStakeAmount:         opt.MinStakeAmount.String(),
			HasLinearVesting:       opt.HasLinearVesting,
			VestingStart:           opt.VestingStart,
			VestingCliff:           opt.VestingCliff,
			VestingDuration:        opt.VestingDuration,
			HasTimeBasedMultiplier: opt.HasTimeBasedMultiplier,
			MultiplierRateBps:      opt.MultiplierRateBps,
			Token:                  opt.Token,
			RequiresData:           opt.RequiresData,
		},
		Paused:   opt.Paused(),
		Released: opt.Released(),
	}
	if opt.PenaltyRecipient != ([20]byte{}) {
		view.PenaltyRecipient = common.BytesToAddress(opt.PenaltyRecipient[:]).Hex()
	}
	if opt.MaxStakeAmount != nil && opt.MaxStakeAmount.Sign() != 0 {
		view.MaxStakeAmount = opt.MaxStakeAmount.String()
	}
	if opt.HasHook() {
		view.HookAddress = common.BytesToAddress(opt.HookAddress[:]).Hex()
	}
	return view
}

func (s *Server) getOption(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid option id")
		return
	}
	opt, err := s.registry.GetOption(id)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOptionView(opt))
}

func (s *Server) getStake(w http.ResponseWriter, r *http.Request) {
	id, addr, err := pathPosition(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stake, err := s.engine.GetStake(id, addr)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	view := stakeView{
		OptionID:       id,
		Owner:          common.BytesToAddress(addr[:]).Hex(),
		Amount:         stake.Amount.String(),
		LockDuration:   stake.LockDuration,
		CreatedAt:      stake.CreatedAt,
		LastExtendedAt: stake.LastExtendedAt,
	}
	if len(stake.Data) > 0 {
		view.Data = base64.StdEncoding.EncodeToString(stake.Data)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getWithdrawable(w http.ResponseWriter, r *http.Request) {
	s.positionAmount(w, r, s.engine.Withdrawable, "withdrawable")
}

func (s *Server) getDisplayValue(w http.ResponseWriter, r *http.Request) {
	s.positionAmount(w, r, s.engine.DisplayValue, "value")
}

func (s *Server) positionAmount(w http.ResponseWriter, r *http.Request, query func(uint64, [20]byte) (*big.Int, error), field string) {
	id, addr, err := pathPosition(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := query(id, addr)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{field: amount.String()})
}

func (s *Server) stake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionID     uint64 `json:"optionId"`
		Amount       string `json:"amount"`
		LockDuration int64  `json:"lockDuration"`
		Data         string `json:"data,omitempty"`
	}
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	data, err := decodeData(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "data must be base64")
		return
	}
	if err := s.engine.Stake(caller, req.OptionID, amount, req.LockDuration, data); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "staked"})
}

func (s *Server) extendStake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionID           uint64 `json:"optionId"`
		AdditionalDuration int64  `json:"additionalDuration"`
	}
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	if err := s.engine.ExtendStake(caller, req.OptionID, req.AdditionalDuration); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "extended"})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionID uint64 `json:"optionId"`
	}
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	payout, err := s.engine.Withdraw(caller, req.OptionID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"payout": payout.String()})
}

func (s *Server) withdrawPartial(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionID uint64 `json:"optionId"`
		Amount   string `json:"amount"`
	}
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	payout, err := s.engine.WithdrawPartial(caller, req.OptionID, amount)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"payout": payout.String()})
}

func (s *Server) migrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromOptionID uint64 `json:"fromOptionId"`
		ToOptionID   uint64 `json:"toOptionId"`
	}
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	if err := s.engine.Migrate(caller, req.FromOptionID, req.ToOptionID); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "migrated"})
}

func (s *Server) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionID uint64 `json:"optionId"`
	}
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	payout, err := s.engine.EmergencyWithdraw(caller, req.OptionID)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"payout": payout.String()})
}

func (s *Server) batchStake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionIDs     []uint64 `json:"optionIds"`
		Amounts       []string `json:"amounts"`
		LockDurations []int64  `json:"lockDurations"`
		Data          []string `json:"data"`
	}
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	amounts := make([]*big.Int, len(req.Amounts))
	for i, raw := range req.Amounts {
		amount, ok := parseAmount(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid amount")
			return
		}
		amounts[i] = amount
	}
	data := make([][]byte, len(req.Data))
	for i, raw := range req.Data {
		decoded, err := decodeData(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "data must be base64")
			return
		}
		data[i] = decoded
	}
	// A caller that omitted every data slot still means "no data" per element.
	if len(data) == 0 && len(req.OptionIDs) > 0 {
		data = make([][]byte, len(req.OptionIDs))
	}
	if err := s.engine.BatchStake(caller, req.OptionIDs, amounts, req.LockDurations, data); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "staked", "count": strconv.Itoa(len(req.OptionIDs))})
}

func (s *Server) batchExtend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionIDs           []uint64 `json:"optionIds"`
		AdditionalDurations []int64  `json:"additionalDurations"`
	}
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	if err := s.engine.BatchExtendStake(caller, req.OptionIDs, req.AdditionalDurations); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "extended"})
}

func (s *Server) batchWithdraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OptionIDs []uint64 `json:"optionIds"`
	}
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	payouts, err := s.engine.BatchWithdraw(caller, req.OptionIDs)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	formatted := make([]string, len(payouts))
	for i, payout := range payouts {
		formatted[i] = payout.String()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payouts": formatted})
}

func (s *Server) batchMigrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromOptionIDs []uint64 `json:"fromOptionIds"`
		ToOptionIDs   []uint64 `json:"toOptionIds"`
	}
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	if err := s.engine.BatchMigrateStake(caller, req.FromOptionIDs, req.ToOptionIDs); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "migrated"})
}

func (s *Server) createOption(w http.ResponseWriter, r *http.Request) {
	var req optionPayload
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	minStake, ok := parseAmount(req.MinStakeAmount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid minStakeAmount")
		return
	}
	maxStake := big.NewInt(0)
	if req.MaxStakeAmount != "" {
		if maxStake, ok = parseAmount(req.MaxStakeAmount); !ok {
			writeError(w, http.StatusBadRequest, "invalid maxStakeAmount")
			return
		}
	}
	opt := &staking.Option{
		IsLocked:               req.IsLocked,
		MinLockDuration:        req.MinLockDuration,
		MaxLockDuration:        req.MaxLockDuration,
		HasEarlyExitPenalty:    req.HasEarlyExitPenalty,
		PenaltyBps:             req.PenaltyBps,
		MinStakeAmount:         minStake,
		MaxStakeAmount:         maxStake,
		HasLinearVesting:       req.HasLinearVesting,
		VestingStart:           req.VestingStart,
		VestingCliff:           req.VestingCliff,
		VestingDuration:        req.VestingDuration,
		HasTimeBasedMultiplier: req.HasTimeBasedMultiplier,
		MultiplierRateBps:      req.MultiplierRateBps,
		Token:                  req.Token,
		RequiresData:           req.RequiresData,
	}
	if req.PenaltyRecipient != "" {
		if !common.IsHexAddress(req.PenaltyRecipient) {
			writeError(w, http.StatusBadRequest, "invalid penaltyRecipient")
			return
		}
		opt.PenaltyRecipient = common.HexToAddress(req.PenaltyRecipient)
	}
	if req.HookAddress != "" {
		if !common.IsHexAddress(req.HookAddress) {
			writeError(w, http.StatusBadRequest, "invalid hookAddress")
			return
		}
		opt.HookAddress = common.HexToAddress(req.HookAddress)
	}
	id, err := s.registry.CreateOption(caller, opt)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"optionId": id})
}

func (s *Server) pauseOption(w http.ResponseWriter, r *http.Request) {
	s.optionStatus(w, r, s.registry.PauseOption)
}

func (s *Server) unpauseOption(w http.ResponseWriter, r *http.Request) {
	s.optionStatus(w, r, s.registry.UnpauseOption)
}

func (s *Server) releaseOption(w http.ResponseWriter, r *http.Request) {
	s.optionStatus(w, r, s.registry.PauseAndReleaseOption)
}

func (s *Server) optionStatus(w http.ResponseWriter, r *http.Request, transition func([20]byte, uint64) error) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid option id")
		return
	}
	if err := transition(caller, id); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) setEmergencyPause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused bool `json:"paused"`
	}
	caller, ok := s.decode(w, r, &req)
	if !ok {
		return
	}
	if err := s.engine.SetEmergencyPause(caller, req.Paused); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out interface{}) ([20]byte, bool) {
	caller, ok := s.caller(w, r)
	if !ok {
		return [20]byte{}, false
	}
	body := http.MaxBytesReader(w, r.Body, requestBodyLimit)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return [20]byte{}, false
	}
	return caller, true
}

// caller resolves the acting address: the authenticated token subject when
// auth is enabled, otherwise the X-Caller-Address header for development
// deployments.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	if caller, ok := middleware.Caller(r.Context()); ok {
		return caller, true
	}
	raw := r.Header.Get("X-Caller-Address")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusUnauthorized, "caller address unavailable")
		return [20]byte{}, false
	}
	return common.HexToAddress(raw), true
}

func (s *Server) writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, staking.ErrOptionNotFound), errors.Is(err, staking.ErrStakeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, staking.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, staking.ErrStakeExists),
		errors.Is(err, staking.ErrOptionAlreadyPaused),
		errors.Is(err, staking.ErrOptionNotPaused),
		errors.Is(err, staking.ErrReentrantCall):
		status = http.StatusConflict
	case errors.Is(err, staking.ErrStakingPaused),
		errors.Is(err, staking.ErrNotEmergencyPaused),
		errors.Is(err, nativecommon.ErrEmergencyPaused):
		status = http.StatusLocked
	case errors.Is(err, staking.ErrNilState):
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("ledger operation failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func pathID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

func pathPosition(r *http.Request) (uint64, [20]byte, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, [20]byte{}, errors.New("invalid option id")
	}
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		return 0, [20]byte{}, errors.New("invalid address")
	}
	return id, common.HexToAddress(raw), nil
}

func parseAmount(raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() < 0 {
		return nil, false
	}
	return amount, true
}

func decodeData(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(raw)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

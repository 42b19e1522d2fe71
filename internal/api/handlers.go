package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"frostwatch/internal/types"
)

// HandleGeneratePrediction runs the forecast pipeline immediately and
// returns the stored prediction. The scheduled runs use the same pipeline;
// this endpoint exists for operators and integration checks.
func (s *Server) HandleGeneratePrediction(w http.ResponseWriter, r *http.Request) {
	prediction, err := s.generator.GeneratePrediction(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusCreated, APIResponse{Data: prediction})
}

// HandleLatestPrediction returns the most recent prediction on record.
func (s *Server) HandleLatestPrediction(w http.ResponseWriter, r *http.Request) {
	latest, err := s.predictions.Latest(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	if latest == nil {
		Error(w, r, types.NewAppError(
			types.ErrCodeNotFoundPrediction,
			"no predictions on record",
			nil,
		))
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: latest})
}

// todaysPredictionsResponse carries the day's predictions plus the running
// daily average used by the evening alert.
type todaysPredictionsResponse struct {
	Predictions        []types.Prediction `json:"predictions"`
	AverageProbability *float64           `json:"average_probability,omitempty"`
}

// HandleTodaysPredictions returns every prediction generated on the current
// UTC date and their average probability. An empty day is a 200 with an
// empty list, not an error.
func (s *Server) HandleTodaysPredictions(w http.ResponseWriter, r *http.Request) {
	today, err := s.predictions.TodaysPredictions(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}

	resp := todaysPredictionsResponse{Predictions: today}
	if avg, ok, err := s.predictions.DailyAverageProbability(r.Context()); err != nil {
		Error(w, r, err)
		return
	} else if ok {
		resp.AverageProbability = &avg
	}
	if resp.Predictions == nil {
		resp.Predictions = []types.Prediction{}
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: resp})
}

// HandleDispatchDailyAlert triggers the daily alert fan-out to every
// registered farmer and returns the per-recipient report. The scheduled
// 17:00 run uses the same dispatcher.
func (s *Server) HandleDispatchDailyAlert(w http.ResponseWriter, r *http.Request) {
	phones, err := s.farmers.ListAllPhoneNumbers(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}

	report, err := s.dispatcher.DispatchDailyAlert(r.Context(), phones)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: report})
}

// HandleLatestReading serves the most recent cached sensor reading,
// triggering a refresh when the cache is cold.
func (s *Server) HandleLatestReading(w http.ResponseWriter, r *http.Request) {
	cached, err := s.sensorCache.GetLatest(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: cached})
}

// registerFarmerRequest is the JSON contract for farmer registration.
// PhoneNumber must be E.164; names are optional so alerts can go to
// unattributed numbers.
type registerFarmerRequest struct {
	FirstName   string `json:"first_name" validate:"omitempty,max=100"`
	LastName    string `json:"last_name" validate:"omitempty,max=100"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
	LotAddress  string `json:"lot_address" validate:"omitempty,max=255"`
}

// HandleRegisterFarmer registers a new alert recipient. A duplicate phone
// number is a 409.
func (s *Server) HandleRegisterFarmer(w http.ResponseWriter, r *http.Request) {
	var req registerFarmerRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		Error(w, r, mapValidationError(err))
		return
	}

	farmer := types.Farmer{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		LotAddress:   req.LotAddress,
		RegisteredAt: s.clock.Now().UTC(),
	}
	if err := s.farmers.Register(r.Context(), farmer); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, r, http.StatusCreated, APIResponse{Data: farmer})
}

// HandleListFarmers returns every registered farmer in registration order.
func (s *Server) HandleListFarmers(w http.ResponseWriter, r *http.Request) {
	all, err := s.farmers.ListAll(r.Context())
	if err != nil {
		Error(w, r, err)
		return
	}
	if all == nil {
		all = []types.Farmer{}
	}
	JSON(w, r, http.StatusOK, APIResponse{Data: all})
}

// healthResponse is the liveness payload.
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
}

// HandleHealth is the liveness endpoint.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, healthResponse{
		Status:  "ok",
		Service: s.service,
		Uptime:  s.clock.Now().Sub(s.startedAt).Round(time.Second).String(),
	})
}

// mapValidationError translates validator failures into a structured 400,
// reporting the first failing field. Phone format failures carry their own
// code so clients can distinguish them.
func mapValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return types.NewAppError(types.ErrCodeValidationMissingField, "invalid request", err)
	}

	first := verrs[0]
	code := types.ErrCodeValidationMissingField
	if first.Tag() == "e164" {
		code = types.ErrCodeValidationInvalidPhone
	}
	return types.NewAppError(code, "invalid request field", err).WithDetails(map[string]any{
		"field": first.Field(),
		"rule":  first.Tag(),
	})
}

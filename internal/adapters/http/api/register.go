package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/roboheist/backend/internal/adapters/repository"
	"github.com/roboheist/backend/internal/domain/model"
	"github.com/roboheist/backend/internal/domain/registration"
	"github.com/roboheist/backend/internal/domain/types"
	"github.com/roboheist/backend/pkg/logger"
	"github.com/roboheist/backend/pkg/metrics"
)

// DuplicateTeamDetail is the 400 body for a taken team name.
const DuplicateTeamDetail = "Team name already registered"

// RegisterDependencies defines the interface for team registration.
type RegisterDependencies interface {
	Register(ctx context.Context, reg model.Registration) (types.Entry, error)
}

// RegisterHandler handles registration requests.
type RegisterHandler struct {
	deps      RegisterDependencies
	validator *registration.Validator
	maxBody   int64
	logger    logger.Logger
}

// NewRegisterHandler creates a new register handler.
func NewRegisterHandler(deps RegisterDependencies, maxBody int64, l logger.Logger) *RegisterHandler {
	return &RegisterHandler{
		deps:      deps,
		validator: registration.NewValidator(),
		maxBody:   maxBody,
		logger:    l,
	}
}

// HandleRegister handles POST /api/register.
func (h *RegisterHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)

	req, err := decodeRequest(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Debug(ctx, "registration body too large", logger.Error(WrapKind(op, ErrBodyTooLarge, err)))
			writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		h.rejectInvalid(ctx, w, op, err)
		return
	}

	reg, err := h.validator.Validate(req)
	if err != nil {
		h.rejectInvalid(ctx, w, op, err)
		return
	}

	entry, err := h.deps.Register(ctx, reg)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, types.RegisterResponse{OK: true, Team: entry})
	case errors.Is(err, repository.ErrDuplicateTeam):
		h.logger.Debug(ctx, "duplicate registration", logger.Error(WrapKind(op, ErrDuplicate, err)))
		writeDetail(w, http.StatusBadRequest, DuplicateTeamDetail)
	default:
		h.logger.Error(ctx, "registration failed", logger.Error(Wrap(op, err)))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func (h *RegisterHandler) rejectInvalid(ctx context.Context, w http.ResponseWriter, op string, err error) {
	var verr *registration.ValidationError
	if !errors.As(err, &verr) {
		h.logger.Error(ctx, "registration validation failed", logger.Error(Wrap(op, err)))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	metrics.RecordRegistrationInvalid()
	h.logger.Debug(ctx, "invalid registration", logger.Error(WrapKind(op, ErrValidation, err)))
	writeDetail(w, http.StatusUnprocessableEntity, verr.Fields)
}

// decodeRequest reads exactly one JSON object. Decoding problems come back as
// *registration.ValidationError, except an oversized body.
func decodeRequest(body io.Reader) (registration.Request, error) {
	var req registration.Request
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return req, decodeError(err)
	}
	if dec.More() {
		return req, registration.Body("JSON decode error", registration.TypeJSONInvalid)
	}
	return req, nil
}

func decodeError(err error) error {
	var (
		tooLarge *http.MaxBytesError
		typeErr  *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &tooLarge):
		return err
	case errors.Is(err, io.EOF):
		return registration.Body("Field required", registration.TypeMissing)
	case errors.As(err, &typeErr):
		msg := "Input should be a valid " + describeKind(typeErr.Type)
		if typeErr.Field == "" {
			return registration.Body(msg, registration.TypeJSONType)
		}
		return registration.Body(msg, registration.TypeJSONType, strings.Split(typeErr.Field, ".")...)
	default:
		// Syntax errors, truncated bodies and anything else the decoder rejects.
		return registration.Body("JSON decode error", registration.TypeJSONInvalid)
	}
}

func describeKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Struct, reflect.Map:
		return "dictionary"
	default:
		return t.Kind().String()
	}
}

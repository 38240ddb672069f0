package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tyemirov/certtrust/internal/buildpolicy"
)

type errorBehaviorResponse struct {
	Name             string `json:"name"`
	Label            string `json:"label"`
	EquivalentResult string `json:"equivalent_result"`
	Default          bool   `json:"default"`
}

type errorBehaviorListResponse struct {
	Default   string                  `json:"default"`
	Behaviors []errorBehaviorResponse `json:"behaviors"`
}

type buildOutcomeResponse struct {
	Behavior string `json:"behavior"`
	Current  string `json:"current"`
	Errors   int    `json:"errors"`
	Result   string `json:"result"`
}

type buildPolicyHandler struct{}

func newBuildPolicyHandler() buildPolicyHandler {
	return buildPolicyHandler{}
}

func (handler buildPolicyHandler) Register(router chi.Router) {
	router.Get("/build/error-behaviors", handler.listBehaviors)
	router.Get("/build/outcome", handler.outcome)
}

func (handler buildPolicyHandler) listBehaviors(responseWriter http.ResponseWriter, request *http.Request) {
	response := errorBehaviorListResponse{Default: buildpolicy.DefaultErrorBehavior.String()}
	for _, behavior := range buildpolicy.ErrorBehaviors() {
		response.Behaviors = append(response.Behaviors, errorBehaviorResponse{
			Name:             behavior.String(),
			Label:            behavior.Label(),
			EquivalentResult: behavior.EquivalentResult().String(),
			Default:          behavior.IsDefault(),
		})
	}
	writeJSON(responseWriter, http.StatusOK, response)
}

func (handler buildPolicyHandler) outcome(responseWriter http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	behavior, behaviorErr := buildpolicy.ParseErrorBehavior(query.Get("behavior"))
	if behaviorErr != nil {
		writeRequestError(responseWriter, behaviorErr)
		return
	}
	current := buildpolicy.ResultSuccess
	if rawCurrent := strings.TrimSpace(query.Get("current")); rawCurrent != "" {
		parsedCurrent, currentErr := buildpolicy.ParseResult(rawCurrent)
		if currentErr != nil {
			writeRequestError(responseWriter, currentErr)
			return
		}
		current = parsedCurrent
	}
	errorCount := 0
	if rawErrors := strings.TrimSpace(query.Get("errors")); rawErrors != "" {
		parsedErrors, parseErr := strconv.Atoi(rawErrors)
		if parseErr != nil || parsedErrors < 0 {
			writeRequestError(responseWriter, fmt.Errorf("invalid error count %q", rawErrors))
			return
		}
		errorCount = parsedErrors
	}
	writeJSON(responseWriter, http.StatusOK, buildOutcomeResponse{
		Behavior: behavior.String(),
		Current:  current.String(),
		Errors:   errorCount,
		Result:   behavior.Apply(current, errorCount > 0).String(),
	})
}

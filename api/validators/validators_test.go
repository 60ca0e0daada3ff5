package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

type paymentBody struct {
	Amount string `json:"amount" validate:"required"`
	Method string `json:"method" validate:"required,payment_method"`
	Kind   string `json:"kind" validate:"omitempty,payment_kind"`
	Phone  string `json:"phone" validate:"omitempty,phone"`
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10","method":"cheque"}`))
	var body paymentBody
	err := DecodeJSONBody(req, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be one of [cash card transfer]", details["method"])
}

func TestDecodeJSONBodyDomainTags(t *testing.T) {
	ok := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10","method":"card","kind":"final_settlement","phone":"+52 (55) 1234-5678"}`))
	var body paymentBody
	require.NoError(t, DecodeJSONBody(ok, &body))

	bad := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10","method":"cash","kind":"abono","phone":"12ab"}`))
	err := DecodeJSONBody(bad, &paymentBody{})
	details, isMap := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, isMap)
	assert.Contains(t, details, "kind")
	assert.Equal(t, "must be a phone number with 10 to 15 digits", details["phone"])
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	payload := `{"amount":"` + strings.Repeat("9", maxJSONBody) + `","method":"cash"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	err := DecodeJSONBody(req, &paymentBody{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "request body too large", pkgerrors.As(err).Message())
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10","method":"cash","tip":"1"}`))
	var body paymentBody
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseUUIDParam(req, "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUIDParam(req, "customerId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&ascending=true&customer_id=nope", nil)

	_, err := ParseQueryInt(req, "limit", 25, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	ascending, err := ParseBoolQuery(req, "ascending", false)
	require.NoError(t, err)
	assert.True(t, ascending)

	_, err = ParseOptionalUUIDQuery(req, "customer_id")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing, err := ParseOptionalUUIDQuery(req, "status")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "lap", SanitizeString("  laptop ", 3))
	assert.Equal(t, "laptop", SanitizeString("laptop", 0))
	assert.Equal(t, "pantalla", SanitizeString("pantalla rota", 9))
	assert.Equal(t, "reparaci", SanitizeString("reparación", 9))
}
